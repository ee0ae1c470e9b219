package models

import (
	"fmt"
	"sort"
	"strings"

	"porter/internal/backend"
)

type DialogKind int

const (
	DialogOpenFile DialogKind = iota
	DialogOpenDirectory
	DialogSaveFile
)

func (k DialogKind) String() string {
	switch k {
	case DialogOpenDirectory:
		return "open-directory"
	case DialogSaveFile:
		return "save-file"
	default:
		return "open-file"
	}
}

// FileFilter restricts a dialog to files with the given extensions, written
// without the leading dot.
type FileFilter struct {
	Name       string
	Extensions []string
}

// Patterns returns glob patterns such as "*.html".
func (f FileFilter) Patterns() []string {
	out := make([]string, len(f.Extensions))
	for i, ext := range f.Extensions {
		out[i] = "*." + strings.TrimPrefix(ext, ".")
	}
	return out
}

// DottedExtensions returns the extensions with a leading dot.
func (f FileFilter) DottedExtensions() []string {
	out := make([]string, len(f.Extensions))
	for i, ext := range f.Extensions {
		out[i] = "." + strings.TrimPrefix(ext, ".")
	}
	return out
}

// DialogSpec configures the dialog used to fill a slot.
type DialogSpec struct {
	Kind    DialogKind
	Title   string
	Filters []FileFilter
	// StartAtHome opens the dialog in the cached home directory.
	StartAtHome bool
}

// Selector binds a slot to its dialog, its payload argument and the message
// shown once a path was chosen.
type Selector struct {
	Slot         Slot
	Label        string
	Dialog       DialogSpec
	PayloadKey   string
	Confirmation string
}

// Workflow describes one variant of the shell: which paths it collects and
// which backend command it feeds them to.
type Workflow struct {
	Name         string
	Title        string
	Command      backend.Command
	Selectors    []Selector
	TriggerLabel string
	// StartMessage replaces the status when the command starts. Empty keeps
	// the current status.
	StartMessage string
	// ReportProgress subscribes to the work and skip notifications.
	ReportProgress bool
	// DetectSoftFailure treats completed responses flagged as failed (or
	// carrying the failure marker) as errors.
	DetectSoftFailure bool
	// OfferOpenResult asks whether to open the output once the command is done.
	OfferOpenResult bool
	// FailureMessages overrides the raw error text per failure kind.
	FailureMessages map[backend.FailureKind]string
}

func (w Workflow) Selector(slot Slot) (Selector, bool) {
	for _, s := range w.Selectors {
		if s.Slot == slot {
			return s, true
		}
	}
	return Selector{}, false
}

// Payload builds the command arguments from a selection snapshot. Unset
// slots become nil arguments.
func (w Workflow) Payload(paths map[Slot]string) backend.Payload {
	payload := make(backend.Payload, len(w.Selectors))
	for _, s := range w.Selectors {
		if path, ok := paths[s.Slot]; ok {
			payload[s.PayloadKey] = path
		} else {
			payload[s.PayloadKey] = nil
		}
	}
	return payload
}

// FailureMessage returns the text shown for a failed command.
func (w Workflow) FailureMessage(err error) string {
	if msg, ok := w.FailureMessages[backend.Classify(err)]; ok {
		return msg
	}
	return err.Error()
}

const (
	WorkflowImages = "images"
	WorkflowSite   = "site"
)

func ImagesWorkflow() Workflow {
	return Workflow{
		Name:    WorkflowImages,
		Title:   "Porter: Image Converter",
		Command: backend.ConvertImages,
		Selectors: []Selector{
			{
				Slot:  SlotInput,
				Label: "Select Images Folder",
				Dialog: DialogSpec{
					Kind:        DialogOpenDirectory,
					Title:       "Select Images Directory",
					StartAtHome: true,
				},
				PayloadKey:   backend.KeyInputDir,
				Confirmation: "Images folder selected",
			},
			{
				Slot:  SlotOutput,
				Label: "Select Output Folder",
				Dialog: DialogSpec{
					Kind:        DialogOpenDirectory,
					Title:       "Select output directory",
					StartAtHome: true,
				},
				PayloadKey:   backend.KeyOutputDir,
				Confirmation: "Output selected",
			},
		},
		TriggerLabel:   "Convert",
		StartMessage:   "0 images have been produced.",
		ReportProgress: true,
	}
}

func SiteWorkflow() Workflow {
	html := FileFilter{Name: "Html", Extensions: []string{"html"}}
	toml := FileFilter{Name: "TOML", Extensions: []string{"toml"}}

	return Workflow{
		Name:    WorkflowSite,
		Title:   "Porter: Site Generator",
		Command: backend.CreateSite,
		Selectors: []Selector{
			{
				Slot:  SlotInput,
				Label: "Select Template",
				Dialog: DialogSpec{
					Kind:    DialogOpenFile,
					Title:   "Select template",
					Filters: []FileFilter{html},
				},
				PayloadKey:   backend.KeyInputFile,
				Confirmation: "Template selected",
			},
			{
				Slot:  SlotDeclaration,
				Label: "Select Declaration",
				Dialog: DialogSpec{
					Kind:    DialogOpenFile,
					Title:   "Select declaration",
					Filters: []FileFilter{toml},
				},
				PayloadKey:   backend.KeyDeclarationFile,
				Confirmation: "Declaration selected",
			},
			{
				Slot:  SlotOutput,
				Label: "Select Output",
				Dialog: DialogSpec{
					Kind:    DialogSaveFile,
					Title:   "Save site as",
					Filters: []FileFilter{html},
				},
				PayloadKey:   backend.KeyOutputFile,
				Confirmation: "Output selected",
			},
		},
		TriggerLabel:      "Create Site",
		DetectSoftFailure: true,
		OfferOpenResult:   true,
		FailureMessages: map[backend.FailureKind]string{
			backend.KindInput:       "Select a valid template file.",
			backend.KindDeclaration: "Select a valid declaration file.",
		},
	}
}

var workflows = map[string]func() Workflow{
	WorkflowImages: ImagesWorkflow,
	WorkflowSite:   SiteWorkflow,
}

// LookupWorkflow returns the built-in workflow with the given name.
func LookupWorkflow(name string) (Workflow, error) {
	build, ok := workflows[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Workflow{}, fmt.Errorf("unknown workflow %q (known: %s)", name, strings.Join(WorkflowNames(), ", "))
	}
	return build(), nil
}

func WorkflowNames() []string {
	names := make([]string, 0, len(workflows))
	for name := range workflows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
