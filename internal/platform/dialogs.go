package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"porter/internal/models"

	"github.com/ncruces/zenity"
)

// NativeHost serves dialogs with the operating system's own file choosers.
type NativeHost struct{}

func NewNativeHost() *NativeHost {
	return &NativeHost{}
}

// PickPath shows the native dialog described by spec. A cancelled dialog
// returns ok == false and no error.
func (h *NativeHost) PickPath(ctx context.Context, spec models.DialogSpec, dir string) (string, bool, error) {
	options := append(dialogOptions(spec, dir), zenity.Context(ctx))

	var (
		path string
		err  error
	)
	if spec.Kind == models.DialogSaveFile {
		path, err = zenity.SelectFileSave(options...)
	} else {
		path, err = zenity.SelectFile(options...)
	}

	if errors.Is(err, zenity.ErrCanceled) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s dialog: %w", spec.Title, err)
	}
	return path, path != "", nil
}

// Confirm asks a yes/no question. Answering no is not an error.
func (h *NativeHost) Confirm(ctx context.Context, title, message string) (bool, error) {
	err := zenity.Question(message,
		zenity.Title(title),
		zenity.QuestionIcon,
		zenity.Context(ctx),
	)
	if errors.Is(err, zenity.ErrCanceled) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("confirm: %w", err)
	}
	return true, nil
}

func (h *NativeHost) OpenWithDefault(path string) error {
	return OpenFileWithDefaultApp(path)
}

func (h *NativeHost) HomeDir() (string, error) {
	return os.UserHomeDir()
}

// dialogOptions translates spec into zenity options.
func dialogOptions(spec models.DialogSpec, dir string) []zenity.Option {
	var options []zenity.Option

	if spec.Title != "" {
		options = append(options, zenity.Title(spec.Title))
	}

	switch spec.Kind {
	case models.DialogOpenDirectory:
		options = append(options, zenity.Directory())
	case models.DialogSaveFile:
		options = append(options, zenity.ConfirmOverwrite())
	}

	if dir != "" {
		options = append(options, zenity.Filename(startLocation(dir)))
	}

	if filters := fileFilters(spec.Filters); len(filters) > 0 {
		options = append(options, filters)
	}
	return options
}

// startLocation marks dir as a directory so it becomes the initial location
// instead of a preselected file name.
func startLocation(dir string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}
	return dir + string(filepath.Separator)
}

func fileFilters(filters []models.FileFilter) zenity.FileFilters {
	var out zenity.FileFilters
	for _, f := range filters {
		patterns := f.Patterns()
		if len(patterns) == 0 {
			continue
		}
		out = append(out, zenity.FileFilter{
			Name:     f.Name,
			Patterns: patterns,
			CaseFold: true,
		})
	}
	return out
}
