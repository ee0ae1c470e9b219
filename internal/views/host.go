package views

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"porter/internal/models"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

// FyneHost serves dialogs with Fyne's own file dialogs inside the main
// window. Its blocking methods must not be called from the UI goroutine.
type FyneHost struct {
	app    fyne.App
	window fyne.Window
}

func NewFyneHost(app fyne.App, window fyne.Window) *FyneHost {
	return &FyneHost{app: app, window: window}
}

type pickResult struct {
	path string
	ok   bool
	err  error
}

func (h *FyneHost) PickPath(ctx context.Context, spec models.DialogSpec, dir string) (string, bool, error) {
	results := make(chan pickResult, 1)
	deliver := func(r pickResult) {
		select {
		case results <- r:
		default:
		}
	}

	var fileDialog *dialog.FileDialog
	fyne.Do(func() {
		fileDialog = h.newDialog(spec, deliver)
		if dir != "" {
			if lister, err := storage.ListerForURI(storage.NewFileURI(dir)); err == nil {
				fileDialog.SetLocation(lister)
			}
		}
		if filter := extensionFilter(spec.Filters); filter != nil {
			fileDialog.SetFilter(filter)
		}
		fileDialog.Resize(fyne.NewSize(800, 600))
		fileDialog.Show()
	})

	select {
	case r := <-results:
		return r.path, r.ok, r.err
	case <-ctx.Done():
		fyne.Do(func() {
			if fileDialog != nil {
				fileDialog.Hide()
			}
		})
		return "", false, ctx.Err()
	}
}

func (h *FyneHost) newDialog(spec models.DialogSpec, deliver func(pickResult)) *dialog.FileDialog {
	switch spec.Kind {
	case models.DialogOpenDirectory:
		return dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil || uri == nil {
				deliver(pickResult{err: err})
				return
			}
			deliver(pickResult{path: uri.Path(), ok: true})
		}, h.window)
	case models.DialogSaveFile:
		return dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
			if err != nil || writer == nil {
				deliver(pickResult{err: err})
				return
			}
			path := writer.URI().Path()
			_ = writer.Close()
			deliver(pickResult{path: path, ok: true})
		}, h.window)
	default:
		return dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
			if err != nil || reader == nil {
				deliver(pickResult{err: err})
				return
			}
			path := reader.URI().Path()
			_ = reader.Close()
			deliver(pickResult{path: path, ok: true})
		}, h.window)
	}
}

func extensionFilter(filters []models.FileFilter) storage.FileFilter {
	var exts []string
	for _, f := range filters {
		exts = append(exts, f.DottedExtensions()...)
	}
	if len(exts) == 0 {
		return nil
	}
	return storage.NewExtensionFileFilter(exts)
}

func (h *FyneHost) Confirm(ctx context.Context, title, message string) (bool, error) {
	answer := make(chan bool, 1)

	var confirm *dialog.ConfirmDialog
	fyne.Do(func() {
		confirm = dialog.NewConfirm(title, message, func(ok bool) {
			select {
			case answer <- ok:
			default:
			}
		}, h.window)
		confirm.Show()
	})

	select {
	case ok := <-answer:
		return ok, nil
	case <-ctx.Done():
		fyne.Do(func() {
			if confirm != nil {
				confirm.Hide()
			}
		})
		return false, ctx.Err()
	}
}

func (h *FyneHost) OpenWithDefault(path string) error {
	u, err := url.Parse(storage.NewFileURI(path).String())
	if err != nil {
		return fmt.Errorf("file url for %s: %w", path, err)
	}
	return h.app.OpenURL(u)
}

func (h *FyneHost) HomeDir() (string, error) {
	return os.UserHomeDir()
}
