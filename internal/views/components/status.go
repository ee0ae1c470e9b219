package components

import (
	"fmt"

	"porter/internal/models"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// StatusBar is the single status element of the shell. Error statuses are
// drawn with danger importance.
type StatusBar struct {
	container   *fyne.Container
	statusLabel *widget.Label
	mode        models.StatusMode
}

// NewStatusBar creates a new status bar component
func NewStatusBar() *StatusBar {
	sb := &StatusBar{}
	sb.createComponents()
	sb.buildLayout()
	return sb
}

func (sb *StatusBar) createComponents() {
	sb.statusLabel = widget.NewLabel("Ready")
	sb.statusLabel.Wrapping = fyne.TextWrapWord
}

func (sb *StatusBar) buildLayout() {
	sb.container = container.NewVBox(
		widget.NewSeparator(),
		sb.statusLabel,
	)
}

// SetStatus replaces the text and display mode
func (sb *StatusBar) SetStatus(status models.Status) {
	fyne.Do(func() {
		sb.mode = status.Mode
		if status.IsError() {
			sb.statusLabel.Importance = widget.DangerImportance
		} else {
			sb.statusLabel.Importance = widget.MediumImportance
		}
		sb.statusLabel.SetText(status.Text)
	})
}

// GetStatus returns the current status message
func (sb *StatusBar) GetStatus() string {
	return sb.statusLabel.Text
}

// IsError reports whether the status is shown in error mode.
func (sb *StatusBar) IsError() bool {
	return sb.mode == models.StatusError
}

// GetContainer returns the status bar container
func (sb *StatusBar) GetContainer() *fyne.Container {
	return sb.container
}

// ProgressBar displays how many items of a batch have been produced
type ProgressBar struct {
	container   *fyne.Container
	progressBar *widget.ProgressBar
	stageLabel  *widget.Label
	visible     bool
}

// NewProgressBar creates a new progress bar component
func NewProgressBar() *ProgressBar {
	pb := &ProgressBar{}
	pb.createComponents()
	pb.buildLayout()
	return pb
}

func (pb *ProgressBar) createComponents() {
	pb.progressBar = widget.NewProgressBar()
	pb.progressBar.SetValue(0.0)
	pb.stageLabel = widget.NewLabel("")
}

func (pb *ProgressBar) buildLayout() {
	pb.container = container.NewVBox(
		pb.stageLabel,
		pb.progressBar,
	)
	pb.container.Hide()
}

// SetCounts shows done out of total. A zero total shows an empty bar.
func (pb *ProgressBar) SetCounts(done, total int) {
	fyne.Do(func() {
		progress := 0.0
		if total > 0 {
			progress = float64(done) / float64(total)
		}
		if progress < 0.0 {
			progress = 0.0
		} else if progress > 1.0 {
			progress = 1.0
		}
		pb.progressBar.SetValue(progress)
		pb.stageLabel.SetText(fmt.Sprintf("%d / %d", done, total))
	})
}

// GetProgress returns the current progress value
func (pb *ProgressBar) GetProgress() float64 {
	return pb.progressBar.Value
}

// GetStage returns the current counter text
func (pb *ProgressBar) GetStage() string {
	return pb.stageLabel.Text
}

// SetVisible shows or hides the progress bar
func (pb *ProgressBar) SetVisible(visible bool) {
	fyne.Do(func() {
		pb.visible = visible
		if visible {
			pb.container.Show()
		} else {
			pb.container.Hide()
		}
	})
}

// IsVisible returns true if the progress bar is visible
func (pb *ProgressBar) IsVisible() bool {
	return pb.visible
}

// Reset resets the progress bar to initial state
func (pb *ProgressBar) Reset() {
	fyne.Do(func() {
		pb.progressBar.SetValue(0.0)
		pb.stageLabel.SetText("")
	})
}

// GetContainer returns the progress bar container
func (pb *ProgressBar) GetContainer() *fyne.Container {
	return pb.container
}
