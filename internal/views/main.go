package views

import (
	"porter/internal/models"
	"porter/internal/views/components"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// MainView is the window content of one workflow: its selection forms, the
// run button, a progress bar and the status element.
type MainView struct {
	// UI Components
	window        fyne.Window
	workflow      models.Workflow
	mainContainer *fyne.Container
	actions       *components.ActionPanel
	statusBar     *components.StatusBar
	progressBar   *components.ProgressBar
}

// NewMainView creates the view and sets it as the window content
func NewMainView(window fyne.Window, workflow models.Workflow) *MainView {
	view := &MainView{
		window:   window,
		workflow: workflow,
	}

	view.initializeComponents()
	view.buildLayout()

	return view
}

func (mv *MainView) initializeComponents() {
	mv.actions = components.NewActionPanel(mv.workflow)
	mv.statusBar = components.NewStatusBar()
	mv.progressBar = components.NewProgressBar()
}

func (mv *MainView) buildLayout() {
	title := widget.NewLabelWithStyle(mv.workflow.Title, fyne.TextAlignCenter, fyne.TextStyle{Bold: true})

	topArea := container.NewVBox(
		title,
		mv.actions.GetContainer(),
		mv.progressBar.GetContainer(),
	)

	mv.mainContainer = container.NewBorder(
		topArea,                     // top
		mv.statusBar.GetContainer(), // bottom
		nil,                         // left
		nil,                         // right
	)

	mv.window.SetContent(mv.mainContainer)
}

// Event handler setters - called by controller

// SetSelectHandler sets the handler for selection forms
func (mv *MainView) SetSelectHandler(handler func(models.Slot)) {
	mv.actions.SetSelectHandler(handler)
}

// SetTriggerHandler sets the handler for the run button
func (mv *MainView) SetTriggerHandler(handler func()) {
	mv.actions.SetTriggerHandler(handler)
}

// UI update methods - called by controller

// UpdateStatus updates the status element
func (mv *MainView) UpdateStatus(status models.Status) {
	mv.statusBar.SetStatus(status)
}

// UpdateProgress updates the batch progress bar
func (mv *MainView) UpdateProgress(done, total int) {
	mv.progressBar.SetCounts(done, total)
}

// SetProcessingActive updates UI state while a command runs
func (mv *MainView) SetProcessingActive(active bool) {
	mv.actions.SetProcessingActive(active)
	if !mv.workflow.ReportProgress {
		return
	}
	if active {
		mv.progressBar.Reset()
	}
	mv.progressBar.SetVisible(active)
}

// ShowConfirm displays a confirmation dialog
func (mv *MainView) ShowConfirm(title, message string, callback func(bool)) {
	fyne.Do(func() {
		dialog.ShowConfirm(title, message, callback, mv.window)
	})
}

// GetWindow returns the main window
func (mv *MainView) GetWindow() fyne.Window {
	return mv.window
}

// GetContainer returns the main container
func (mv *MainView) GetContainer() *fyne.Container {
	return mv.mainContainer
}

// GetActionPanel returns the selection and run buttons
func (mv *MainView) GetActionPanel() *components.ActionPanel {
	return mv.actions
}

// ViewState is a snapshot of what the view currently shows
type ViewState struct {
	IsProcessing  bool
	StatusMessage string
	StatusIsError bool
	ProgressValue float64
	ProgressStage string
}

// GetViewState returns the current view state
func (mv *MainView) GetViewState() ViewState {
	return ViewState{
		IsProcessing:  mv.actions.IsProcessingActive(),
		StatusMessage: mv.statusBar.GetStatus(),
		StatusIsError: mv.statusBar.IsError(),
		ProgressValue: mv.progressBar.GetProgress(),
		ProgressStage: mv.progressBar.GetStage(),
	}
}
