package components

import (
	"porter/internal/models"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// ActionPanel holds one form per selection of the workflow plus the button
// that runs the command.
type ActionPanel struct {
	container     *fyne.Container
	selectButtons map[models.Slot]*widget.Button
	order         []models.Slot
	triggerButton *widget.Button

	// Event handlers
	selectHandler  func(models.Slot)
	triggerHandler func()

	// State
	processingActive bool
}

// NewActionPanel builds the buttons for workflow.
func NewActionPanel(workflow models.Workflow) *ActionPanel {
	panel := &ActionPanel{
		selectButtons: make(map[models.Slot]*widget.Button),
	}
	panel.createComponents(workflow)
	panel.buildLayout()
	return panel
}

func (p *ActionPanel) createComponents(workflow models.Workflow) {
	for _, sel := range workflow.Selectors {
		slot := sel.Slot
		button := widget.NewButton(sel.Label, func() {
			if p.selectHandler != nil {
				p.selectHandler(slot)
			}
		})
		p.selectButtons[slot] = button
		p.order = append(p.order, slot)
	}

	p.triggerButton = widget.NewButton(workflow.TriggerLabel, func() {
		if p.triggerHandler != nil {
			p.triggerHandler()
		}
	})
	p.triggerButton.Importance = widget.HighImportance
}

func (p *ActionPanel) buildLayout() {
	forms := container.NewVBox()
	for _, slot := range p.order {
		forms.Add(p.selectButtons[slot])
	}

	p.container = container.NewVBox(
		forms,
		widget.NewSeparator(),
		p.triggerButton,
	)
}

// SetSelectHandler sets the handler for selection buttons
func (p *ActionPanel) SetSelectHandler(handler func(models.Slot)) {
	p.selectHandler = handler
}

// SetTriggerHandler sets the handler for the run button
func (p *ActionPanel) SetTriggerHandler(handler func()) {
	p.triggerHandler = handler
}

// SetProcessingActive disables the run button while a command runs.
// Selection buttons stay enabled.
func (p *ActionPanel) SetProcessingActive(active bool) {
	fyne.Do(func() {
		p.processingActive = active
		if active {
			p.triggerButton.Disable()
		} else {
			p.triggerButton.Enable()
		}
	})
}

func (p *ActionPanel) IsProcessingActive() bool {
	return p.processingActive
}

// SelectButton returns the button bound to slot.
func (p *ActionPanel) SelectButton(slot models.Slot) *widget.Button {
	return p.selectButtons[slot]
}

func (p *ActionPanel) TriggerButton() *widget.Button {
	return p.triggerButton
}

// GetContainer returns the panel container
func (p *ActionPanel) GetContainer() *fyne.Container {
	return p.container
}
