package controllers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"porter/internal/backend"
	"porter/internal/events"
	"porter/internal/logger"
	"porter/internal/models"
)

// ErrBusy is returned when a command is triggered while another one of the
// same controller is still running.
var ErrBusy = errors.New("a command is already running")

const (
	nothingSelected = "Nothing selected."
	openResultTitle = "Open result"
	openResultText  = "Open the resulting file?"
)

// MainController drives one workflow: it fills the workflow's slots through
// host dialogs, runs the backend command and reports into the view.
type MainController struct {
	workflow models.Workflow
	session  *models.Session

	invoker    backend.Invoker
	host       Host
	subscriber Subscriber
	logger     logger.Logger

	// Views
	mu       sync.RWMutex
	mainView View

	// State management
	busy          atomic.Bool
	lastRun       time.Time
	subscriptions events.Group

	// Lifetime of handlers dispatched from the view
	ctx      context.Context
	cancel   context.CancelFunc
	handlers sync.WaitGroup
}

func NewMainController(
	workflow models.Workflow,
	invoker backend.Invoker,
	host Host,
	subscriber Subscriber,
	log logger.Logger,
) *MainController {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &MainController{
		workflow:   workflow,
		session:    models.NewSession(host.HomeDir),
		invoker:    invoker,
		host:       host,
		subscriber: subscriber,
		logger:     log,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SetMainView associates the main view with this controller
func (mc *MainController) SetMainView(view View) {
	mc.mu.Lock()
	mc.mainView = view
	mc.mu.Unlock()

	mc.setupViewEventHandlers()
}

// Start acquires the notification subscriptions the workflow needs. They stay
// active until Shutdown.
func (mc *MainController) Start() {
	if !mc.workflow.ReportProgress || mc.subscriber == nil {
		return
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if len(mc.subscriptions) > 0 {
		return
	}
	mc.subscriptions = events.Group{
		mc.subscriber.Subscribe(events.TypeWork, mc.onWork),
		mc.subscriber.Subscribe(events.TypeSkip, mc.onSkip),
	}
	mc.logger.Debug("Controller", "progress subscriptions acquired", map[string]interface{}{
		"workflow": mc.workflow.Name,
	})
}

// Workflow returns the workflow driven by this controller.
func (mc *MainController) Workflow() models.Workflow {
	return mc.workflow
}

// Session exposes the controller-owned state.
func (mc *MainController) Session() *models.Session {
	return mc.session
}

// Status returns the status currently shown.
func (mc *MainController) Status() models.Status {
	return mc.session.Status.Get()
}

func (mc *MainController) IsBusy() bool {
	return mc.busy.Load()
}

// Select fills slot through its dialog. A cancelled dialog leaves the slot
// unset. Selecting never runs a backend command.
func (mc *MainController) Select(ctx context.Context, slot models.Slot) error {
	selector, ok := mc.workflow.Selector(slot)
	if !ok {
		return fmt.Errorf("workflow %s has no %s selection", mc.workflow.Name, slot)
	}

	dir := ""
	if selector.Dialog.StartAtHome {
		home, err := mc.session.Home.Get()
		if err != nil {
			mc.logger.Warning("Controller", "home directory unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		}
		dir = home
	}

	path, ok, err := mc.host.PickPath(ctx, selector.Dialog, dir)
	if err != nil {
		mc.handleError("Dialog failed", err)
		return fmt.Errorf("select %s: %w", slot, err)
	}

	if !ok || path == "" {
		mc.session.Selection.Clear(slot)
		mc.setStatus(models.InfoStatus(nothingSelected))
		mc.logger.Debug("Controller", "selection cancelled", map[string]interface{}{
			"slot": string(slot),
		})
		return nil
	}

	mc.session.Selection.Set(slot, path)
	mc.setStatus(models.InfoStatus(selector.Confirmation))
	mc.logger.Info("Controller", "path selected", map[string]interface{}{
		"slot": string(slot),
		"path": path,
	})
	return nil
}

// Trigger runs the workflow's command with the current selection and reports
// the outcome. It returns ErrBusy if a previous run has not finished, and the
// backend error when the command failed.
func (mc *MainController) Trigger(ctx context.Context) error {
	if !mc.busy.CompareAndSwap(false, true) {
		mc.logger.Warning("Controller", "trigger rejected while busy", map[string]interface{}{
			"command": string(mc.workflow.Command),
		})
		return ErrBusy
	}
	defer mc.busy.Store(false)

	mc.setProcessingActive(true)
	defer mc.setProcessingActive(false)

	paths := mc.session.Selection.Snapshot()
	payload := mc.workflow.Payload(paths)

	if mc.workflow.StartMessage != "" {
		mc.setStatus(models.InfoStatus(mc.workflow.StartMessage))
	}

	fields := map[string]interface{}{
		"command": string(mc.workflow.Command),
		"slots":   len(paths),
	}
	mc.logger.Info("Controller", "running command", fields)

	start := time.Now()
	result, err := mc.invoker.Invoke(ctx, mc.workflow.Command, payload)
	fields["duration_ms"] = time.Since(start).Milliseconds()

	mc.mu.Lock()
	mc.lastRun = start
	mc.mu.Unlock()

	if err != nil {
		fields["kind"] = string(backend.Classify(err))
		mc.logger.Error("Controller", err, fields)
		mc.setStatus(models.ErrorStatus(mc.workflow.FailureMessage(err)))
		return err
	}

	if mc.workflow.DetectSoftFailure && result.SoftFailure() {
		fields["soft_failure"] = true
		mc.logger.Warning("Controller", "command completed with a failure report", fields)
		mc.setStatus(models.ErrorStatus(result.Text))
		return nil
	}

	mc.logger.Info("Controller", "command finished", fields)
	mc.setStatus(models.InfoStatus(result.Text))

	if mc.workflow.OfferOpenResult {
		mc.offerOpenResult(ctx, paths[models.SlotOutput])
	}
	return nil
}

// LastRun returns when the last command started, zero if none did.
func (mc *MainController) LastRun() time.Time {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.lastRun
}

func (mc *MainController) offerOpenResult(ctx context.Context, output string) {
	if output == "" {
		return
	}

	confirmed, err := mc.host.Confirm(ctx, openResultTitle, openResultText)
	if err != nil {
		mc.logger.Warning("Controller", "confirmation dialog failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if !confirmed {
		return
	}

	if err := mc.host.OpenWithDefault(output); err != nil {
		mc.handleError("Open failed", fmt.Errorf("open %s: %w", output, err))
	}
}

// HandleSelect and HandleTrigger are the view callbacks. They run the action
// off the UI thread, bound to the controller's lifetime.
func (mc *MainController) HandleSelect(slot models.Slot) {
	mc.dispatch(func(ctx context.Context) {
		_ = mc.Select(ctx, slot)
	})
}

func (mc *MainController) HandleTrigger() {
	mc.dispatch(func(ctx context.Context) {
		_ = mc.Trigger(ctx)
	})
}

func (mc *MainController) dispatch(fn func(ctx context.Context)) {
	mc.mu.RLock()
	if mc.ctx.Err() != nil {
		mc.mu.RUnlock()
		return
	}
	mc.handlers.Add(1)
	mc.mu.RUnlock()

	go func() {
		defer mc.handlers.Done()
		fn(mc.ctx)
	}()
}

// setupViewEventHandlers connects view events to controller methods
func (mc *MainController) setupViewEventHandlers() {
	view := mc.view()
	if view == nil {
		return
	}

	view.SetSelectHandler(mc.HandleSelect)
	view.SetTriggerHandler(mc.HandleTrigger)
}

func (mc *MainController) onWork(event events.Event) {
	progress, ok := event.Data.(events.WorkProgress)
	if !ok {
		mc.logger.Warning("Controller", "unexpected work payload", map[string]interface{}{
			"type": fmt.Sprintf("%T", event.Data),
		})
		return
	}

	mc.setStatus(models.InfoStatus(fmt.Sprintf("%d out of %d images have been produced.", progress.Done, progress.Total)))
	if view := mc.view(); view != nil {
		view.UpdateProgress(progress.Done, progress.Total)
	}
}

func (mc *MainController) onSkip(event events.Event) {
	skipped, ok := event.Data.(events.Skipped)
	if !ok {
		mc.logger.Warning("Controller", "unexpected skip payload", map[string]interface{}{
			"type": fmt.Sprintf("%T", event.Data),
		})
		return
	}

	mc.setStatus(models.InfoStatus(fmt.Sprintf("image %s was skipped (already exists).", skipped.Item)))
}

func (mc *MainController) setStatus(status models.Status) {
	mc.session.Status.Set(status)
	if view := mc.view(); view != nil {
		view.UpdateStatus(status)
	}
}

func (mc *MainController) setProcessingActive(active bool) {
	if view := mc.view(); view != nil {
		view.SetProcessingActive(active)
	}
}

func (mc *MainController) view() View {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.mainView
}

// handleError reports err in the status element and the log
func (mc *MainController) handleError(title string, err error) {
	mc.logger.Error("Controller", err, map[string]interface{}{
		"context": title,
	})
	mc.setStatus(models.ErrorStatus(err.Error()))
}

// Shutdown releases the notification subscriptions and waits for handlers
// still running.
func (mc *MainController) Shutdown() {
	mc.mu.Lock()
	mc.cancel()
	subs := mc.subscriptions
	mc.subscriptions = nil
	mc.mu.Unlock()
	subs.Release()

	mc.handlers.Wait()
	mc.logger.Debug("Controller", "controller stopped", map[string]interface{}{
		"workflow": mc.workflow.Name,
	})
}
