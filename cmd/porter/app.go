package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync/atomic"

	"porter/internal/backend"
	"porter/internal/config"
	"porter/internal/controllers"
	"porter/internal/events"
	"porter/internal/logger"
	"porter/internal/metrics"
	"porter/internal/models"
	"porter/internal/platform"
	"porter/internal/shutdown"
	"porter/internal/views"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
)

const eventBufferSize = 256

// Application wires the window, the controller and the backend together.
type Application struct {
	// Core components
	fyneApp fyne.App
	window  fyne.Window
	logger  logger.Logger
	config  *config.Config

	// MVC Components
	controller *controllers.MainController
	view       *views.MainView

	// Backend
	bus     *events.Bus
	invoker *backend.ExecInvoker
	metrics *metrics.Metrics
	server  *metrics.Server

	// Lifecycle management
	shutdown  *shutdown.Manager
	uiStopped atomic.Bool
}

func runShell(cfg *config.Config) error {
	appLogger := logger.New(cfg.LogLevel, logger.Format(strings.ToLower(cfg.LogFormat)), os.Stderr)

	application, err := NewApplication(cfg, appLogger)
	if err != nil {
		appLogger.Error("Application", err, map[string]interface{}{
			"stage": "init",
		})
		return err
	}

	return application.Run()
}

// NewApplication creates and initializes the application using dependency injection
func NewApplication(cfg *config.Config, appLogger *logger.ZerologAdapter) (*Application, error) {
	workflow, err := models.LookupWorkflow(cfg.Workflow)
	if err != nil {
		return nil, err
	}

	fyneApp := app.NewWithID(AppID)
	app.SetMetadata(fyne.AppMetadata{
		ID:      AppID,
		Name:    AppName,
		Version: AppVersion,
	})

	window := fyneApp.NewWindow(fmt.Sprintf("%s - %s", AppName, workflow.Title))
	window.Resize(fyne.NewSize(640, 360))
	window.CenterOnScreen()

	appLogger.Info("Application", "application starting", map[string]interface{}{
		"version":    AppVersion,
		"workflow":   workflow.Name,
		"dialogs":    cfg.Dialogs,
		"go_version": runtime.Version(),
		"log_level":  cfg.LogLevel,
	})

	bus := events.NewBus(eventBufferSize, events.WithPanicHandler(func(eventType string, recovered interface{}) {
		appLogger.Warning("EventBus", "notification handler panicked", map[string]interface{}{
			"event": eventType,
			"panic": fmt.Sprint(recovered),
		})
	}))

	invoker := backend.NewExecInvoker(
		backend.WithRegistry(cfg.Registry()),
		backend.WithPublisher(bus),
		backend.WithLogger(appLogger),
		backend.WithTimeout(cfg.CommandTimeout),
		backend.WithBaseDir(cfg.BaseDir),
	)
	appMetrics := metrics.New()

	var host controllers.Host
	if strings.EqualFold(cfg.Dialogs, config.DialogsNative) {
		host = platform.NewNativeHost()
	} else {
		host = views.NewFyneHost(fyneApp, window)
	}

	mainController := controllers.NewMainController(
		workflow,
		appMetrics.Instrument(invoker),
		host,
		bus,
		appLogger.With(map[string]interface{}{"workflow": workflow.Name}),
	)
	mainView := views.NewMainView(window, workflow)
	mainController.SetMainView(mainView)

	application := &Application{
		fyneApp:    fyneApp,
		window:     window,
		logger:     appLogger,
		config:     cfg,
		controller: mainController,
		view:       mainView,
		bus:        bus,
		invoker:    invoker,
		metrics:    appMetrics,
		shutdown:   shutdown.NewManager(appLogger),
	}
	application.shutdown.SetTimeout(cfg.ShutdownTimeout)

	if cfg.MetricsAddr != "" {
		server, err := metrics.NewServer(cfg.MetricsAddr, appMetrics, appLogger)
		if err != nil {
			bus.Shutdown()
			return nil, err
		}
		application.server = server
	}

	application.registerShutdown()
	application.setupWindowEvents()

	appLogger.Info("Application", "application initialized", map[string]interface{}{
		"commands": len(invoker.Commands()),
		"metrics":  cfg.MetricsAddr != "",
	})

	return application, nil
}

// registerShutdown orders teardown: the controller stops first and the UI
// quits last.
func (a *Application) registerShutdown() {
	a.shutdown.Register("ui", shutdown.Func(func() {
		if !a.uiStopped.Load() {
			fyne.Do(a.fyneApp.Quit)
		}
	}))
	a.shutdown.Register("event bus", a.bus)
	if a.server != nil {
		a.shutdown.Register("metrics server", a.server)
	}
	a.shutdown.Register("notification metrics", shutdown.Func(a.metrics.CountNotifications(a.bus).Release))
	a.shutdown.Register("controller", a.controller)
}

// Run shows the window and blocks until the application quits.
func (a *Application) Run() error {
	a.logger.Info("Application", "starting application UI", nil)

	a.controller.Start()
	if a.server != nil {
		a.server.Start()
	}
	a.shutdown.Listen()

	a.window.Show()
	a.fyneApp.Run()
	a.uiStopped.Store(true)

	a.shutdown.Shutdown()
	a.logger.Info("Application", "application terminated", nil)
	return nil
}

// setupWindowEvents asks before closing while a command is still running.
func (a *Application) setupWindowEvents() {
	a.window.SetCloseIntercept(func() {
		a.logger.Info("Application", "window close requested", map[string]interface{}{
			"busy": a.controller.IsBusy(),
		})

		if !a.controller.IsBusy() {
			a.window.Close()
			return
		}

		a.view.ShowConfirm(
			"Exit Application",
			"A command is still running. Exit anyway?",
			func(confirmed bool) {
				if confirmed {
					a.window.Close()
				}
			},
		)
	})

	a.window.SetOnClosed(func() {
		a.logger.Info("Application", "window closed", nil)
	})
}
