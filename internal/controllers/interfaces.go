package controllers

import (
	"context"

	"porter/internal/events"
	"porter/internal/models"
)

// View renders what the controller decides and forwards user actions back.
type View interface {
	UpdateStatus(status models.Status)
	UpdateProgress(done, total int)
	SetProcessingActive(active bool)

	SetSelectHandler(handler func(models.Slot))
	SetTriggerHandler(handler func())
}

// Host provides the desktop services a workflow needs: path dialogs, a yes/no
// confirmation, opening a file with its default application and the user's
// home directory.
type Host interface {
	// PickPath shows the dialog described by spec, starting in dir when it is
	// not empty. ok is false when the user cancelled.
	PickPath(ctx context.Context, spec models.DialogSpec, dir string) (path string, ok bool, err error)
	Confirm(ctx context.Context, title, message string) (bool, error)
	OpenWithDefault(path string) error
	HomeDir() (string, error)
}

// Subscriber hands out scoped subscriptions to backend notifications.
type Subscriber interface {
	Subscribe(eventType string, handler events.Handler) *events.Subscription
}
