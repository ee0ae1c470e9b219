package metrics

import (
	"context"
	"time"

	"porter/internal/backend"
	"porter/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

// Command outcomes
const (
	OutcomeOK          = "ok"
	OutcomeSoftFailure = "soft_failure"
	OutcomeError       = "error"
)

// Subscriber is the part of the event bus the notification counter needs.
type Subscriber interface {
	Subscribe(eventType string, handler events.Handler) *events.Subscription
}

type Metrics struct {
	registry      *prometheus.Registry
	commands      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "porter_commands_total",
				Help: "Total number of backend commands by outcome",
			},
			[]string{"command", "outcome"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "porter_notifications_total",
				Help: "Total number of backend notifications received",
			},
			[]string{"event"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "porter_command_duration_seconds",
				Help:    "Duration of backend commands",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"command"},
		),
	}
	m.registry.MustRegister(m.commands, m.notifications, m.duration)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Instrument returns an invoker that records every call made through next.
func (m *Metrics) Instrument(next backend.Invoker) backend.Invoker {
	return backend.InvokerFunc(func(ctx context.Context, cmd backend.Command, payload backend.Payload) (backend.Result, error) {
		start := time.Now()
		result, err := next.Invoke(ctx, cmd, payload)
		m.duration.WithLabelValues(string(cmd)).Observe(time.Since(start).Seconds())
		m.commands.WithLabelValues(string(cmd), outcome(result, err)).Inc()
		return result, err
	})
}

// CountNotifications subscribes to the progress events. Release the returned
// group to stop counting.
func (m *Metrics) CountNotifications(sub Subscriber) events.Group {
	count := func(event events.Event) {
		m.notifications.WithLabelValues(event.Type).Inc()
	}
	return events.Group{
		sub.Subscribe(events.TypeWork, count),
		sub.Subscribe(events.TypeSkip, count),
	}
}

func outcome(result backend.Result, err error) string {
	switch {
	case err != nil:
		return OutcomeError
	case result.SoftFailure():
		return OutcomeSoftFailure
	default:
		return OutcomeOK
	}
}
