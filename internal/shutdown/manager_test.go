package shutdown

import (
	"sync"
	"testing"
	"time"

	"porter/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownReverseOrder(t *testing.T) {
	m := NewManager(logger.Nop())

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) Func {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		}
	}

	m.Register("bus", record("bus"))
	m.Register("controller", record("controller"))
	m.Register("metrics", record("metrics"))

	m.Shutdown()

	assert.Equal(t, []string{"metrics", "controller", "bus"}, order)
}

func TestShutdownRunsOnce(t *testing.T) {
	m := NewManager(nil)

	calls := 0
	m.Register("counter", Func(func() { calls++ }))

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, 1, calls)
}

func TestShutdownTimeoutMovesOn(t *testing.T) {
	m := NewManager(logger.Nop())
	m.SetTimeout(20 * time.Millisecond)
	m.SetTimeout(0)

	release := make(chan struct{})
	defer close(release)

	stopped := false
	m.Register("fast", Func(func() { stopped = true }))
	m.Register("stuck", Func(func() { <-release }))

	finished := make(chan struct{})
	go func() {
		m.Shutdown()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown blocked on a stuck component")
	}
	require.True(t, stopped)
}
