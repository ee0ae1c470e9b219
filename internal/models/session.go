package models

import "sync"

// Slot identifies one of the paths a workflow collects before it runs.
type Slot string

const (
	SlotInput       Slot = "input"
	SlotDeclaration Slot = "declaration"
	SlotOutput      Slot = "output"
)

// Selection holds the chosen path per slot. A slot that was never chosen, or
// whose dialog was cancelled, is unset.
type Selection struct {
	mu    sync.RWMutex
	paths map[Slot]string
}

func NewSelection() *Selection {
	return &Selection{paths: make(map[Slot]string)}
}

func (s *Selection) Set(slot Slot, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[slot] = path
}

func (s *Selection) Clear(slot Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.paths, slot)
}

func (s *Selection) Get(slot Slot) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	path, ok := s.paths[slot]
	return path, ok
}

// Snapshot copies the current selection so a running command is not affected
// by later selections.
func (s *Selection) Snapshot() map[Slot]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[Slot]string, len(s.paths))
	for k, v := range s.paths {
		out[k] = v
	}
	return out
}

// HomeDirCache resolves the user's home directory on first use and keeps it
// for the session. Failed lookups are not cached.
type HomeDirCache struct {
	mu      sync.Mutex
	resolve func() (string, error)
	dir     string
}

func NewHomeDirCache(resolve func() (string, error)) *HomeDirCache {
	return &HomeDirCache{resolve: resolve}
}

func (h *HomeDirCache) Get() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dir != "" {
		return h.dir, nil
	}
	dir, err := h.resolve()
	if err != nil {
		return "", err
	}
	h.dir = dir
	return dir, nil
}

type StatusMode int

const (
	StatusInfo StatusMode = iota
	StatusError
)

func (m StatusMode) String() string {
	if m == StatusError {
		return "error"
	}
	return "ok"
}

// Status is the text of the status element and its display mode.
type Status struct {
	Text string
	Mode StatusMode
}

func InfoStatus(text string) Status {
	return Status{Text: text, Mode: StatusInfo}
}

func ErrorStatus(text string) Status {
	return Status{Text: text, Mode: StatusError}
}

func (s Status) IsError() bool {
	return s.Mode == StatusError
}

// StatusRepository keeps the latest status only.
type StatusRepository struct {
	mu      sync.RWMutex
	current Status
}

func NewStatusRepository() *StatusRepository {
	return &StatusRepository{}
}

func (r *StatusRepository) Set(status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = status
}

func (r *StatusRepository) Get() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Session is the controller-owned state of one application run.
type Session struct {
	Selection *Selection
	Home      *HomeDirCache
	Status    *StatusRepository
}

func NewSession(resolveHome func() (string, error)) *Session {
	return &Session{
		Selection: NewSelection(),
		Home:      NewHomeDirCache(resolveHome),
		Status:    NewStatusRepository(),
	}
}
