package events

import "fmt"

// Notification types pushed by the command backend while it works.
const (
	TypeWork = "work"
	TypeSkip = "skip"
)

// WorkProgress is the payload of a work notification.
type WorkProgress struct {
	Done  int
	Total int
}

func (w WorkProgress) String() string {
	return fmt.Sprintf("%d/%d", w.Done, w.Total)
}

// Skipped is the payload of a skip notification: the item already had an
// output and was not produced again.
type Skipped struct {
	Item string
}
