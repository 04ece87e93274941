package builder

import "fmt"

type Status int

const (
	StatusNoWorkArea Status = iota
	StatusReady
	StatusNoInventory
	StatusNoPermission
	StatusTooNear
	StatusTooFar
	StatusWorldMismatch
	StatusRunning
	StatusPaused
	StatusHalted
	StatusFinished
)

var statusNames = [...]string{
	"NO_WORKAREA",
	"READY",
	"NO_INVENTORY",
	"NO_PERMISSION",
	"TOO_NEAR",
	"TOO_FAR",
	"WORLD_MISMATCH",
	"RUNNING",
	"PAUSED",
	"HALTED",
	"FINISHED",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

func ParseStatus(v string) (Status, error) {
	for i, n := range statusNames {
		if n == v {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown builder status %q", v)
}

// AllStatuses lists every status in declaration order.
func AllStatuses() []Status {
	out := make([]Status, len(statusNames))
	for i := range statusNames {
		out[i] = Status(i)
	}
	return out
}

// ResetsCursor reports whether a start command issued from s rewinds the
// traversal to the starting corner. Interrupted traversals resume in place.
func (s Status) ResetsCursor() bool {
	return s != StatusPaused && s != StatusNoInventory && s != StatusHalted
}

// Geometric reports whether s is a work-area resolution result.
func (s Status) Geometric() bool {
	switch s {
	case StatusNoWorkArea, StatusReady, StatusTooNear, StatusTooFar, StatusWorldMismatch:
		return true
	}
	return false
}
