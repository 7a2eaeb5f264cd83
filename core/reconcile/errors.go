package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a cycle of the same tracker is already running.
	ErrBusy = errors.New("reconcile: tracker cycle already running")
	// ErrUnknownTracker is returned for a tracker name the core does not host.
	ErrUnknownTracker = errors.New("reconcile: unknown tracker")
	// ErrNoHandler is returned when no adapter can reindex a target kind.
	ErrNoHandler = errors.New("reconcile: no tracker handles target")
	// ErrNotConfirmed is returned by ApplyPurge without confirmation.
	ErrNotConfirmed = errors.New("reconcile: purge not confirmed")
)

// GenerationError means a commit succeeded but the sink does not yet report it.
type GenerationError struct {
	Want int64
	Got  int64
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("reconcile: committed generation %d not visible, sink reports %d", e.Want, e.Got)
}
