package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrSkipped is returned by Fire while a previous run is still active.
var ErrSkipped = errors.New("scheduler: run already in progress, skipped")

// Trigger runs fn at most once at a time. Overlapping firings are dropped, not queued.
type Trigger struct {
	name    string
	fn      func(ctx context.Context) error
	running atomic.Bool
	fired   atomic.Int64
	skipped atomic.Int64
}

func NewTrigger(name string, fn func(ctx context.Context) error) *Trigger {
	return &Trigger{name: name, fn: fn}
}

func (t *Trigger) Name() string {
	return t.name
}

// Fire runs fn unless a run is active.
func (t *Trigger) Fire(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		t.skipped.Add(1)
		return ErrSkipped
	}
	defer t.running.Store(false)
	t.fired.Add(1)
	return t.fn(ctx)
}

// Running reports whether a run is active.
func (t *Trigger) Running() bool {
	return t.running.Load()
}

// Stats returns how many firings ran and how many were skipped.
func (t *Trigger) Stats() (fired, skipped int64) {
	return t.fired.Load(), t.skipped.Load()
}
