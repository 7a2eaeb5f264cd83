package index

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get for an absent key.
	ErrNotFound = errors.New("index: document not found")
	// ErrWatermarkRegression rejects a commit that would lower a watermark.
	ErrWatermarkRegression = errors.New("index: watermark regression")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("index: sink closed")
)

// CommitError wraps a failed commit. Nothing from the batch is visible afterwards.
type CommitError struct {
	Ops int
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("index: commit of %d operations failed: %v", e.Ops, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
