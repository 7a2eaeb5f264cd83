package shard

import "errors"

// ErrNotRangePolicy is returned by range operations on other methods.
var ErrNotRangePolicy = errors.New("shard: method does not use DBID ranges")

// Expansion rejection reasons.
const (
	ReasonNotInitialized  = "DBID range not initialized yet."
	ReasonAlreadyExpanded = "dbid range has already been expanded."
	ReasonAboveSafe       = "Expansion cannot occur if max DBID in the index is more than 75% of range"
)

// ExpansionError is a rejected range expansion. No state was changed.
type ExpansionError struct {
	Reason string
	// Err is set when publishing the new cap failed.
	Err error
}

func (e *ExpansionError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *ExpansionError) Unwrap() error {
	return e.Err
}
