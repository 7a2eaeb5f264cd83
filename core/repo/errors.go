package repo

import (
	"errors"
	"fmt"
)

// ErrNotFound matches every NotFoundError.
var ErrNotFound = errors.New("repo: not found")

// NotFoundError reports an id the repository does not know.
type NotFoundError struct {
	Kind string
	ID   int64
	Ref  string
}

func (e *NotFoundError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("repo: %s %s not found", e.Kind, e.Ref)
	}
	return fmt.Sprintf("repo: %s %d not found", e.Kind, e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// FetchError wraps a failed call to the repository. The whole cycle that made the
// call is abandoned and retried on the next schedule.
type FetchError struct {
	Op  string
	ID  int64
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("repo: %s(%d): %v", e.Op, e.ID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err came from the repository transport.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
