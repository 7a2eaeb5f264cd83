package index

import (
	"fmt"
	"time"
)

// IDSpace names one of the two monotonic id logs.
type IDSpace string

const (
	SpaceTx    IDSpace = "TX"
	SpaceAclTx IDSpace = "ACLTX"
)

// Key returns the marker key under which the watermark is published.
func (s IDSpace) Key() string {
	return PrefixState + string(s)
}

// Watermark is the highest id of an id-space whose every item is durably indexed.
type Watermark struct {
	Space            IDSpace   `json:"space"`
	LastIndexedID    int64     `json:"last_indexed_id"`
	LastCommitTimeMs int64     `json:"last_commit_time_ms"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Document renders the watermark as its queryable marker document.
func (w Watermark) Document() Document {
	return Document{
		Key:          w.Space.Key(),
		Type:         DocState,
		Value:        w.LastIndexedID,
		CommitTimeMs: w.LastCommitTimeMs,
		UpdatedAt:    w.UpdatedAt,
	}
}

// CheckAdvance rejects next when it would move the watermark backwards.
// Rewriting the current value is allowed so replays stay idempotent.
func CheckAdvance(current, next Watermark) error {
	if next.LastIndexedID < current.LastIndexedID {
		return fmt.Errorf("%w: %s %d -> %d", ErrWatermarkRegression, next.Space, current.LastIndexedID, next.LastIndexedID)
	}
	return nil
}
