package reconcile

import (
	"context"

	"github.com/Alfresco/SearchServices-sub009/core/index"
)

// Adapter is the tracker-specific half of a cycle. The engine owns ordering,
// batching, commits and watermarks; the adapter fetches and applies units.
type Adapter interface {
	// Name is unique per core, e.g. "acl" or "metadata".
	Name() string

	Kind() Kind

	// Space is the id space whose watermark this adapter advances. Adapters
	// without one page with a cursor that lives for a single cycle.
	Space() (index.IDSpace, bool)

	// Fetch returns up to limit units with an id strictly greater than after,
	// in ascending id order. An error aborts the cycle without any write.
	Fetch(ctx context.Context, after int64, limit int) ([]Unit, error)

	// Apply stages the documents of unit into batch. Per-item failures are
	// staged as error node markers and reported in the Outcome; a returned
	// error aborts the cycle before commit.
	Apply(ctx context.Context, unit Unit, batch *index.Batch) (Outcome, error)
}

// CycleHooks is implemented by adapters that prepare or finish a cycle.
type CycleHooks interface {
	BeforeCycle(ctx context.Context) error
	AfterCycle(ctx context.Context, result CycleResult) error
}

// Reindexer is implemented by adapters that can rewrite one entity out of band.
type Reindexer interface {
	// Handles reports whether the adapter owns targets of kind.
	Handles(kind TargetKind) bool
	Reindex(ctx context.Context, target Target, mode Mode, batch *index.Batch) (Outcome, error)
}

// Completer is implemented by adapters that finish a node document another
// adapter staged, such as content extraction. Retry calls it after the node
// has been reindexed so a marker left by a later stage is retried as well.
type Completer interface {
	Complete(ctx context.Context, nodeID int64, batch *index.Batch) (Outcome, error)
}
