package cascade

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/reconcile"

	"go.uber.org/zap"
)

// Name is the tracker name used by the scheduler and admin routes.
const Name = "cascade"

// Tracker rewrites the ancestor paths of descendants of moved or renamed
// nodes, so ancestor queries stay correct without reindexing the subtree.
type Tracker struct {
	sink index.Sink
	log  *zap.Logger
}

var _ reconcile.Adapter = (*Tracker)(nil)

func New(sink index.Sink, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{sink: sink, log: log.With(zap.String("tracker", Name))}
}

func (t *Tracker) Name() string                 { return Name }
func (t *Tracker) Kind() reconcile.Kind         { return reconcile.KindCascade }
func (t *Tracker) Space() (index.IDSpace, bool) { return "", false }

func (t *Tracker) Fetch(ctx context.Context, after int64, limit int) ([]reconcile.Unit, error) {
	docs, err := t.sink.Find(ctx, index.Query{Type: index.DocNode, CascadePending: true, AfterNodeID: after, Limit: limit})
	if err != nil {
		return nil, err
	}
	units := make([]reconcile.Unit, 0, len(docs))
	for _, d := range docs {
		units = append(units, reconcile.Unit{ID: d.NodeID, CommitTimeMs: d.CommitTimeMs, Payload: d.Key})
	}
	return units, nil
}

// Apply gives every descendant of the pending node the node's current path as
// its prefix, then clears the flag. Each write is guarded on the document it
// was derived from; a metadata commit of the same node in between wins, and
// a parent whose clear was dropped stays pending for the next cycle.
func (t *Tracker) Apply(ctx context.Context, u reconcile.Unit, b *index.Batch) (reconcile.Outcome, error) {
	var out reconcile.Outcome
	key, ok := u.Payload.(string)
	if !ok {
		return out, fmt.Errorf("cascade: unexpected payload %T", u.Payload)
	}

	parent, err := t.current(ctx, b, key)
	if err != nil {
		return out, err
	}
	if parent == nil || !parent.CascadePending {
		out.Skipped++
		return out, nil
	}

	prefix := append(slices.Clone(parent.Ancestors), parent.NodeRef)
	descendants, err := t.sink.Find(ctx, index.Query{Type: index.DocNode, Ancestor: parent.NodeRef})
	if err != nil {
		return out, err
	}
	for _, found := range descendants {
		d, err := t.current(ctx, b, found.Key)
		if err != nil {
			return out, err
		}
		if d == nil {
			continue
		}
		i := slices.Index(d.Ancestors, parent.NodeRef)
		if i < 0 {
			continue
		}
		path := append(slices.Clone(prefix), d.Ancestors[i+1:]...)
		if slices.Equal(path, d.Ancestors) {
			continue
		}
		updated := *d
		updated.Ancestors = path
		b.UpsertIf(updated, index.GuardOf(*d))
		out.Written++
	}

	cleared := *parent
	cleared.CascadePending = false
	b.UpsertIf(cleared, index.GuardOf(*parent))
	t.log.Debug("Cascaded ancestor path", zap.Int64("node", parent.NodeID), zap.Int("descendants", out.Written))
	return out, nil
}

// current returns the staged or stored document under key, or nil.
func (t *Tracker) current(ctx context.Context, b *index.Batch, key string) (*index.Document, error) {
	if d, staged := b.Lookup(key); staged {
		return d, nil
	}
	d, err := t.sink.Get(ctx, key)
	if errors.Is(err, index.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
