package metadata

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/reconcile"
	"github.com/Alfresco/SearchServices-sub009/core/repo"
	"github.com/Alfresco/SearchServices-sub009/core/shard"

	"go.uber.org/zap"
)

// Name is the tracker name used by the scheduler and admin routes.
const Name = "metadata"

// PropertyFilter decides which properties are written to node documents.
type PropertyFilter interface {
	Indexed(qname string) bool
}

// Tracker indexes transactions: one document per owned node, an error marker
// per node that could not be indexed, and a TX marker per transaction.
type Tracker struct {
	src      repo.Source
	sink     index.Sink
	policy   shard.Policy
	instance int
	filter   PropertyFilter
	log      *zap.Logger

	mu      sync.Mutex
	current shard.Policy
}

var (
	_ reconcile.Adapter    = (*Tracker)(nil)
	_ reconcile.CycleHooks = (*Tracker)(nil)
	_ reconcile.Reindexer  = (*Tracker)(nil)
)

// New returns a metadata tracker for shard instance. filter may be nil.
func New(src repo.Source, sink index.Sink, policy shard.Policy, instance int, filter PropertyFilter, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		src:      src,
		sink:     sink,
		policy:   policy,
		instance: instance,
		filter:   filter,
		log:      log.With(zap.String("tracker", Name)),
	}
}

func (t *Tracker) Name() string                 { return Name }
func (t *Tracker) Kind() reconcile.Kind         { return reconcile.KindMetadata }
func (t *Tracker) Space() (index.IDSpace, bool) { return index.SpaceTx, true }

// BeforeCycle freezes the shard policy so a concurrent range expansion does
// not change ownership halfway through a cycle.
func (t *Tracker) BeforeCycle(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = shard.Stable(t.policy)
	return nil
}

func (t *Tracker) AfterCycle(ctx context.Context, res reconcile.CycleResult) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = nil
	return nil
}

func (t *Tracker) cyclePolicy() shard.Policy {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		return t.current
	}
	return shard.Stable(t.policy)
}

func (t *Tracker) Fetch(ctx context.Context, after int64, limit int) ([]reconcile.Unit, error) {
	txns, err := t.src.GetTransactions(ctx, after, limit)
	if err != nil {
		return nil, err
	}
	units := make([]reconcile.Unit, 0, len(txns))
	for _, txn := range txns {
		units = append(units, reconcile.Unit{ID: txn.ID, CommitTimeMs: txn.CommitTimeMs, Payload: txn})
	}
	return units, nil
}

func (t *Tracker) Apply(ctx context.Context, u reconcile.Unit, b *index.Batch) (reconcile.Outcome, error) {
	txn, ok := u.Payload.(repo.Transaction)
	if !ok {
		return reconcile.Outcome{}, fmt.Errorf("metadata: unexpected payload %T", u.Payload)
	}
	return t.indexTransaction(ctx, txn, t.cyclePolicy(), b)
}

func (t *Tracker) indexTransaction(ctx context.Context, txn repo.Transaction, p shard.Policy, b *index.Batch) (reconcile.Outcome, error) {
	var out reconcile.Outcome
	nodes, err := t.src.GetNodes(ctx, txn.ID)
	if err != nil {
		return out, err
	}
	for _, n := range nodes {
		o, err := t.indexNode(ctx, n, txn.CommitTimeMs, p, b)
		if err != nil {
			return out, err
		}
		out.Add(o)
	}
	b.Upsert(index.Document{
		Key:          index.TxKey(txn.ID),
		Type:         index.DocTx,
		TxnID:        txn.ID,
		CommitTimeMs: txn.CommitTimeMs,
		Value:        int64(len(nodes)),
	})
	return out, nil
}

// indexNode stages the document or the error marker of one node, never both.
// Only repository transport errors are returned; everything else is isolated
// in an error marker.
func (t *Tracker) indexNode(ctx context.Context, n repo.Node, commitTimeMs int64, p shard.Policy, b *index.Batch) (reconcile.Outcome, error) {
	var out reconcile.Outcome

	if n.Status == repo.StatusDeleted {
		t.remove(b, n.ID)
		out.Deleted++
		return out, nil
	}

	var md *repo.NodeMetadata
	if p.NeedsMetadata() {
		m, err := t.src.GetNodeMetadata(ctx, n.NodeRef)
		if err != nil {
			return t.failed(ctx, b, n, err)
		}
		md = &m
	}
	if !p.Owns(t.instance, n, md) {
		// The node may have been owned under an earlier version.
		t.remove(b, n.ID)
		out.Skipped++
		return out, nil
	}
	if md == nil {
		m, err := t.src.GetNodeMetadata(ctx, n.NodeRef)
		if err != nil {
			return t.failed(ctx, b, n, err)
		}
		md = &m
	}

	prev, err := t.previous(ctx, b, index.NodeKey(n.ID))
	if err != nil {
		return out, err
	}
	doc := t.document(n, *md, commitTimeMs, prev)
	b.Delete(index.ErrorKey(n.ID))
	b.Upsert(doc)
	out.Written++
	return out, nil
}

func (t *Tracker) remove(b *index.Batch, id int64) {
	b.Delete(index.NodeKey(id))
	b.Delete(index.ErrorKey(id))
}

// failed stages an error marker for n, or returns err when the repository
// itself is unreachable.
func (t *Tracker) failed(ctx context.Context, b *index.Batch, n repo.Node, err error) (reconcile.Outcome, error) {
	if repo.IsFetchError(err) {
		return reconcile.Outcome{}, err
	}
	if errors.Is(err, repo.ErrNotFound) {
		t.remove(b, n.ID)
		return reconcile.Outcome{Deleted: 1}, nil
	}

	attempts := 1
	prev, lookupErr := t.previous(ctx, b, index.ErrorKey(n.ID))
	if lookupErr != nil {
		return reconcile.Outcome{}, lookupErr
	}
	if prev != nil {
		attempts = prev.Attempts + 1
	}
	b.Delete(index.NodeKey(n.ID))
	b.Upsert(index.Document{
		Key:      index.ErrorKey(n.ID),
		Type:     index.DocError,
		NodeID:   n.ID,
		NodeRef:  n.NodeRef,
		TxnID:    n.TxnID,
		AclID:    n.AclID,
		Error:    err.Error(),
		Attempts: attempts,
	})
	t.log.Warn("Node indexing failed", zap.Int64("node", n.ID), zap.Int64("txn", n.TxnID), zap.Int("attempts", attempts), zap.Error(err))
	return reconcile.Outcome{Errors: 1}, nil
}

// previous returns the staged or stored document under key, or nil.
func (t *Tracker) previous(ctx context.Context, b *index.Batch, key string) (*index.Document, error) {
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

func (t *Tracker) document(n repo.Node, md repo.NodeMetadata, commitTimeMs int64, prev *index.Document) index.Document {
	doc := index.Document{
		Key:          index.NodeKey(n.ID),
		Type:         index.DocNode,
		NodeID:       n.ID,
		NodeRef:      n.NodeRef,
		TxnID:        n.TxnID,
		AclID:        n.AclID,
		CommitTimeMs: commitTimeMs,
		NodeType:     md.Type,
		Owner:        md.Owner,
		Ancestors:    slices.Clone(md.Ancestors),
		Properties:   make(map[string][]string, len(md.Properties)),
	}
	for qname, v := range md.Properties {
		if t.filter != nil && !t.filter.Indexed(qname) {
			continue
		}
		if s := v.Strings(); len(s) > 0 {
			doc.Properties[qname] = slices.Clone(s)
		}
	}

	if md.IsContentIndexed {
		for _, qname := range md.ContentProperties() {
			if t.filter != nil && !t.filter.Indexed(qname) {
				continue
			}
			v := md.Properties[qname]
			if v.Content == nil || v.Content.URL == "" {
				continue
			}
			if doc.ContentURLs == nil {
				doc.ContentURLs = make(map[string]string)
			}
			doc.ContentProps = append(doc.ContentProps, qname)
			doc.ContentURLs[qname] = v.Content.URL
		}
		if len(doc.ContentProps) > 0 {
			doc.ContentStatus = index.ContentDirty
			// Unchanged content keeps its extracted text.
			if prev != nil && prev.ContentStatus == index.ContentClean && sameURLs(prev.ContentURLs, doc.ContentURLs) {
				doc.ContentStatus = index.ContentClean
				doc.Content = prev.Content
				doc.ContentRef = prev.ContentRef
			}
		}
	}

	if prev != nil {
		doc.CascadePending = prev.CascadePending || !slices.Equal(prev.Ancestors, doc.Ancestors)
	}
	return doc
}

func sameURLs(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func (t *Tracker) Handles(kind reconcile.TargetKind) bool {
	return kind == reconcile.TargetTransaction || kind == reconcile.TargetNode
}

// Reindex rewrites a transaction or a single node out of band. Any stored
// document or error marker is replaced.
func (t *Tracker) Reindex(ctx context.Context, target reconcile.Target, mode reconcile.Mode, b *index.Batch) (reconcile.Outcome, error) {
	p := shard.Stable(t.policy)
	switch target.Kind {
	case reconcile.TargetTransaction:
		txn, err := repo.GetTransaction(ctx, t.src, target.ID)
		if err != nil {
			return reconcile.Outcome{}, err
		}
		return t.indexTransaction(ctx, txn, p, b)

	case reconcile.TargetNode:
		n, err := t.src.GetNode(ctx, target.ID)
		if errors.Is(err, repo.ErrNotFound) {
			t.remove(b, target.ID)
			return reconcile.Outcome{Deleted: 1}, nil
		}
		if err != nil {
			return reconcile.Outcome{}, err
		}
		var commitTimeMs int64
		if txn, err := repo.GetTransaction(ctx, t.src, n.TxnID); err == nil {
			commitTimeMs = txn.CommitTimeMs
		}
		return t.indexNode(ctx, n, commitTimeMs, p, b)
	}
	return reconcile.Outcome{}, fmt.Errorf("%w: %s", reconcile.ErrNoHandler, target.Kind)
}
