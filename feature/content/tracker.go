package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	cstore "github.com/Alfresco/SearchServices-sub009/core/content"
	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/reconcile"
	"github.com/Alfresco/SearchServices-sub009/core/repo"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Name is the tracker name used by the scheduler and admin routes.
const Name = "content"

// MaxTextBytes caps the extracted text kept per content property.
const MaxTextBytes = 4 << 20

// Tracker fills in the text of node documents marked dirty by the metadata
// tracker. Nodes are paged by id with a cursor that lives for one cycle.
type Tracker struct {
	src     repo.ContentSource
	sink    index.Sink
	store   cstore.Store
	workers int
	log     *zap.Logger
}

var (
	_ reconcile.Adapter   = (*Tracker)(nil)
	_ reconcile.Completer = (*Tracker)(nil)
)

// New returns a content tracker. store may be nil; workers bounds concurrent
// text fetches per batch.
func New(src repo.ContentSource, sink index.Sink, store cstore.Store, workers int, log *zap.Logger) *Tracker {
	if workers < 1 {
		workers = 4
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{src: src, sink: sink, store: store, workers: workers, log: log.With(zap.String("tracker", Name))}
}

func (t *Tracker) Name() string                 { return Name }
func (t *Tracker) Kind() reconcile.Kind         { return reconcile.KindContent }
func (t *Tracker) Space() (index.IDSpace, bool) { return "", false }

// extraction is the text fetched for one dirty document.
type extraction struct {
	doc   index.Document
	texts map[string]string
	refs  map[string]string
	err   error
}

// Fetch selects the next dirty documents and extracts their text concurrently.
// Per-node extraction failures travel in the unit; only index errors fail Fetch.
func (t *Tracker) Fetch(ctx context.Context, after int64, limit int) ([]reconcile.Unit, error) {
	docs, err := t.sink.Find(ctx, index.Query{
		Type:          index.DocNode,
		ContentStatus: index.ContentDirty,
		AfterNodeID:   after,
		Limit:         limit,
	})
	if err != nil {
		return nil, err
	}

	results := make([]*extraction, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for i, d := range docs {
		g.Go(func() error {
			results[i] = t.extract(gctx, d)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	units := make([]reconcile.Unit, 0, len(results))
	for _, ex := range results {
		units = append(units, reconcile.Unit{ID: ex.doc.NodeID, CommitTimeMs: ex.doc.CommitTimeMs, Payload: ex})
	}
	return units, nil
}

func (t *Tracker) extract(ctx context.Context, d index.Document) *extraction {
	ex := &extraction{doc: d, texts: make(map[string]string, len(d.ContentProps)), refs: make(map[string]string, len(d.ContentProps))}
	for _, qname := range d.ContentProps {
		ref := cstore.Ref(d.NodeID, qname, d.ContentURLs[qname])
		text, err := t.text(ctx, d.NodeID, qname, ref)
		if err != nil {
			ex.err = fmt.Errorf("%s: %w", qname, err)
			return ex
		}
		ex.texts[qname] = text
		ex.refs[qname] = ref
	}
	return ex
}

// text returns the cached text of ref, fetching and caching it on a miss.
func (t *Tracker) text(ctx context.Context, nodeID int64, qname, ref string) (string, error) {
	if t.store != nil {
		text, err := t.store.Get(ctx, ref)
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, cstore.ErrNotFound) {
			t.log.Warn("Content cache read failed", zap.String("ref", ref), zap.Error(err))
		}
	}

	rc, err := t.src.GetTextContent(ctx, nodeID, qname)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, MaxTextBytes))
	if err != nil {
		return "", err
	}
	text := string(b)

	if t.store != nil {
		if err := t.store.Put(ctx, ref, text); err != nil {
			t.log.Warn("Content cache write failed", zap.String("ref", ref), zap.Error(err))
		}
	}
	return text, nil
}

// Apply writes the extracted text unless the node changed since Fetch. A
// failed extraction replaces the node document with an error marker. Both
// writes are guarded on the document Fetch read, so a metadata commit landing
// before this batch wins and the node is picked up again.
func (t *Tracker) Apply(ctx context.Context, u reconcile.Unit, b *index.Batch) (reconcile.Outcome, error) {
	ex, ok := u.Payload.(*extraction)
	if !ok {
		return reconcile.Outcome{}, fmt.Errorf("content: unexpected payload %T", u.Payload)
	}
	if ex.err != nil && repo.IsFetchError(ex.err) {
		return reconcile.Outcome{}, ex.err
	}

	current, err := t.sink.Get(ctx, ex.doc.Key)
	if errors.Is(err, index.ErrNotFound) {
		return reconcile.Outcome{Skipped: 1}, nil
	}
	if err != nil {
		return reconcile.Outcome{}, err
	}
	if current.TxnID != ex.doc.TxnID || current.ContentStatus != index.ContentDirty || !sameURLs(current.ContentURLs, ex.doc.ContentURLs) {
		return reconcile.Outcome{Skipped: 1}, nil
	}

	guard := index.GuardOf(current)
	if ex.err != nil {
		t.markFailed(b, current, 1, ex.err, guard)
		return reconcile.Outcome{Errors: 1}, nil
	}
	b.UpsertIf(cleaned(current, ex), guard)
	return reconcile.Outcome{Written: 1}, nil
}

// markFailed stages an error marker in place of the node document.
func (t *Tracker) markFailed(b *index.Batch, d index.Document, attempts int, cause error, g *index.Guard) {
	t.log.Warn("Content extraction failed", zap.Int64("node", d.NodeID), zap.Int("attempts", attempts), zap.Error(cause))
	b.DeleteIf(d.Key, g)
	b.UpsertIf(index.Document{
		Key:      index.ErrorKey(d.NodeID),
		Type:     index.DocError,
		NodeID:   d.NodeID,
		NodeRef:  d.NodeRef,
		TxnID:    d.TxnID,
		AclID:    d.AclID,
		Error:    "content: " + cause.Error(),
		Attempts: attempts,
	}, g)
}

func cleaned(d index.Document, ex *extraction) index.Document {
	d.Content = ex.texts
	d.ContentStatus = index.ContentClean
	d.ContentRef = firstRef(ex.refs)
	return d
}

// Complete extracts the text of a node document staged dirty in b, as retry
// does right after the metadata reindex. A failure stages the error marker
// again with one more attempt.
func (t *Tracker) Complete(ctx context.Context, nodeID int64, b *index.Batch) (reconcile.Outcome, error) {
	d, staged := b.Lookup(index.NodeKey(nodeID))
	if !staged || d == nil || d.ContentStatus != index.ContentDirty {
		return reconcile.Outcome{}, nil
	}
	ex := t.extract(ctx, *d)
	if ex.err == nil {
		b.Upsert(cleaned(*d, ex))
		return reconcile.Outcome{Written: 1}, nil
	}
	if repo.IsFetchError(ex.err) {
		return reconcile.Outcome{}, ex.err
	}

	attempts := 1
	prev, err := t.sink.Get(ctx, index.ErrorKey(nodeID))
	switch {
	case err == nil:
		attempts = prev.Attempts + 1
	case !errors.Is(err, index.ErrNotFound):
		return reconcile.Outcome{}, err
	}
	t.markFailed(b, *d, attempts, ex.err, nil)
	return reconcile.Outcome{Errors: 1}, nil
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

func firstRef(refs map[string]string) string {
	if len(refs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(refs))
	for k := range refs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return refs[keys[0]]
}
