package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Alfresco/SearchServices-sub009/core/index"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAdapter serves units from a sorted slice and writes one node document
// plus a TX marker per unit.
type fakeAdapter struct {
	name  string
	units []Unit

	mu       sync.Mutex
	fetchErr error
	applyErr map[int64]error
	fetches  int
	applied  []int64
	block    chan struct{}
	started  chan struct{}
	before   int
	after    []CycleResult
}

func newFake(ids ...int64) *fakeAdapter {
	f := &fakeAdapter{name: "metadata", applyErr: map[int64]error{}}
	for _, id := range ids {
		f.units = append(f.units, Unit{ID: id, CommitTimeMs: id * 1000})
	}
	return f
}

func (f *fakeAdapter) Name() string { return f.name }
func (f *fakeAdapter) Kind() Kind   { return KindMetadata }

func (f *fakeAdapter) Space() (index.IDSpace, bool) { return index.SpaceTx, true }

func (f *fakeAdapter) Fetch(ctx context.Context, after int64, limit int) ([]Unit, error) {
	f.mu.Lock()
	f.fetches++
	block, started := f.block, f.started
	f.block = nil
	err := f.fetchErr
	f.fetchErr = nil
	f.mu.Unlock()

	if block != nil {
		close(started)
		<-block
	}
	if err != nil {
		return nil, err
	}
	var out []Unit
	for _, u := range f.units {
		if u.ID > after && len(out) < limit {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeAdapter) Apply(ctx context.Context, u Unit, b *index.Batch) (Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.applyErr[u.ID]; err != nil {
		return Outcome{}, err
	}
	f.applied = append(f.applied, u.ID)
	b.Upsert(index.Document{Key: index.NodeKey(u.ID), Type: index.DocNode, NodeID: u.ID, TxnID: u.ID})
	b.Upsert(index.Document{Key: index.TxKey(u.ID), Type: index.DocTx, TxnID: u.ID, CommitTimeMs: u.CommitTimeMs})
	return Outcome{Written: 1}, nil
}

func (f *fakeAdapter) BeforeCycle(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.before++
	return nil
}

func (f *fakeAdapter) AfterCycle(ctx context.Context, res CycleResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.after = append(f.after, res)
	return nil
}

func newEngine(sink index.Sink, opts Options) *Engine {
	return NewEngine("alfresco", sink, opts, zap.NewNop(), nil)
}

func watermark(t *testing.T, sink index.Sink) int64 {
	t.Helper()
	w, err := sink.Watermark(context.Background(), index.SpaceTx)
	require.NoError(t, err)
	return w.LastIndexedID
}

func TestEngine_RunCycle(t *testing.T) {
	ctx := context.Background()
	sink := index.NewMemorySink()
	a := newFake(1, 2, 3, 4, 5)
	e := newEngine(sink, Options{BatchSize: 2})

	res, err := e.RunCycle(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Units)
	assert.Equal(t, 3, res.Batches)
	assert.Equal(t, 5, res.Outcome.Written)
	assert.Equal(t, int64(5), res.Watermark)
	assert.NotEmpty(t, res.Iteration)
	assert.Equal(t, int64(5), watermark(t, sink))

	n, err := sink.Count(ctx, index.Query{Type: index.DocNode})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	marker, err := sink.Get(ctx, index.SpaceTx.Key())
	require.NoError(t, err)
	assert.Equal(t, int64(5), marker.Value)

	assert.Equal(t, 1, a.before)
	require.Len(t, a.after, 1)
	assert.Equal(t, 5, a.after[0].Units)

	st := e.Status(a)
	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, 1, st.Cycles)
	assert.NotNil(t, st.LastRun)
	assert.Empty(t, st.LastError)

	t.Run("idempotent replay", func(t *testing.T) {
		res, err := e.RunCycle(ctx, a)
		require.NoError(t, err)
		assert.Zero(t, res.Units)
		assert.Equal(t, int64(5), watermark(t, sink))

		n, err := sink.Count(ctx, index.Query{Type: index.DocNode})
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	})
}

func TestEngine_FetchErrorLeavesIndexUntouched(t *testing.T) {
	ctx := context.Background()
	sink := index.NewMemorySink()
	a := newFake(1, 2)
	a.fetchErr = errors.New("connection refused")
	e := newEngine(sink, Options{})

	_, err := e.RunCycle(ctx, a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	gen, err := sink.LastCommittedGeneration(ctx)
	require.NoError(t, err)
	assert.Zero(t, gen)
	assert.Zero(t, watermark(t, sink))

	st := e.Status(a)
	assert.Equal(t, StateIdle, st.State)
	assert.Contains(t, st.LastError, "connection refused")

	_, err = e.RunCycle(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(2), watermark(t, sink))
}

func TestEngine_ApplyErrorDiscardsBatch(t *testing.T) {
	ctx := context.Background()
	sink := index.NewMemorySink()
	a := newFake(1, 2, 3)
	a.applyErr[2] = errors.New("boom")
	e := newEngine(sink, Options{})

	_, err := e.RunCycle(ctx, a)
	require.Error(t, err)

	n, err := sink.Count(ctx, index.Query{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, watermark(t, sink))
}

func TestEngine_CommitFailureKeepsWatermark(t *testing.T) {
	ctx := context.Background()
	sink := index.NewMemorySink()
	a := newFake(1, 2, 3, 4)
	e := newEngine(sink, Options{BatchSize: 2})

	_, err := e.RunCycle(ctx, newFake(1, 2))
	require.NoError(t, err)
	require.Equal(t, int64(2), watermark(t, sink))

	sink.FailNextCommit(errors.New("disk full"))
	_, err = e.RunCycle(ctx, a)
	var commitErr *index.CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, int64(2), watermark(t, sink))

	_, err = sink.Get(ctx, index.NodeKey(3))
	assert.ErrorIs(t, err, index.ErrNotFound)

	res, err := e.RunCycle(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Units)
	assert.Equal(t, int64(4), watermark(t, sink))
}

func TestEngine_NoOverlap(t *testing.T) {
	ctx := context.Background()
	sink := index.NewMemorySink()
	a := newFake(1)
	block := make(chan struct{})
	a.block = block
	a.started = make(chan struct{})
	e := newEngine(sink, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := e.RunCycle(ctx, a)
		done <- err
	}()
	<-a.started

	_, err := e.RunCycle(ctx, a)
	assert.ErrorIs(t, err, ErrBusy)

	close(block)
	require.NoError(t, <-done)
}

func TestEngine_HoleScan(t *testing.T) {
	ctx := context.Background()
	sink := index.NewMemorySink()
	e := newEngine(sink, Options{HoleScanIDs: 10})

	// Transaction 3 commits late: the first cycle sees 1, 2, 4, 5.
	a := newFake(1, 2, 4, 5)
	_, err := e.RunCycle(ctx, a)
	require.NoError(t, err)
	require.Equal(t, int64(5), watermark(t, sink))

	a.units = []Unit{{ID: 1, CommitTimeMs: 1000}, {ID: 2, CommitTimeMs: 2000}, {ID: 3, CommitTimeMs: 3000}, {ID: 4, CommitTimeMs: 4000}, {ID: 5, CommitTimeMs: 5000}}
	a.applied = nil
	res, err := e.RunCycle(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Holes)
	assert.Equal(t, []int64{3}, a.applied)
	assert.Equal(t, int64(5), watermark(t, sink))

	ok, err := index.Exists(ctx, sink, index.TxKey(3))
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("retention bound", func(t *testing.T) {
		sink := index.NewMemorySink()
		e := newEngine(sink, Options{HoleScanIDs: 10, HoleRetention: time.Second})
		a := newFake(1, 4, 5)
		_, err := e.RunCycle(ctx, a)
		require.NoError(t, err)

		a.units = []Unit{{ID: 1, CommitTimeMs: 1000}, {ID: 2, CommitTimeMs: 2000}, {ID: 3, CommitTimeMs: 4500}, {ID: 4, CommitTimeMs: 4000}, {ID: 5, CommitTimeMs: 5000}}
		a.applied = nil
		res, err := e.RunCycle(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Holes)
		assert.Equal(t, []int64{3}, a.applied)
	})
}
