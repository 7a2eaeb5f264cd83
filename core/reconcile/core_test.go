package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/Alfresco/SearchServices-sub009/core/content"
	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/metrics"
	"github.com/Alfresco/SearchServices-sub009/core/repo"
	"github.com/Alfresco/SearchServices-sub009/core/repo/memory"
	"github.com/Alfresco/SearchServices-sub009/core/shard"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// nodeReindexer rewrites nodes; ids in broken keep failing.
type nodeReindexer struct {
	*fakeAdapter
	broken map[int64]bool
}

func (r *nodeReindexer) Handles(kind TargetKind) bool {
	return kind == TargetNode || kind == TargetTransaction
}

func (r *nodeReindexer) Reindex(ctx context.Context, target Target, mode Mode, b *index.Batch) (Outcome, error) {
	if target.Kind == TargetTransaction {
		return Outcome{}, errors.New("transaction reindex not supported by fake")
	}
	id := target.ID
	if r.broken[id] {
		b.Delete(index.NodeKey(id))
		b.Upsert(index.Document{Key: index.ErrorKey(id), Type: index.DocError, NodeID: id, Error: "still broken"})
		return Outcome{Errors: 1}, nil
	}
	b.Delete(index.ErrorKey(id))
	b.Upsert(index.Document{Key: index.NodeKey(id), Type: index.DocNode, NodeID: id})
	return Outcome{Written: 1}, nil
}

func seed(t *testing.T, sink index.Sink, docs ...index.Document) {
	t.Helper()
	b := sink.NewBatch()
	for _, d := range docs {
		b.Upsert(d)
	}
	_, err := b.Commit(context.Background())
	require.NoError(t, err)
}

func newCore(t *testing.T, policy shard.Policy, store content.Store) (*Core, *index.MemorySink, *memory.Source) {
	t.Helper()
	sink := index.NewMemorySink()
	src := memory.New()
	if policy == nil {
		policy = shard.New(shard.Config{Method: "MOD", Count: 1}, nil)
	}
	c := NewCore(CoreConfig{Name: "alfresco", Count: 1}, sink, src, policy, store, zap.NewNop(), metrics.New())
	return c, sink, src
}

func TestCore_SummaryMatchesTrackerState(t *testing.T) {
	ctx := context.Background()
	c, sink, _ := newCore(t, nil, nil)
	a := newFake(1, 2, 3)
	c.Register(a)

	_, err := c.Run(ctx, "metadata")
	require.NoError(t, err)
	seed(t, sink, index.Document{Key: index.ErrorKey(9), Type: index.DocError, NodeID: 9})

	sum, err := c.Summary(ctx)
	require.NoError(t, err)
	st, err := c.TrackerState(ctx, "metadata")
	require.NoError(t, err)

	require.Len(t, sum.Trackers, 1)
	assert.Equal(t, st, sum.Trackers[0])
	assert.Equal(t, int64(3), st.Watermark)
	assert.Equal(t, 1, sum.ErrorNodes)
	assert.Equal(t, 3, sum.Documents["node"])
	assert.Equal(t, shard.MethodMod, sum.Method)
	assert.Nil(t, sum.Range)

	_, err = c.TrackerState(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownTracker)
	_, err = c.Run(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownTracker)
}

func TestCore_RunAll(t *testing.T) {
	c, sink, _ := newCore(t, nil, nil)
	a := newFake(1, 2)
	b := &fakeAdapter{name: "other", applyErr: map[int64]error{}}
	c.Register(a, b)

	results, err := c.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].Units)
	assert.Equal(t, int64(2), watermark(t, sink))
}

func TestCore_Retry(t *testing.T) {
	ctx := context.Background()
	c, sink, _ := newCore(t, nil, nil)
	r := &nodeReindexer{fakeAdapter: newFake(), broken: map[int64]bool{8: true}}
	c.Register(r)

	seed(t, sink,
		index.Document{Key: index.ErrorKey(7), Type: index.DocError, NodeID: 7},
		index.Document{Key: index.ErrorKey(8), Type: index.DocError, NodeID: 8},
	)

	res, err := c.Retry(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempted)
	assert.Equal(t, []int64{7}, res.Fixed)
	assert.Equal(t, []int64{8}, res.Failing)

	ok, err := index.Exists(ctx, sink, index.ErrorKey(7))
	require.NoError(t, err)
	assert.False(t, ok)
	n, err := sink.Count(ctx, index.Query{Type: index.DocNode, NodeID: 7})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err = index.Exists(ctx, sink, index.ErrorKey(8))
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("converges once fixed", func(t *testing.T) {
		r.broken[8] = false
		res, err := c.Retry(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{8}, res.Fixed)
		n, err := sink.Count(ctx, index.Query{Type: index.DocError})
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestCore_ReindexRouting(t *testing.T) {
	ctx := context.Background()
	c, sink, _ := newCore(t, nil, nil)
	c.Register(&nodeReindexer{fakeAdapter: newFake(), broken: map[int64]bool{}})

	res, err := c.ReindexNodeID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, "reindex_node", res.Op)
	assert.Positive(t, res.Generation)
	ok, err := index.Exists(ctx, sink, index.NodeKey(5))
	require.NoError(t, err)
	assert.True(t, ok)

	res, err = c.ReindexAclID(ctx, 5)
	assert.ErrorIs(t, err, ErrNoHandler)
	assert.Equal(t, StatusFailed, res.Status)

	res, err = c.ReindexTransactionID(ctx, 5)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	series, err := testutil.GatherAndCount(c.metrics.Gatherer(), "tracker_maintenance_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series)
}

func TestCore_Purge(t *testing.T) {
	ctx := context.Background()
	store := content.NewMemoryStore()
	c, sink, _ := newCore(t, nil, store)

	seed(t, sink,
		index.Document{Key: index.NodeKey(1), Type: index.DocNode, NodeID: 1, TxnID: 10, AclID: 100},
		index.Document{Key: index.NodeKey(2), Type: index.DocNode, NodeID: 2, TxnID: 10, AclID: 200},
		index.Document{Key: index.ErrorKey(3), Type: index.DocError, NodeID: 3, TxnID: 10},
		index.Document{Key: index.TxKey(10), Type: index.DocTx, TxnID: 10},
		index.Document{Key: index.NodeKey(4), Type: index.DocNode, NodeID: 4, TxnID: 11, AclID: 100},
		index.Document{Key: index.AclKey(100), Type: index.DocAcl, AclID: 100, AclChangeSetID: 50, Readers: []string{"jim"}},
		index.Document{Key: index.AclKey(200), Type: index.DocAcl, AclID: 200, AclChangeSetID: 50, Readers: []string{"ice"}},
		index.Document{Key: index.AclTxKey(50), Type: index.DocAclTx, AclChangeSetID: 50},
	)
	require.NoError(t, store.Put(ctx, content.Ref(1, "cm:content", "store://a"), "hello"))

	t.Run("dry run deletes nothing", func(t *testing.T) {
		plan, res, err := c.Purge(ctx, Target{Kind: TargetTransaction, ID: 10}, PurgeOptions{DryRun: true})
		require.NoError(t, err)
		assert.Equal(t, StatusDryRun, res.Status)
		assert.Equal(t, []string{"ERROR!3", "NODE!1", "NODE!2", "TX!10"}, plan.Keys)
		assert.Equal(t, []int64{1, 2, 3}, plan.NodeIDs)
		n, _ := sink.Count(ctx, index.Query{TxnID: 10})
		assert.Equal(t, 4, n)
	})

	t.Run("unconfirmed is refused", func(t *testing.T) {
		_, res, err := c.Purge(ctx, Target{Kind: TargetTransaction, ID: 10}, PurgeOptions{})
		assert.ErrorIs(t, err, ErrNotConfirmed)
		assert.Equal(t, StatusFailed, res.Status)
	})

	t.Run("transaction", func(t *testing.T) {
		res, err := c.PurgeTransactionID(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, 4, res.Outcome.Deleted)
		n, err := sink.Count(ctx, index.Query{TxnID: 10})
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Zero(t, store.Len())

		n, err = sink.Count(ctx, index.Query{TxnID: 11})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("acl change-set", func(t *testing.T) {
		res, err := c.PurgeAclChangeSetID(ctx, 50)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Outcome.Deleted)
		for _, reader := range []string{"jim", "ice"} {
			n, err := sink.Count(ctx, index.Query{Type: index.DocAcl, Reader: reader})
			require.NoError(t, err)
			assert.Zero(t, n, reader)
		}
	})

	t.Run("acl", func(t *testing.T) {
		res, err := c.PurgeAclID(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Outcome.Deleted)
		ok, err := index.Exists(ctx, sink, index.NodeKey(4))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing node is a no-op", func(t *testing.T) {
		res, err := c.PurgeNodeID(ctx, 999)
		require.NoError(t, err)
		assert.Equal(t, StatusOK, res.Status)
		assert.Zero(t, res.Outcome.Deleted)
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := c.PurgeNodeID(ctx, 0)
		assert.Error(t, err)
	})
}

func TestCore_RangeOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("not a range policy", func(t *testing.T) {
		c, _, _ := newCore(t, nil, nil)
		_, err := c.RangeCheck(ctx)
		assert.ErrorIs(t, err, shard.ErrNotRangePolicy)
		end, err := c.Expand(ctx, 0, 10)
		assert.Equal(t, int64(-1), end)
		assert.ErrorIs(t, err, shard.ErrNotRangePolicy)
	})

	newRangeCore := func(t *testing.T, rng string, ids ...int64) (*Core, *index.MemorySink) {
		t.Helper()
		p, err := shard.NewRangePolicy(shard.Config{Method: "DB_ID_RANGE", Count: 1, TargetSize: 100, Range: rng})
		require.NoError(t, err)
		c, sink, _ := newCore(t, p, nil)
		var docs []index.Document
		for _, id := range ids {
			docs = append(docs, index.Document{Key: index.NodeKey(id), Type: index.DocNode, NodeID: id})
		}
		seed(t, sink, docs...)
		return c, sink
	}
	ids := func(start, end int64, n int) []int64 {
		var out []int64
		for i := 0; i < n-1; i++ {
			out = append(out, start+int64(i))
		}
		return append(out, end)
	}

	t.Run("uninitialized", func(t *testing.T) {
		c, _ := newRangeCore(t, "0-100")
		end, err := c.Expand(ctx, 0, 35)
		assert.Equal(t, int64(-1), end)
		var expErr *shard.ExpansionError
		require.ErrorAs(t, err, &expErr)
		assert.Equal(t, shard.ReasonNotInitialized, expErr.Reason)
	})

	t.Run("dense shard is rejected", func(t *testing.T) {
		c, _ := newRangeCore(t, "0-100", ids(1, 76, 56)...)
		require.NoError(t, c.Init(ctx))

		end, err := c.Expand(ctx, 0, 35)
		assert.Equal(t, int64(-1), end)
		assert.EqualError(t, err, shard.ReasonAboveSafe)

		check, err := c.RangeCheck(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(100), check.End)
		assert.Equal(t, int64(-1), check.Expand)
	})

	t.Run("expansion is published and restored", func(t *testing.T) {
		c, sink := newRangeCore(t, "100-200", ids(101, 154, 40)...)
		require.NoError(t, c.Init(ctx))

		check, err := c.RangeCheck(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(35), check.Expand)

		_, err = c.Expand(ctx, 3, 35)
		assert.Error(t, err)

		end, err := c.Expand(ctx, 0, 35)
		require.NoError(t, err)
		assert.Equal(t, int64(235), end)

		doc, err := sink.Get(ctx, index.CapKey)
		require.NoError(t, err)
		assert.Equal(t, int64(235), doc.Value)

		_, err = c.Expand(ctx, 0, 35)
		assert.EqualError(t, err, shard.ReasonAlreadyExpanded)

		p, err := shard.NewRangePolicy(shard.Config{Method: "DB_ID_RANGE", Count: 1, TargetSize: 100, Range: "100-200"})
		require.NoError(t, err)
		restarted := NewCore(CoreConfig{Name: "alfresco"}, sink, memory.New(), p, nil, nil, nil)
		require.NoError(t, restarted.Init(ctx))
		assert.Equal(t, shard.Range{Start: 100, End: 235}, p.RangeState())
		assert.True(t, p.Owns(0, repo.Node{ID: 230}, nil))

		sum, err := restarted.Summary(ctx)
		require.NoError(t, err)
		require.NotNil(t, sum.Range)
		assert.True(t, sum.Range.Expanded)
	})
}

func TestCore_Reports(t *testing.T) {
	ctx := context.Background()
	c, sink, src := newCore(t, nil, nil)
	src.AddTransaction(repo.Transaction{ID: 10}, repo.Node{ID: 1, NodeRef: "ws://1"}, repo.Node{ID: 2, NodeRef: "ws://2"})
	src.AddAclChangeSet(repo.AclChangeSet{ID: 50}, repo.Acl{ID: 100})

	seed(t, sink,
		index.Document{Key: index.NodeKey(1), Type: index.DocNode, NodeID: 1, TxnID: 10, ContentStatus: index.ContentDirty},
		index.Document{Key: index.ErrorKey(2), Type: index.DocError, NodeID: 2, TxnID: 10, Error: "bad metadata"},
		index.Document{Key: index.TxKey(10), Type: index.DocTx, TxnID: 10},
		index.Document{Key: index.AclKey(100), Type: index.DocAcl, AclID: 100, AclChangeSetID: 50, Readers: []string{"jim"}},
	)

	nr, err := c.NodeReport(ctx, 1)
	require.NoError(t, err)
	assert.True(t, nr.Owned)
	assert.True(t, nr.Indexed)
	assert.Equal(t, int64(10), nr.DBTxID)
	assert.Equal(t, index.ContentDirty, nr.ContentStatus)

	nr, err = c.NodeReport(ctx, 2)
	require.NoError(t, err)
	assert.False(t, nr.Indexed)
	assert.Equal(t, "bad metadata", nr.Error)

	tr, err := c.TxReport(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, TxReport{TxID: 10, DBNodeCount: 2, IndexedNodes: 1, ErrorNodes: 1, MarkerIndexed: true}, tr)

	ar, err := c.AclReport(ctx, 100)
	require.NoError(t, err)
	assert.True(t, ar.Indexed)
	assert.Equal(t, []string{"jim"}, ar.Readers)

	atr, err := c.AclTxReport(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, atr.DBAclCount)
	assert.Equal(t, 1, atr.IndexedAcls)
	assert.False(t, atr.MarkerIndexed)
}
