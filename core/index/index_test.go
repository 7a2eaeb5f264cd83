package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()

	b := sink.NewBatch()
	b.Upsert(Document{Key: NodeKey(1), Type: DocNode, NodeID: 1, Owner: "alice"})
	b.Upsert(Document{Key: NodeKey(1), Type: DocNode, NodeID: 1, Owner: "bob"})
	b.Upsert(Document{Key: NodeKey(2), Type: DocNode, NodeID: 2})
	b.Delete(NodeKey(2))
	assert.Equal(t, 2, b.Len())

	doc, touched := b.Lookup(NodeKey(2))
	assert.True(t, touched)
	assert.Nil(t, doc)

	gen, err := b.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	assert.True(t, b.Empty())

	got, err := sink.Get(ctx, NodeKey(1))
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Owner)
	assert.False(t, got.UpdatedAt.IsZero())

	_, err = sink.Get(ctx, NodeKey(2))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemorySink_Watermark(t *testing.T) {
	ctx := context.Background()

	t.Run("zero when never set", func(t *testing.T) {
		sink := NewMemorySink()
		w, err := sink.Watermark(ctx, SpaceTx)
		require.NoError(t, err)
		assert.Equal(t, SpaceTx, w.Space)
		assert.Zero(t, w.LastIndexedID)
	})

	t.Run("advance publishes marker document", func(t *testing.T) {
		sink := NewMemorySink()
		b := sink.NewBatch()
		b.Upsert(Document{Key: TxKey(10), Type: DocTx, TxnID: 10})
		b.SetWatermark(Watermark{Space: SpaceTx, LastIndexedID: 10, LastCommitTimeMs: 1000})
		_, err := b.Commit(ctx)
		require.NoError(t, err)

		w, err := sink.Watermark(ctx, SpaceTx)
		require.NoError(t, err)
		assert.Equal(t, int64(10), w.LastIndexedID)

		marker, err := sink.Get(ctx, SpaceTx.Key())
		require.NoError(t, err)
		assert.Equal(t, DocState, marker.Type)
		assert.Equal(t, int64(10), marker.Value)
	})

	t.Run("regression rejects whole commit", func(t *testing.T) {
		sink := NewMemorySink()
		b := sink.NewBatch()
		b.SetWatermark(Watermark{Space: SpaceAclTx, LastIndexedID: 50})
		_, err := b.Commit(ctx)
		require.NoError(t, err)

		b = sink.NewBatch()
		b.Upsert(Document{Key: AclKey(7), Type: DocAcl, AclID: 7})
		b.SetWatermark(Watermark{Space: SpaceAclTx, LastIndexedID: 40})
		_, err = b.Commit(ctx)
		assert.ErrorIs(t, err, ErrWatermarkRegression)

		ok, err := Exists(ctx, sink, AclKey(7))
		require.NoError(t, err)
		assert.False(t, ok)

		w, _ := sink.Watermark(ctx, SpaceAclTx)
		assert.Equal(t, int64(50), w.LastIndexedID)
	})

	t.Run("equal watermark is a no-op advance", func(t *testing.T) {
		assert.NoError(t, CheckAdvance(Watermark{LastIndexedID: 5}, Watermark{LastIndexedID: 5}))
	})
}

func TestMemorySink_FailedCommitLeavesNothing(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()
	sink.FailNextCommit(errors.New("disk full"))

	b := sink.NewBatch()
	b.Upsert(Document{Key: NodeKey(3), Type: DocNode, NodeID: 3})
	b.SetWatermark(Watermark{Space: SpaceTx, LastIndexedID: 3})
	_, err := b.Commit(ctx)

	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, 1, commitErr.Ops)

	count, err := sink.Count(ctx, Query{})
	require.NoError(t, err)
	assert.Zero(t, count)
	gen, _ := sink.LastCommittedGeneration(ctx)
	assert.Zero(t, gen)

	// the batch is retained and can be retried
	_, err = b.Commit(ctx)
	require.NoError(t, err)
	ok, _ := Exists(ctx, sink, NodeKey(3))
	assert.True(t, ok)
}

func TestQuery_Matches(t *testing.T) {
	doc := Document{
		Key:        NodeKey(5),
		Type:       DocNode,
		NodeID:     5,
		NodeRef:    "workspace://SpacesStore/n5",
		TxnID:      9,
		AclID:      2,
		Ancestors:  []string{"workspace://SpacesStore/root", "workspace://SpacesStore/folder"},
		Properties: map[string][]string{"cm:name": {"Quarterly Report"}},
		Content:    map[string]string{"cm:content": "revenue grew"},
		Readers:    []string{"GROUP_EVERYONE", "alice"},
		Denied:     []string{"bob"},
	}

	tests := []struct {
		name  string
		query Query
		want  bool
	}{
		{name: "empty query", query: Query{}, want: true},
		{name: "type", query: Query{Type: DocNode}, want: true},
		{name: "wrong type", query: Query{Type: DocAcl}, want: false},
		{name: "txn", query: Query{TxnID: 9}, want: true},
		{name: "other txn", query: Query{TxnID: 8}, want: false},
		{name: "reader", query: Query{Reader: "alice"}, want: true},
		{name: "denied wins", query: Query{Reader: "bob"}, want: false},
		{name: "ancestor", query: Query{Ancestor: "workspace://SpacesStore/folder"}, want: true},
		{name: "property text", query: Query{Text: "quarterly"}, want: true},
		{name: "content text", query: Query{Text: "REVENUE"}, want: true},
		{name: "missing text", query: Query{Text: "loss"}, want: false},
		{name: "after node id", query: Query{AfterNodeID: 5}, want: false},
		{name: "cascade pending", query: Query{CascadePending: true}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.query.Matches(&doc))
		})
	}
}

func TestMemorySink_FindOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()

	b := sink.NewBatch()
	for _, id := range []int64{30, 10, 20} {
		b.Upsert(Document{Key: NodeKey(id), Type: DocNode, NodeID: id})
	}
	b.Upsert(Document{Key: AclKey(1), Type: DocAcl, AclID: 1})
	_, err := b.Commit(ctx)
	require.NoError(t, err)

	docs, err := sink.Find(ctx, Query{Type: DocNode, Limit: 2})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, int64(10), docs[0].NodeID)
	assert.Equal(t, int64(20), docs[1].NodeID)

	count, err := sink.Count(ctx, Query{Type: DocNode, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	ids, err := NodeIDs(ctx, sink)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), ids.GetCardinality())
	assert.Equal(t, uint64(10), ids.Minimum())
	assert.Equal(t, uint64(30), ids.Maximum())
}

func TestMemorySink_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()

	b := sink.NewBatch()
	b.Upsert(Document{Key: AclKey(1), Type: DocAcl, Readers: []string{"alice"}})
	_, err := b.Commit(ctx)
	require.NoError(t, err)

	got, err := sink.Get(ctx, AclKey(1))
	require.NoError(t, err)
	got.Readers[0] = "mallory"

	again, _ := sink.Get(ctx, AclKey(1))
	assert.Equal(t, []string{"alice"}, again.Readers)
}

func TestMemorySink_Closed(t *testing.T) {
	sink := NewMemorySink()
	require.NoError(t, sink.Close())

	_, err := sink.NewBatch().Commit(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemorySink_GuardedOps(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()

	b := sink.NewBatch()
	b.Upsert(Document{Key: NodeKey(1), Type: DocNode, NodeID: 1, TxnID: 1, ContentStatus: ContentDirty})
	gen, err := b.Commit(ctx)
	require.NoError(t, err)

	read, err := sink.Get(ctx, NodeKey(1))
	require.NoError(t, err)
	assert.Equal(t, gen, read.Revision)

	stale := sink.NewBatch()
	clean := read
	clean.ContentStatus = ContentClean
	stale.UpsertIf(clean, GuardOf(read))
	stale.UpsertIf(Document{Key: ErrorKey(1), Type: DocError, NodeID: 1}, GuardOf(read))
	stale.Upsert(Document{Key: TxKey(9), Type: DocTx, TxnID: 9})

	b = sink.NewBatch()
	b.Upsert(Document{Key: NodeKey(1), Type: DocNode, NodeID: 1, TxnID: 2, ContentStatus: ContentDirty})
	_, err = b.Commit(ctx)
	require.NoError(t, err)

	_, err = stale.Commit(ctx)
	require.NoError(t, err)

	got, err := sink.Get(ctx, NodeKey(1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.TxnID)
	assert.Equal(t, ContentDirty, got.ContentStatus)
	ok, err := Exists(ctx, sink, ErrorKey(1))
	require.NoError(t, err)
	assert.False(t, ok, "guarded ops are dropped together")
	ok, err = Exists(ctx, sink, TxKey(9))
	require.NoError(t, err)
	assert.True(t, ok, "unguarded ops still apply")

	t.Run("guard that holds", func(t *testing.T) {
		fresh, err := sink.Get(ctx, NodeKey(1))
		require.NoError(t, err)
		b := sink.NewBatch()
		clean := fresh
		clean.ContentStatus = ContentClean
		b.UpsertIf(clean, GuardOf(fresh))
		_, err = b.Commit(ctx)
		require.NoError(t, err)

		got, err := sink.Get(ctx, NodeKey(1))
		require.NoError(t, err)
		assert.Equal(t, ContentClean, got.ContentStatus)
	})

	t.Run("guard on a deleted document", func(t *testing.T) {
		fresh, err := sink.Get(ctx, NodeKey(1))
		require.NoError(t, err)
		b := sink.NewBatch()
		b.Delete(NodeKey(1))
		_, err = b.Commit(ctx)
		require.NoError(t, err)

		late := sink.NewBatch()
		late.UpsertIf(fresh, GuardOf(fresh))
		_, err = late.Commit(ctx)
		require.NoError(t, err)
		ok, err := Exists(ctx, sink, NodeKey(1))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestBatch_RestagingKeepsGuard(t *testing.T) {
	sink := NewMemorySink()
	b := sink.NewBatch()
	g := &Guard{Key: NodeKey(1), Revision: 3}
	b.UpsertIf(Document{Key: NodeKey(1), Owner: "alice"}, g)
	b.UpsertIf(Document{Key: NodeKey(1), Owner: "bob"}, &Guard{Key: NodeKey(1), Revision: 4})
	b.Upsert(Document{Key: NodeKey(2)})
	b.UpsertIf(Document{Key: NodeKey(2), Owner: "carol"}, g)

	require.Len(t, b.ops, 2)
	assert.Equal(t, g, b.ops[0].If)
	assert.Equal(t, "bob", b.ops[0].Doc.Owner)
	assert.Nil(t, b.ops[1].If)
}
