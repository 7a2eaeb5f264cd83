package cascade

import (
	"context"
	"testing"

	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/reconcile"
	"github.com/Alfresco/SearchServices-sub009/core/repo/memory"
	"github.com/Alfresco/SearchServices-sub009/core/shard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(id int64, ref string, pending bool, ancestors ...string) index.Document {
	return index.Document{Key: index.NodeKey(id), Type: index.DocNode, NodeID: id, NodeRef: ref, Ancestors: ancestors, CascadePending: pending}
}

func TestTracker_RewritesDescendants(t *testing.T) {
	ctx := context.Background()
	sink := index.NewMemorySink()
	c := reconcile.NewCore(reconcile.CoreConfig{Name: "alfresco"}, sink, memory.New(), shard.New(shard.Config{}, nil), nil, nil, nil)
	c.Register(New(sink, nil))

	// folder moved from /root/a to /root/b; its children still carry the old path.
	b := sink.NewBatch()
	for _, d := range []index.Document{
		doc(1, "root", false),
		doc(2, "b", false, "root"),
		doc(3, "folder", true, "root", "b"),
		doc(4, "child", false, "root", "a", "folder"),
		doc(5, "grandchild", false, "root", "a", "folder", "child"),
		doc(6, "unrelated", false, "root", "a"),
	} {
		b.Upsert(d)
	}
	_, err := b.Commit(ctx)
	require.NoError(t, err)

	res, err := c.Run(ctx, Name)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Units)
	assert.Equal(t, 2, res.Outcome.Written)

	get := func(id int64) index.Document {
		d, err := sink.Get(ctx, index.NodeKey(id))
		require.NoError(t, err)
		return d
	}
	assert.Equal(t, []string{"root", "b", "folder"}, get(4).Ancestors)
	assert.Equal(t, []string{"root", "b", "folder", "child"}, get(5).Ancestors)
	assert.Equal(t, []string{"root", "a"}, get(6).Ancestors)
	assert.False(t, get(3).CascadePending)

	n, err := sink.Count(ctx, index.Query{Ancestor: "b"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	res, err = c.Run(ctx, Name)
	require.NoError(t, err)
	assert.Zero(t, res.Units)
}

func TestTracker_ConcurrentMetadataCommitWins(t *testing.T) {
	ctx := context.Background()
	sink := index.NewMemorySink()
	tr := New(sink, nil)

	b := sink.NewBatch()
	for _, d := range []index.Document{
		doc(3, "folder", true, "root", "b"),
		doc(4, "child", false, "root", "a", "folder"),
		doc(5, "other", false, "root", "a", "folder"),
	} {
		b.Upsert(d)
	}
	_, err := b.Commit(ctx)
	require.NoError(t, err)

	units, err := tr.Fetch(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, units, 1)
	batch := sink.NewBatch()
	out, err := tr.Apply(ctx, units[0], batch)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Written)

	// node 4 is moved out of the folder and reindexed before the cascade commits.
	moved := sink.NewBatch()
	moved.Upsert(doc(4, "child", false, "root", "c"))
	_, err = moved.Commit(ctx)
	require.NoError(t, err)

	_, err = batch.Commit(ctx)
	require.NoError(t, err)

	get := func(id int64) index.Document {
		d, err := sink.Get(ctx, index.NodeKey(id))
		require.NoError(t, err)
		return d
	}
	assert.Equal(t, []string{"root", "c"}, get(4).Ancestors)
	assert.Equal(t, []string{"root", "b", "folder"}, get(5).Ancestors)
	assert.False(t, get(3).CascadePending)
}
