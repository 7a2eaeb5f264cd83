package model

import (
	"context"
	"errors"
	"testing"

	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/reconcile"
	"github.com/Alfresco/SearchServices-sub009/core/repo"
	"github.com/Alfresco/SearchServices-sub009/core/repo/memory"
	"github.com/Alfresco/SearchServices-sub009/core/shard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contentModel = repo.Model{
	Name:     "cm:contentmodel",
	Checksum: "v1",
	Properties: []repo.PropertyDef{
		{QName: "cm:name", DataType: "d:text", Indexed: true},
		{QName: "cm:secret", DataType: "d:text", Indexed: false},
	},
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.Indexed("cm:name"))
	assert.True(t, r.Indexed("cm:secret"))

	r.Put(contentModel)
	assert.True(t, r.Indexed("cm:name"))
	assert.False(t, r.Indexed("cm:secret"))
	assert.True(t, r.Indexed("other:prop"))

	r.Put(repo.Model{Name: "cm:contentmodel", Properties: []repo.PropertyDef{{QName: "cm:name", Indexed: true}}})
	_, ok := r.Property("cm:secret")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())

	var nilRegistry *Registry
	assert.True(t, nilRegistry.Indexed("cm:secret"))
}

func TestTracker(t *testing.T) {
	ctx := context.Background()
	sink := index.NewMemorySink()
	src := memory.New()
	src.SetModels(contentModel, repo.Model{Name: "app:model", Checksum: "a"})
	reg := NewRegistry()

	c := reconcile.NewCore(reconcile.CoreConfig{Name: "alfresco", Options: reconcile.Options{BatchSize: 1}}, sink, src, shard.New(shard.Config{}, nil), nil, nil, nil)
	c.Register(New(src, sink, reg, nil))

	res, err := c.Run(ctx, Name)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Units)
	assert.Equal(t, 2, res.Batches)
	assert.Equal(t, 2, res.Outcome.Written)
	assert.False(t, reg.Indexed("cm:secret"))

	res, err = c.Run(ctx, Name)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Outcome.Skipped)
	assert.Zero(t, res.Outcome.Written)

	updated := contentModel
	updated.Checksum = "v2"
	updated.Properties = []repo.PropertyDef{{QName: "cm:secret", DataType: "d:text", Indexed: true}}
	src.SetModels(updated, repo.Model{Name: "app:model", Checksum: "a"})
	res, err = c.Run(ctx, Name)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Outcome.Written)
	assert.True(t, reg.Indexed("cm:secret"))

	t.Run("restore", func(t *testing.T) {
		fresh := NewRegistry()
		n, err := Restore(ctx, sink, fresh)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		m, ok := fresh.Model("cm:contentmodel")
		require.True(t, ok)
		assert.Equal(t, "v2", m.Checksum)
		assert.Equal(t, []repo.PropertyDef{{QName: "cm:secret", DataType: "d:text", Indexed: true}}, m.Properties)
	})
}

func TestTracker_FailedCommitKeepsRegistry(t *testing.T) {
	ctx := context.Background()
	sink := index.NewMemorySink()
	src := memory.New()
	src.SetModels(contentModel)
	reg := NewRegistry()

	c := reconcile.NewCore(reconcile.CoreConfig{Name: "alfresco"}, sink, src, shard.New(shard.Config{}, nil), nil, nil, nil)
	c.Register(New(src, sink, reg, nil))

	sink.FailNextCommit(errors.New("disk full"))
	_, err := c.Run(ctx, Name)
	require.Error(t, err)
	_, ok := reg.Model("cm:contentmodel")
	assert.False(t, ok, "uncommitted models are not registered")
	assert.True(t, reg.Indexed("cm:secret"))

	_, err = c.Run(ctx, Name)
	require.NoError(t, err)
	_, ok = reg.Model("cm:contentmodel")
	assert.True(t, ok)
	assert.False(t, reg.Indexed("cm:secret"))
}
