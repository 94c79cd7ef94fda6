package upserter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/upserter/engine"
	"github.com/w-h-a/upserter/engine/providers/embedder/hashing"
	"github.com/w-h-a/upserter/engine/providers/storer"
	"github.com/w-h-a/upserter/engine/providers/storer/memory"
)

func TestResolveText(t *testing.T) {
	ctx := context.Background()
	u := New(memory.NewStorer(), hashing.NewEmbedder())

	first, err := u.ResolveText(ctx, "Draft the README", "projects, scriptname", "s1")
	require.NoError(t, err)
	assert.Equal(t, engine.ActionInsert, first.Action)
	assert.Equal(t, []string{"projects", "scriptname"}, first.Tags)

	second, err := u.ResolveText(ctx, "Add usage examples", "scriptname,projects", "")
	require.NoError(t, err)
	assert.Equal(t, engine.ActionUpdate, second.Action)
	assert.Equal(t, first.RecordId, second.RecordId)

	rec, err := u.Record(ctx, first.RecordId)
	require.NoError(t, err)
	assert.Equal(t, "Draft the README\n\nAdd usage examples", rec.Content)
	assert.Equal(t, "s1", rec.SessionId)
}

func TestRecordMissing(t *testing.T) {
	u := New(memory.NewStorer(), hashing.NewEmbedder())

	_, err := u.Record(context.Background(), "nope")
	assert.ErrorIs(t, err, storer.ErrNotFound)
}

func TestEngineOptionsPassThrough(t *testing.T) {
	ctx := context.Background()
	u := New(memory.NewStorer(), hashing.NewEmbedder(), engine.WithIdGenerator(func() string { return "id-1" }))

	outcome, err := u.Resolve(ctx, "hello", []string{"t"}, "")
	require.NoError(t, err)
	assert.Equal(t, "id-1", outcome.RecordId)
	assert.NotNil(t, u.Engine())
}
