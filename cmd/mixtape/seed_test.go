package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mixtape/internal/app/playlists"
	"mixtape/internal/app/recommend"
	"mixtape/internal/store/kv"
)

func TestSeedDemoData(t *testing.T) {
	ctx := context.Background()
	docs, err := kv.OpenInMemory(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	require.NoError(t, seedDemoData(ctx, docs))

	mine, err := playlists.New(docs).ListMine(ctx, demoUser)
	require.NoError(t, err)
	require.Len(t, mine, len(demoPlaylists))

	public, err := playlists.New(docs).ListPublic(ctx, 0)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "Late Night Drive", public[0].Title)
	assert.Len(t, public[0].Tracklist, 3)

	ranker := recommend.New(docs)

	chill, err := ranker.RankByTag(ctx, "chill")
	require.NoError(t, err)
	assert.Len(t, chill, 4)
	for _, r := range chill {
		assert.Equal(t, 2, r.Score)
	}

	night, err := ranker.RankByTag(ctx, "night")
	require.NoError(t, err)
	require.Len(t, night, 2)
	assert.Equal(t, 2, night[0].Upvotes)
	assert.Equal(t, 1, night[0].Downvotes)
}

func TestSeedDemoDataIsIdempotent(t *testing.T) {
	ctx := context.Background()
	docs, err := kv.OpenInMemory(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	require.NoError(t, seedDemoData(ctx, docs))
	require.NoError(t, seedDemoData(ctx, docs))

	mine, err := playlists.New(docs).ListMine(ctx, demoUser)
	require.NoError(t, err)
	assert.Len(t, mine, len(demoPlaylists))

	acoustic, err := recommend.New(docs).RankByTag(ctx, "acoustic")
	require.NoError(t, err)
	assert.Len(t, acoustic, 2)
}
