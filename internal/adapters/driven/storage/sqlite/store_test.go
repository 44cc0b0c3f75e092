package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleChunks() ([]domain.Chunk, [][]float32) {
	chunks := []domain.Chunk{
		{ID: 0, Text: "Premiums are due monthly.", Page: 1, Section: "PREMIUM PAYMENT", TokenCount: 7},
		{ID: 1, Text: "A grace period of thirty days applies.", Page: 1, Section: "GRACE PERIOD", TokenCount: 10},
		{ID: 2, Text: "Cosmetic procedures are excluded.", Page: 2, Section: "EXCLUSIONS", TokenCount: 6},
	}
	embeddings := [][]float32{
		{0.1, 0.2, 0.3},
		{0.4, 0.5, 0.6},
		{0.7, 0.8, 0.9},
	}
	return chunks, embeddings
}

func TestStoreRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	chunks, embeddings := sampleChunks()

	require.NoError(t, store.Put(ctx, "doc-hash", chunks, embeddings))

	gotChunks, gotEmbeddings, err := store.Get(ctx, "doc-hash")
	require.NoError(t, err)

	assert.Equal(t, chunks, gotChunks)
	assert.Equal(t, embeddings, gotEmbeddings)
}

func TestStoreGetMissReportsNotFound(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.Get(context.Background(), "absent")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStorePutReplacesPreviousEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	chunks, embeddings := sampleChunks()

	require.NoError(t, store.Put(ctx, "doc-hash", chunks, embeddings))
	require.NoError(t, store.Put(ctx, "doc-hash", chunks[:1], embeddings[:1]))

	gotChunks, gotEmbeddings, err := store.Get(ctx, "doc-hash")
	require.NoError(t, err)

	assert.Len(t, gotChunks, 1)
	assert.Len(t, gotEmbeddings, 1)
	assert.Equal(t, chunks[0], gotChunks[0])
}

func TestStorePutRejectsMisalignedInput(t *testing.T) {
	store := newTestStore(t)
	chunks, embeddings := sampleChunks()

	err := store.Put(context.Background(), "doc-hash", chunks, embeddings[:2])

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStorePreservesNilEmbeddingSlots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	chunks, embeddings := sampleChunks()
	embeddings[1] = nil

	require.NoError(t, store.Put(ctx, "doc-hash", chunks, embeddings))

	_, gotEmbeddings, err := store.Get(ctx, "doc-hash")
	require.NoError(t, err)

	assert.Nil(t, gotEmbeddings[1])
	assert.Equal(t, embeddings[0], gotEmbeddings[0])
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	chunks, embeddings := sampleChunks()

	require.NoError(t, store.Put(ctx, "doc-hash", chunks, embeddings))
	require.NoError(t, store.Delete(ctx, "doc-hash"))

	_, _, err := store.Get(ctx, "doc-hash")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting an absent document is not an error.
	assert.NoError(t, store.Delete(ctx, "doc-hash"))
}

func TestStoreSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()
	chunks, embeddings := sampleChunks()

	first, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "doc-hash", chunks, embeddings))
	require.NoError(t, first.Close())

	second, err := NewStore(dbPath)
	require.NoError(t, err)
	defer second.Close()

	gotChunks, gotEmbeddings, err := second.Get(ctx, "doc-hash")
	require.NoError(t, err)
	assert.Equal(t, chunks, gotChunks)
	assert.Equal(t, embeddings, gotEmbeddings)
}

func TestStoreIsolatesDocuments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	chunks, embeddings := sampleChunks()

	require.NoError(t, store.Put(ctx, "doc-a", chunks, embeddings))
	require.NoError(t, store.Put(ctx, "doc-b", chunks[:1], embeddings[:1]))
	require.NoError(t, store.Delete(ctx, "doc-a"))

	gotChunks, _, err := store.Get(ctx, "doc-b")
	require.NoError(t, err)
	assert.Len(t, gotChunks, 1)
}
