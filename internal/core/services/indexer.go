package services

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/parchmentlabs/clauseseek/internal/core/domain"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driven"
	"github.com/parchmentlabs/clauseseek/internal/core/ports/driving"
	"github.com/parchmentlabs/clauseseek/internal/index"
	"github.com/parchmentlabs/clauseseek/internal/logger"
)

// BuiltIndex is a document's searchable form: its chunks and the vector
// index over them. Read-only once built, safe for concurrent searches.
type BuiltIndex struct {
	Document *domain.Document
	Chunks   []domain.Chunk
	Index    driven.VectorIndex
	Stats    driving.IndexStats
}

// IndexManager builds and caches one vector index per document identity.
// The cache is a size-bounded LRU keyed by content hash; concurrent
// requests for the same uncached document share a single build.
type IndexManager struct {
	embedder driven.EmbeddingService
	pipeline driven.PostProcessorPipeline
	store    driven.ChunkStore // optional; nil disables persistence

	group singleflight.Group

	mu      sync.Mutex
	maxSize int
	entries map[string]*list.Element
	order   *list.List // front = most recently used
}

type cacheEntry struct {
	key   string
	built *BuiltIndex
}

// NewIndexManager builds an index manager. store may be nil, in which case
// every uncached document is re-chunked and re-embedded.
func NewIndexManager(embedder driven.EmbeddingService, pipeline driven.PostProcessorPipeline, store driven.ChunkStore, cacheSize int) *IndexManager {
	if cacheSize < 1 {
		cacheSize = 1
	}
	return &IndexManager{
		embedder: embedder,
		pipeline: pipeline,
		store:    store,
		maxSize:  cacheSize,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the built index for the document, building it on a miss.
// At most one build per document identity runs at a time; concurrent
// callers for the same identity wait on the first build's result.
func (m *IndexManager) Get(ctx context.Context, doc *domain.Document) (*BuiltIndex, error) {
	if built := m.lookup(doc.ID); built != nil {
		logger.Debug("index cache hit for document %s", shortID(doc.ID))
		return built, nil
	}

	v, err, shared := m.group.Do(doc.ID, func() (any, error) {
		if built := m.lookup(doc.ID); built != nil {
			return built, nil
		}
		built, err := m.build(ctx, doc)
		if err != nil {
			return nil, err
		}
		m.insert(doc.ID, built)
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("index build for document %s shared across callers", shortID(doc.ID))
	}
	return v.(*BuiltIndex), nil
}

// Stats returns the statistics of a cached index, or domain.ErrNotFound
// when the document is not currently cached.
func (m *IndexManager) Stats(docID string) (driving.IndexStats, error) {
	if built := m.lookup(docID); built != nil {
		return built.Stats, nil
	}
	return driving.IndexStats{}, fmt.Errorf("index stats for %s: %w", docID, domain.ErrNotFound)
}

// Close releases every cached index.
func (m *IndexManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for e := m.order.Front(); e != nil; e = e.Next() {
		entry := e.Value.(*cacheEntry)
		if err := entry.built.Index.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.entries = make(map[string]*list.Element)
	m.order.Init()
	return firstErr
}

func (m *IndexManager) lookup(docID string) *BuiltIndex {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[docID]
	if !ok {
		return nil
	}
	m.order.MoveToFront(e)
	return e.Value.(*cacheEntry).built
}

func (m *IndexManager) insert(docID string, built *BuiltIndex) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[docID]; ok {
		m.order.MoveToFront(e)
		e.Value.(*cacheEntry).built = built
		return
	}
	m.entries[docID] = m.order.PushFront(&cacheEntry{key: docID, built: built})
	for m.order.Len() > m.maxSize {
		oldest := m.order.Back()
		entry := oldest.Value.(*cacheEntry)
		m.order.Remove(oldest)
		delete(m.entries, entry.key)
		if err := entry.built.Index.Close(); err != nil {
			logger.Warn("closing evicted index %s: %v", shortID(entry.key), err)
		}
		logger.Debug("index cache evicted document %s", shortID(entry.key))
	}
}

// build chunks, embeds and indexes one document. The chunk store, when
// present, short-circuits the chunking and embedding passes for documents
// seen before.
func (m *IndexManager) build(ctx context.Context, doc *domain.Document) (*BuiltIndex, error) {
	chunks, embeddings, cached := m.fromStore(ctx, doc.ID)
	complete := cached

	if !cached {
		var err error
		chunks, err = m.pipeline.Process(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrIndexBuild, err)
		}
		if len(chunks) == 0 {
			return nil, fmt.Errorf("document %s: %w", shortID(doc.ID), domain.ErrEmptyDocument)
		}
		embeddings, complete, err = m.embed(ctx, chunks)
		if err != nil {
			return nil, err
		}
	}

	idx, err := index.NewFlat(m.embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexBuild, err)
	}
	indexed := 0
	for i, chunk := range chunks {
		if embeddings[i] == nil {
			continue
		}
		if err := idx.Add(ctx, chunk.ID, embeddings[i]); err != nil {
			return nil, fmt.Errorf("%w: adding chunk %d: %v", domain.ErrIndexBuild, chunk.ID, err)
		}
		indexed++
	}
	if indexed == 0 {
		return nil, fmt.Errorf("%w: no chunk could be embedded", domain.ErrIndexBuild)
	}

	if m.store != nil && complete && !cached {
		if err := m.store.Put(ctx, doc.ID, chunks, embeddings); err != nil {
			logger.Warn("persisting chunks for %s: %v", shortID(doc.ID), err)
		}
	}

	built := &BuiltIndex{
		Document: doc,
		Chunks:   chunks,
		Index:    idx,
		Stats:    computeStats(doc.ID, chunks, m.embedder.Dimensions()),
	}
	logger.Info("indexed document %s: %d chunks over %d pages",
		shortID(doc.ID), built.Stats.Chunks, built.Stats.Pages)
	return built, nil
}

// fromStore loads persisted chunks and embeddings, rejecting entries whose
// embedding dimension no longer matches the configured model.
func (m *IndexManager) fromStore(ctx context.Context, docID string) ([]domain.Chunk, [][]float32, bool) {
	if m.store == nil {
		return nil, nil, false
	}
	chunks, embeddings, err := m.store.Get(ctx, docID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("chunk store read for %s: %v", shortID(docID), err)
		}
		return nil, nil, false
	}
	if len(chunks) == 0 || len(chunks) != len(embeddings) {
		return nil, nil, false
	}
	for _, e := range embeddings {
		if len(e) != m.embedder.Dimensions() {
			logger.Debug("chunk store entry for %s has stale dimension, rebuilding", shortID(docID))
			return nil, nil, false
		}
	}
	logger.Debug("chunk store hit for document %s (%d chunks)", shortID(docID), len(chunks))
	return chunks, embeddings, true
}

// embed runs the batch embedding pass. A batch failure degrades to
// per-chunk embedding, skipping chunks that still fail; the returned
// complete flag reports whether every chunk was embedded.
func (m *IndexManager) embed(ctx context.Context, chunks []domain.Chunk) ([][]float32, bool, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := m.embedder.EmbedBatch(ctx, texts)
	if err == nil {
		if len(embeddings) != len(chunks) {
			return nil, false, fmt.Errorf("%w: embedder returned %d vectors for %d chunks",
				domain.ErrIndexBuild, len(embeddings), len(chunks))
		}
		return embeddings, true, nil
	}
	if ctx.Err() != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	logger.Warn("batch embedding failed, retrying per chunk: %v", err)

	embeddings = make([][]float32, len(chunks))
	complete := true
	for i, text := range texts {
		if ctx.Err() != nil {
			return nil, false, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, ctx.Err())
		}
		v, err := m.embedder.Embed(ctx, text)
		if err != nil {
			logger.Warn("embedding chunk %d failed, skipping: %v", chunks[i].ID, err)
			complete = false
			continue
		}
		embeddings[i] = v
	}
	return embeddings, complete, nil
}

// shortID abbreviates a content hash for log lines.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func computeStats(docID string, chunks []domain.Chunk, dims int) driving.IndexStats {
	pages := make(map[int]struct{})
	tokens := 0
	for _, c := range chunks {
		pages[c.Page] = struct{}{}
		tokens += c.TokenCount
	}
	mean := 0.0
	if len(chunks) > 0 {
		mean = float64(tokens) / float64(len(chunks))
	}
	return driving.IndexStats{
		DocumentID:      docID,
		Chunks:          len(chunks),
		Pages:           len(pages),
		MeanChunkTokens: mean,
		Dimensions:      dims,
	}
}
