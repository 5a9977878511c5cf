// Package local implements the semantic index on an embedded vector
// store. It keeps everything on the local machine: embeddings come
// from the LLM client and vectors live in chromem-go, so no external
// memory service is required.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	chromem "github.com/philippgille/chromem-go"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

type Index struct {
	db        *chromem.DB
	llmClient gollem.LLMClient

	mu          sync.Mutex
	collections map[types.UserID]*chromem.Collection
}

var _ interfaces.SemanticIndex = (*Index)(nil)

type Option func(*config)

type config struct {
	path string
}

// WithPath persists the vector store under the given directory. The
// default is a pure in-memory store that is lost on restart.
func WithPath(path string) Option {
	return func(cfg *config) {
		cfg.path = path
	}
}

func New(llmClient gollem.LLMClient, opts ...Option) (*Index, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required for the local semantic index")
	}

	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	db := chromem.NewDB()
	if cfg.path != "" {
		persistent, err := chromem.NewPersistentDB(cfg.path, false)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open persistent vector store", goerr.V("path", cfg.path))
		}
		db = persistent
	}

	return &Index{
		db:          db,
		llmClient:   llmClient,
		collections: make(map[types.UserID]*chromem.Collection),
	}, nil
}

// collection returns the per-user collection, creating it on first
// use. Each user gets an isolated namespace.
func (x *Index) collection(userID types.UserID) (*chromem.Collection, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if col, ok := x.collections[userID]; ok {
		return col, nil
	}

	col, err := x.db.GetOrCreateCollection(fmt.Sprintf("user_%s", userID), nil, nil)
	if err != nil {
		return nil, goerr.Wrap(interfaces.ErrSemanticUnavailable, "failed to create vector collection",
			goerr.V("user_id", userID), goerr.V("cause", err.Error()))
	}

	x.collections[userID] = col
	return col, nil
}

func (x *Index) embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := x.llmClient.GenerateEmbedding(ctx, model.EmbeddingDimension, []string{text})
	if err != nil {
		return nil, goerr.Wrap(interfaces.ErrSemanticUnavailable, "failed to generate embedding",
			goerr.V("cause", err.Error()))
	}
	if len(embeddings) == 0 {
		return nil, goerr.Wrap(interfaces.ErrSemanticUnavailable, "embedding response is empty")
	}

	vec := make([]float32, len(embeddings[0]))
	for i, v := range embeddings[0] {
		vec[i] = float32(v)
	}
	return vec, nil
}

func (x *Index) Add(ctx context.Context, content string, userID types.UserID, metadata map[string]any) (types.ExternalMemoryID, error) {
	if content == "" {
		return "", goerr.Wrap(interfaces.ErrSemanticValidation, "content is empty")
	}
	if userID == "" {
		return "", goerr.Wrap(interfaces.ErrSemanticValidation, "user ID is required")
	}

	col, err := x.collection(userID)
	if err != nil {
		return "", err
	}

	vec, err := x.embed(ctx, content)
	if err != nil {
		return "", err
	}

	id := types.ExternalMemoryID(uuid.New().String())
	doc := chromem.Document{
		ID:        id.String(),
		Content:   content,
		Embedding: vec,
		Metadata:  encodeMetadata(userID, metadata),
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return "", goerr.Wrap(interfaces.ErrSemanticUnavailable, "failed to store vector document",
			goerr.V("memory_id", id), goerr.V("cause", err.Error()))
	}

	return id, nil
}

func (x *Index) Search(ctx context.Context, q interfaces.SemanticQuery) ([]model.SemanticHit, error) {
	if q.UserID == "" {
		return nil, goerr.Wrap(interfaces.ErrSemanticValidation, "user ID is required for semantic search")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	col, err := x.collection(q.UserID)
	if err != nil {
		return nil, err
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}

	vec, err := x.embed(ctx, q.Query)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults larger than the collection. When a
	// time range filter is active, over-fetch so post-filtering can
	// still fill the limit.
	fetch := limit
	if q.Range != nil {
		fetch = limit * 4
	}
	fetch = min(fetch, count)

	results, err := col.QueryEmbedding(ctx, vec, fetch, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(interfaces.ErrSemanticUnavailable, "vector query failed",
			goerr.V("user_id", q.UserID), goerr.V("cause", err.Error()))
	}

	hits := make([]model.SemanticHit, 0, len(results))
	for _, result := range results {
		metadata := decodeMetadata(result.Metadata)
		if q.Range != nil && !inRange(metadata, *q.Range) {
			continue
		}
		hits = append(hits, model.SemanticHit{
			ExternalMemoryID: types.ExternalMemoryID(result.ID),
			Text:             result.Content,
			Score:            float64(result.Similarity),
			Metadata:         metadata,
		})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func (x *Index) Update(ctx context.Context, id types.ExternalMemoryID, userID types.UserID, content string) (bool, error) {
	col, err := x.collection(userID)
	if err != nil {
		return false, err
	}

	existing, err := col.GetByID(ctx, id.String())
	if err != nil {
		return false, goerr.Wrap(interfaces.ErrSemanticValidation, "memory not found",
			goerr.V("memory_id", id))
	}

	vec, err := x.embed(ctx, content)
	if err != nil {
		return false, err
	}

	doc := chromem.Document{
		ID:        id.String(),
		Content:   content,
		Embedding: vec,
		Metadata:  existing.Metadata,
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return false, goerr.Wrap(interfaces.ErrSemanticUnavailable, "failed to replace vector document",
			goerr.V("memory_id", id), goerr.V("cause", err.Error()))
	}
	return true, nil
}

func (x *Index) Delete(ctx context.Context, id types.ExternalMemoryID, userID types.UserID) (bool, error) {
	col, err := x.collection(userID)
	if err != nil {
		return false, err
	}

	if _, err := col.GetByID(ctx, id.String()); err != nil {
		return false, goerr.Wrap(interfaces.ErrSemanticValidation, "memory not found",
			goerr.V("memory_id", id))
	}

	if err := col.Delete(ctx, nil, nil, id.String()); err != nil {
		return false, goerr.Wrap(interfaces.ErrSemanticUnavailable, "failed to delete vector document",
			goerr.V("memory_id", id), goerr.V("cause", err.Error()))
	}
	return true, nil
}

// encodeMetadata flattens memory metadata into the string map chromem
// stores. Non-string values are JSON encoded and recovered on read.
func encodeMetadata(userID types.UserID, metadata map[string]any) map[string]string {
	encoded := map[string]string{
		"user_id": userID.String(),
	}
	for key, value := range metadata {
		if s, ok := value.(string); ok {
			encoded[key] = s
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			continue
		}
		encoded[key] = string(raw)
	}
	return encoded
}

func decodeMetadata(encoded map[string]string) map[string]any {
	metadata := make(map[string]any, len(encoded))
	for key, value := range encoded {
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			switch decoded.(type) {
			case map[string]any, []any, float64, bool:
				metadata[key] = decoded
				continue
			}
		}
		metadata[key] = value
	}
	return metadata
}

// inRange reports whether a document's stored creation instant falls
// inside the resolved range. Documents without a parseable timestamp
// are excluded: a time-scoped search must never surface a hit it
// cannot place in time.
func inRange(metadata map[string]any, rng model.ResolvedRange) bool {
	raw, ok := metadata["created_at"].(string)
	if !ok {
		return false
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return false
	}
	return rng.Contains(ts)
}
