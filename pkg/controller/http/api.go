package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/usecase"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/errutil"
)

type createMemoryRequest struct {
	UserID      string         `json:"user_id"`
	Content     string         `json:"content"`
	ContentType string         `json:"content_type"`
	Metadata    map[string]any `json:"metadata"`
}

type memoryResponse struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	ExternalMemoryID string    `json:"external_memory_id,omitempty"`
	Content          string    `json:"content"`
	Tags             []string  `json:"tags,omitempty"`
	MessageType      string    `json:"message_type,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func (s *Server) createMemoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to decode memory request"), http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Content == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("user_id and content are required"), http.StatusBadRequest)
		return
	}

	record, err := s.uc.AddManualMemory(ctx, usecase.ManualMemoryInput{
		UserID:      types.UserID(req.UserID),
		Content:     req.Content,
		ContentType: types.MessageType(req.ContentType),
		Metadata:    req.Metadata,
	})
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
		return
	}

	respondJSON(w, r, http.StatusCreated, map[string]any{
		"status": "created",
		"memory": memoryFromRecord(record),
	})
}

func (s *Server) searchMemoriesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query().Get("query")
	userID := r.URL.Query().Get("user_id")
	if query == "" || userID == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("query and user_id are required"), http.StatusBadRequest)
		return
	}
	limit := intParam(r, "limit", 10)

	out, err := s.uc.Search(ctx, types.UserID(userID), query, limit)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
		return
	}

	results := make([]map[string]any, 0, len(out.Results))
	for _, res := range out.Results {
		entry := map[string]any{
			"content":      res.RawText,
			"display_text": res.DisplayText,
			"score":        res.Score,
			"content_type": res.ContentType.String(),
		}
		if res.ExternalMemoryID != "" {
			entry["external_memory_id"] = res.ExternalMemoryID.String()
		}
		if len(res.Tags) > 0 {
			entry["tags"] = res.Tags
		}
		if res.Matched != nil {
			entry["memory_id"] = res.Matched.Memory.ID.String()
			entry["interaction_date"] = res.Matched.InteractionDate.UTC().Format(time.RFC3339)
		}
		results = append(results, entry)
	}

	body := map[string]any{
		"query":    query,
		"user_id":  userID,
		"count":    len(results),
		"results":  results,
		"fallback": out.Fallback,
	}
	if out.Range != nil {
		body["time_filter"] = map[string]any{
			"start": out.Range.Start.UTC().Format(time.RFC3339),
			"end":   out.Range.End.UTC().Format(time.RFC3339),
		}
		if out.UsedRef != nil {
			body["time_phrase"] = out.UsedRef.RawText
		}
	}

	respondJSON(w, r, http.StatusOK, body)
}

func (s *Server) listMemoriesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("user_id is required"), http.StatusBadRequest)
		return
	}
	limit := intParam(r, "limit", 20)
	timeFilter := r.URL.Query().Get("time_filter")

	records, rng, err := s.uc.ListMemories(ctx, types.UserID(userID), limit, timeFilter)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
		return
	}

	memories := make([]memoryResponse, 0, len(records))
	for _, rec := range records {
		memories = append(memories, memoryFromJoined(rec))
	}

	body := map[string]any{
		"user_id":  userID,
		"count":    len(memories),
		"memories": memories,
	}
	if rng != nil {
		body["time_filter"] = map[string]any{
			"phrase": timeFilter,
			"start":  rng.Start.UTC().Format(time.RFC3339),
			"end":    rng.End.UTC().Format(time.RFC3339),
		}
	}

	respondJSON(w, r, http.StatusOK, body)
}

func (s *Server) deleteMemoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	memoryID := chi.URLParam(r, "memoryID")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("user_id is required"), http.StatusBadRequest)
		return
	}

	deleted, err := s.uc.DeleteMemory(ctx, types.ExternalMemoryID(memoryID), types.UserID(userID))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, interfaces.ErrSemanticValidation) {
			status = http.StatusNotFound
		}
		errutil.HandleHTTP(ctx, w, err, status)
		return
	}
	if !deleted {
		errutil.HandleHTTP(ctx, w, goerr.New("memory not found", goerr.V("memory_id", memoryID)), http.StatusNotFound)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"status":    "deleted",
		"memory_id": memoryID,
	})
}

func (s *Server) recentInteractionsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("user_id is required"), http.StatusBadRequest)
		return
	}
	limit := intParam(r, "limit", 10)

	interactions, err := s.uc.RecentInteractions(ctx, types.UserID(userID), limit)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
		return
	}

	items := make([]map[string]any, 0, len(interactions))
	for _, it := range interactions {
		entry := map[string]any{
			"id":           it.Interaction.ID.String(),
			"message_sid":  it.Interaction.MessageSID.String(),
			"message_type": it.Interaction.MessageType.String(),
			"content":      it.Interaction.Content,
			"phone_number": it.PhoneNumber,
			"created_at":   it.Interaction.CreatedAt.UTC().Format(time.RFC3339),
		}
		if it.Interaction.Transcript != "" {
			entry["transcript"] = it.Interaction.Transcript
		}
		items = append(items, entry)
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"user_id":      userID,
		"count":        len(items),
		"interactions": items,
	})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := s.uc.Stats(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"stats": stats,
		"derived": map[string]float64{
			"avg_interactions_per_user":   stats.AvgInteractionsPerUser(),
			"avg_memories_per_user":       stats.AvgMemoriesPerUser(),
			"memory_to_interaction_ratio": stats.MemoryToInteractionRatio(),
		},
	})
}

func memoryFromRecord(rec *model.MemoryRecord) memoryResponse {
	return memoryResponse{
		ID:               rec.ID.String(),
		UserID:           rec.UserID.String(),
		ExternalMemoryID: rec.ExternalMemoryID.String(),
		Content:          rec.Content,
		Tags:             rec.Tags,
		CreatedAt:        rec.CreatedAt.UTC(),
	}
}

func memoryFromJoined(rec *model.MemoryWithInteraction) memoryResponse {
	resp := memoryFromRecord(&rec.Memory)
	resp.MessageType = rec.MessageType.String()
	if !rec.InteractionDate.IsZero() {
		resp.CreatedAt = rec.InteractionDate.UTC()
	}
	return resp
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
