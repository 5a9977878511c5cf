package mem0

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/safe"
)

const defaultAPIBase = "https://api.mem0.ai"

// Client is a semantic index backed by the mem0 memory API.
// Failures are classified with the interfaces sentinel errors so the
// search path can soft-fail.
type Client struct {
	apiKey     string
	orgID      string
	projectID  string
	apiBase    string
	httpClient *http.Client
}

var _ interfaces.SemanticIndex = &Client{}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAPIBase overrides the API base URL
func WithAPIBase(base string) Option {
	return func(c *Client) {
		c.apiBase = strings.TrimSuffix(base, "/")
	}
}

func New(apiKey, orgID, projectID string, opts ...Option) (*Client, error) {
	if apiKey == "" || orgID == "" || projectID == "" {
		return nil, goerr.New("mem0 API key, org ID and project ID are required")
	}

	c := &Client{
		apiKey:     apiKey,
		orgID:      orgID,
		projectID:  projectID,
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type addRequest struct {
	Messages     []message      `json:"messages"`
	UserID       string         `json:"user_id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Infer        bool           `json:"infer"`
	OutputFormat string         `json:"output_format"`
	Version      string         `json:"version"`
	OrgID        string         `json:"org_id"`
	ProjectID    string         `json:"project_id"`
}

type searchRequest struct {
	Query     string         `json:"query"`
	Filters   map[string]any `json:"filters"`
	TopK      int            `json:"top_k"`
	OrgID     string         `json:"org_id"`
	ProjectID string         `json:"project_id"`
}

// memoryObject is one backend memory in any response shape
type memoryObject struct {
	ID       string         `json:"id"`
	Memory   string         `json:"memory"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// Add stores content for the user and returns the backend memory ID
func (c *Client) Add(ctx context.Context, content string, userID types.UserID, metadata map[string]any) (types.ExternalMemoryID, error) {
	req := addRequest{
		Messages:     []message{{Role: "user", Content: content}},
		UserID:       userID.String(),
		Metadata:     metadata,
		Infer:        false,
		OutputFormat: "v1.1",
		Version:      "v2",
		OrgID:        c.orgID,
		ProjectID:    c.projectID,
	}

	body, err := c.do(ctx, http.MethodPost, "/v1/memories/", req)
	if err != nil {
		return "", err
	}

	objects, err := normalizeMemoryObjects(body)
	if err != nil {
		return "", err
	}
	if len(objects) == 0 || objects[0].ID == "" {
		return "", goerr.Wrap(interfaces.ErrSemanticValidation, "backend returned no memory ID",
			goerr.V("user_id", userID))
	}
	return types.ExternalMemoryID(objects[0].ID), nil
}

// Search performs a filtered similarity search. The user scope is
// always applied; a time range is AND-composed with it.
func (c *Client) Search(ctx context.Context, q interfaces.SemanticQuery) ([]model.SemanticHit, error) {
	if q.UserID == "" {
		return nil, goerr.Wrap(interfaces.ErrSemanticValidation, "user ID is required for search")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	req := searchRequest{
		Query:     q.Query,
		Filters:   buildFilters(q.UserID, q.Range),
		TopK:      limit,
		OrgID:     c.orgID,
		ProjectID: c.projectID,
	}

	body, err := c.do(ctx, http.MethodPost, "/v2/memories/search/", req)
	if err != nil {
		return nil, err
	}

	objects, err := normalizeMemoryObjects(body)
	if err != nil {
		return nil, err
	}

	hits := make([]model.SemanticHit, 0, len(objects))
	for _, obj := range objects {
		text := obj.Memory
		if text == "" {
			text = obj.Content
		}
		hits = append(hits, model.SemanticHit{
			ExternalMemoryID: types.ExternalMemoryID(obj.ID),
			Text:             text,
			Score:            obj.Score,
			Metadata:         obj.Metadata,
		})
	}
	return hits, nil
}

// Update replaces the content of an existing backend memory
func (c *Client) Update(ctx context.Context, id types.ExternalMemoryID, userID types.UserID, content string) (bool, error) {
	payload := map[string]any{
		"text":    content,
		"user_id": userID.String(),
	}
	if _, err := c.do(ctx, http.MethodPut, "/v1/memories/"+id.String()+"/", payload); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a backend memory
func (c *Client) Delete(ctx context.Context, id types.ExternalMemoryID, userID types.UserID) (bool, error) {
	if _, err := c.do(ctx, http.MethodDelete, "/v1/memories/"+id.String()+"/", nil); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode request", goerr.V("path", path))
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, reqBody)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build request", goerr.V("path", path))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(interfaces.ErrSemanticUnavailable, "request failed",
			goerr.V("path", path), goerr.V("cause", err.Error()))
	}
	defer safe.Close(ctx, resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, goerr.Wrap(interfaces.ErrSemanticUnavailable, "failed to read response",
			goerr.V("path", path))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, goerr.Wrap(interfaces.ErrSemanticValidation, "backend rejected request",
			goerr.V("path", path), goerr.V("status", resp.StatusCode), goerr.V("body", string(body[:min(len(body), 512)])))
	default:
		return nil, goerr.Wrap(interfaces.ErrSemanticUnavailable, "backend returned server error",
			goerr.V("path", path), goerr.V("status", resp.StatusCode))
	}
}

// normalizeMemoryObjects accepts the three response shapes the backend
// is known to produce: a bare array, an object wrapping a "results"
// array, and a single object.
func normalizeMemoryObjects(body []byte) ([]memoryObject, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var objects []memoryObject
		if err := json.Unmarshal(trimmed, &objects); err != nil {
			return nil, goerr.Wrap(interfaces.ErrSemanticValidation, "unexpected response shape",
				goerr.V("body", string(trimmed[:min(len(trimmed), 512)])))
		}
		return objects, nil
	}

	var wrapped struct {
		Results []memoryObject `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err == nil && wrapped.Results != nil {
		return wrapped.Results, nil
	}

	var single memoryObject
	if err := json.Unmarshal(trimmed, &single); err != nil || single.ID == "" {
		return nil, goerr.Wrap(interfaces.ErrSemanticValidation, "unexpected response shape",
			goerr.V("body", string(trimmed[:min(len(trimmed), 512)])))
	}
	return []memoryObject{single}, nil
}

// buildFilters composes the mandatory user scope with an optional
// creation-time range.
func buildFilters(userID types.UserID, rng *model.ResolvedRange) map[string]any {
	userFilter := map[string]any{"user_id": userID.String()}
	if rng == nil {
		return userFilter
	}
	return map[string]any{
		"AND": []map[string]any{
			userFilter,
			{"created_at": map[string]any{
				"gte": rng.Start.Format(time.RFC3339),
				"lte": rng.End.Format(time.RFC3339),
			}},
		},
	}
}
