package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/kislikjeka/moneybuckets/internal/platform/keyword"
)

// KeywordServiceInterface defines the interface for keyword mapping operations
type KeywordServiceInterface interface {
	Create(ctx context.Context, userID uuid.UUID, kw string, bucketID uuid.UUID) (*keyword.Mapping, error)
	List(ctx context.Context, userID uuid.UUID) ([]*keyword.Mapping, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Suggest(ctx context.Context, userID uuid.UUID, description string) (*keyword.Mapping, error)
}

// KeywordHandler handles keyword mapping HTTP requests
type KeywordHandler struct {
	keywords KeywordServiceInterface
}

// NewKeywordHandler creates a new keyword handler
func NewKeywordHandler(keywords KeywordServiceInterface) *KeywordHandler {
	return &KeywordHandler{keywords: keywords}
}

// KeywordRequest maps a keyword to a bucket
type KeywordRequest struct {
	Keyword  string `json:"keyword"`
	BucketID string `json:"bucket_id"`
}

// KeywordResponse represents a keyword mapping
type KeywordResponse struct {
	ID        string `json:"id"`
	Keyword   string `json:"keyword"`
	BucketID  string `json:"bucket_id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// KeywordsListResponse lists keyword mappings
type KeywordsListResponse struct {
	Keywords []KeywordResponse `json:"keywords"`
}

// SuggestionResponse is the best match for a description, if any
type SuggestionResponse struct {
	Match *KeywordResponse `json:"match"`
}

// CreateKeyword handles POST /keywords
func (h *KeywordHandler) CreateKeyword(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req KeywordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	bucketID, err := uuid.Parse(req.BucketID)
	if err != nil {
		respondError(w, "invalid bucket_id", http.StatusBadRequest)
		return
	}

	m, err := h.keywords.Create(r.Context(), userID, req.Keyword, bucketID)
	if err != nil {
		respondServiceError(w, err, "failed to create keyword mapping")
		return
	}

	respondJSON(w, toKeywordResponse(m), http.StatusCreated)
}

// GetKeywords handles GET /keywords
func (h *KeywordHandler) GetKeywords(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	mappings, err := h.keywords.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err, "failed to fetch keyword mappings")
		return
	}

	items := make([]KeywordResponse, 0, len(mappings))
	for _, m := range mappings {
		items = append(items, toKeywordResponse(m))
	}
	respondJSON(w, KeywordsListResponse{Keywords: items}, http.StatusOK)
}

// DeleteKeyword handles DELETE /keywords/{id}
func (h *KeywordHandler) DeleteKeyword(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "keyword")
	if !ok {
		return
	}

	if err := h.keywords.Delete(r.Context(), userID, id); err != nil {
		respondServiceError(w, err, "failed to delete keyword mapping")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Suggest handles GET /keywords/suggest?description=...
func (h *KeywordHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	description := r.URL.Query().Get("description")
	if description == "" {
		respondError(w, "description is required", http.StatusBadRequest)
		return
	}

	m, err := h.keywords.Suggest(r.Context(), userID, description)
	if err != nil {
		respondServiceError(w, err, "failed to suggest bucket")
		return
	}

	var resp SuggestionResponse
	if m != nil {
		match := toKeywordResponse(m)
		resp.Match = &match
	}
	respondJSON(w, resp, http.StatusOK)
}

func toKeywordResponse(m *keyword.Mapping) KeywordResponse {
	return KeywordResponse{
		ID:        m.ID.String(),
		Keyword:   m.Keyword,
		BucketID:  m.BucketID.String(),
		CreatedAt: formatTime(m.CreatedAt),
		UpdatedAt: formatTime(m.UpdatedAt),
	}
}
