package handlers

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
)

// KnowledgeHandler handles knowledge base HTTP requests
type KnowledgeHandler struct {
	knowledge interfaces.KnowledgeService
	validate  *validator.Validate
	logger    arbor.ILogger
}

// NewKnowledgeHandler creates a new knowledge handler
func NewKnowledgeHandler(knowledge interfaces.KnowledgeService, logger arbor.ILogger) *KnowledgeHandler {
	return &KnowledgeHandler{
		knowledge: knowledge,
		validate:  validator.New(),
		logger:    logger,
	}
}

// AddEntryDTO is the POST /api/knowledge body
type AddEntryDTO struct {
	RequesterParams
	Content  string                 `json:"content" validate:"required"`
	Source   string                 `json:"source"`
	Category string                 `json:"category"`
	Metadata map[string]interface{} `json:"metadata"`
}

// entrySummary is the JSON view of a stored entry. Chunks and their vectors
// stay server-side; callers get the content, classification and analysis.
func entrySummary(entry *models.KnowledgeEntry) map[string]interface{} {
	return map[string]interface{}{
		"id":            entry.ID,
		"company_id":    entry.CompanyID,
		"content":       entry.Content,
		"source":        entry.Source,
		"category":      entry.Category,
		"chunk_count":   len(entry.Chunks),
		"word_count":    entry.Analysis.WordCount,
		"quality_score": entry.Analysis.QualityScore,
		"topics":        entry.Analysis.Topics,
		"metadata":      entry.Metadata,
		"created_at":    entry.CreatedAt,
		"updated_at":    entry.UpdatedAt,
	}
}

// ListHandler handles GET /api/knowledge requests. An optional category
// query parameter narrows the listing.
func (h *KnowledgeHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	requester := RequesterFromQuery(r)
	companyID, ok := RequireCompany(w, requester)
	if !ok {
		return
	}

	var entries []*models.KnowledgeEntry
	var err error
	if category := r.URL.Query().Get("category"); category != "" {
		entries, err = h.knowledge.ListByCategory(r.Context(), companyID, category)
	} else {
		entries, err = h.knowledge.List(r.Context(), companyID)
	}
	if err != nil {
		h.logger.Error().Err(err).Str("company_id", companyID).Msg("Failed to list knowledge entries")
		WriteServiceError(w, err)
		return
	}

	summaries := make([]map[string]interface{}, len(entries))
	for i, entry := range entries {
		summaries[i] = entrySummary(entry)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": summaries,
		"count":   len(summaries),
	})
}

// AddHandler handles POST /api/knowledge requests
func (h *KnowledgeHandler) AddHandler(w http.ResponseWriter, r *http.Request) {
	var req AddEntryDTO
	if err := DecodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ValidationMessage(err))
		return
	}

	companyID, ok := RequireCompany(w, req.Requester())
	if !ok {
		return
	}

	entry, err := h.knowledge.Add(r.Context(), companyID, &interfaces.AddEntryRequest{
		Content:  req.Content,
		Source:   req.Source,
		Category: req.Category,
		Metadata: req.Metadata,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("company_id", companyID).Msg("Failed to add knowledge entry")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, entrySummary(entry))
}

// ClearHandler handles DELETE /api/knowledge requests, removing every entry
// for the company.
func (h *KnowledgeHandler) ClearHandler(w http.ResponseWriter, r *http.Request) {
	requester := RequesterFromQuery(r)
	companyID, ok := RequireCompany(w, requester)
	if !ok {
		return
	}

	removed, err := h.knowledge.Clear(r.Context(), companyID)
	if err != nil {
		h.logger.Error().Err(err).Str("company_id", companyID).Msg("Failed to clear knowledge base")
		WriteServiceError(w, err)
		return
	}

	h.logger.Info().Str("company_id", companyID).Int("removed", removed).Msg("Knowledge base cleared")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"removed": removed,
	})
}

// DeleteEntryHandler handles DELETE /api/knowledge/{id} requests
func (h *KnowledgeHandler) DeleteEntryHandler(w http.ResponseWriter, r *http.Request) {
	requester := RequesterFromQuery(r)
	companyID, ok := RequireCompany(w, requester)
	if !ok {
		return
	}

	entryID := strings.TrimPrefix(r.URL.Path, "/api/knowledge/")
	if entryID == "" {
		WriteError(w, http.StatusBadRequest, "Entry ID is required")
		return
	}

	if err := h.knowledge.Delete(r.Context(), companyID, entryID); err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteSuccess(w, "Entry deleted")
}

// StatsHandler handles GET /api/knowledge/stats requests
func (h *KnowledgeHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	requester := RequesterFromQuery(r)
	companyID, ok := RequireCompany(w, requester)
	if !ok {
		return
	}

	stats, err := h.knowledge.Stats(r.Context(), companyID)
	if err != nil {
		h.logger.Error().Err(err).Str("company_id", companyID).Msg("Failed to compute knowledge stats")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
