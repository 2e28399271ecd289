package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/interfaces"
)

// TrainingHandler handles knowledge ingestion HTTP requests
type TrainingHandler struct {
	training interfaces.TrainingService
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewTrainingHandler creates a new training handler
func NewTrainingHandler(training interfaces.TrainingService, logger arbor.ILogger) *TrainingHandler {
	return &TrainingHandler{
		training: training,
		validate: validator.New(),
		logger:   logger,
	}
}

// TrainWebsiteRequest is the POST /api/training/website body
type TrainWebsiteRequest struct {
	RequesterParams
	URL string `json:"url" validate:"required,url"`
}

// TrainTextRequest is the POST /api/training/text body
type TrainTextRequest struct {
	RequesterParams
	Content  string                 `json:"content" validate:"required"`
	Source   string                 `json:"source"`
	Category string                 `json:"category"`
	Metadata map[string]interface{} `json:"metadata"`
}

// TrainConnectorRequest is the POST /api/training/connector body
type TrainConnectorRequest struct {
	RequesterParams
	ConnectorID string `json:"connector_id" validate:"required"`
}

// WebsiteHandler handles POST /api/training/website requests. The crawl runs
// synchronously; page and depth limits in the scraper config bound how long
// one request can take.
func (h *TrainingHandler) WebsiteHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req TrainWebsiteRequest
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

	h.logger.Info().Str("company_id", companyID).Str("url", req.URL).Msg("Website training requested")

	result, err := h.training.TrainFromWebsite(r.Context(), companyID, req.URL)
	if err != nil {
		h.logger.Error().Err(err).Str("company_id", companyID).Str("url", req.URL).Msg("Website training failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// TextHandler handles POST /api/training/text requests
func (h *TrainingHandler) TextHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req TrainTextRequest
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

	entry, err := h.training.TrainFromText(r.Context(), companyID, &interfaces.AddEntryRequest{
		Content:  req.Content,
		Source:   req.Source,
		Category: req.Category,
		Metadata: req.Metadata,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("company_id", companyID).Msg("Text training failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, entrySummary(entry))
}

// ConnectorHandler handles POST /api/training/connector requests
func (h *TrainingHandler) ConnectorHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req TrainConnectorRequest
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

	h.logger.Info().Str("company_id", companyID).Str("connector_id", req.ConnectorID).Msg("Connector training requested")

	result, err := h.training.TrainFromConnector(r.Context(), companyID, req.ConnectorID)
	if err != nil {
		h.logger.Error().Err(err).Str("company_id", companyID).Str("connector_id", req.ConnectorID).Msg("Connector training failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
