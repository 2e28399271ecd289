package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
)

// ConnectorHandler handles connector management HTTP requests
type ConnectorHandler struct {
	service  interfaces.ConnectorService
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewConnectorHandler creates a new connector handler
func NewConnectorHandler(service interfaces.ConnectorService, logger arbor.ILogger) *ConnectorHandler {
	return &ConnectorHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// ConnectorRequest is the body for connector create and update calls.
// Config is the type-specific configuration, stored as raw JSON and parsed
// against the declared type.
type ConnectorRequest struct {
	RequesterParams
	Name    string          `json:"name" validate:"required"`
	Type    string          `json:"type" validate:"required,oneof=github email pdf"`
	Config  json.RawMessage `json:"config" validate:"required"`
	Enabled *bool           `json:"enabled"`
}

// connectorView hides credential material from API responses. The raw config
// contains tokens and passwords, so it never leaves the server.
func connectorView(c *models.Connector) map[string]interface{} {
	return map[string]interface{}{
		"id":         c.ID,
		"company_id": c.CompanyID,
		"name":       c.Name,
		"type":       c.Type,
		"enabled":    c.Enabled,
		"last_run":   c.LastRun,
		"created_at": c.CreatedAt,
		"updated_at": c.UpdatedAt,
	}
}

// ListHandler handles GET /api/connectors requests
func (h *ConnectorHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	requester := RequesterFromQuery(r)
	companyID, ok := RequireCompany(w, requester)
	if !ok {
		return
	}

	connectors, err := h.service.ListConnectors(r.Context(), companyID)
	if err != nil {
		h.logger.Error().Err(err).Str("company_id", companyID).Msg("Failed to list connectors")
		WriteServiceError(w, err)
		return
	}

	views := make([]map[string]interface{}, len(connectors))
	for i, connector := range connectors {
		views[i] = connectorView(connector)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"connectors": views,
		"count":      len(views),
	})
}

// CreateHandler handles POST /api/connectors requests
func (h *ConnectorHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var req ConnectorRequest
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

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	connector := &models.Connector{
		CompanyID: companyID,
		Name:      req.Name,
		Type:      models.ConnectorType(req.Type),
		Config:    req.Config,
		Enabled:   enabled,
	}

	if err := h.service.CreateConnector(r.Context(), connector); err != nil {
		h.logger.Error().Err(err).Str("company_id", companyID).Msg("Failed to create connector")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, connectorView(connector))
}

// GetHandler handles GET /api/connectors/{id} requests
func (h *ConnectorHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	connector, ok := h.loadScoped(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, connectorView(connector))
}

// UpdateHandler handles PUT /api/connectors/{id} requests
func (h *ConnectorHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadScoped(w, r)
	if !ok {
		return
	}

	var req ConnectorRequest
	if err := DecodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ValidationMessage(err))
		return
	}

	enabled := existing.Enabled
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	updated := &models.Connector{
		ID:      existing.ID,
		Name:    req.Name,
		Type:    models.ConnectorType(req.Type),
		Config:  req.Config,
		Enabled: enabled,
	}

	if err := h.service.UpdateConnector(r.Context(), updated); err != nil {
		h.logger.Error().Err(err).Str("connector_id", existing.ID).Msg("Failed to update connector")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, connectorView(updated))
}

// DeleteHandler handles DELETE /api/connectors/{id} requests
func (h *ConnectorHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	connector, ok := h.loadScoped(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteConnector(r.Context(), connector.ID); err != nil {
		h.logger.Error().Err(err).Str("connector_id", connector.ID).Msg("Failed to delete connector")
		WriteServiceError(w, err)
		return
	}

	WriteSuccess(w, "Connector deleted")
}

// TestHandler handles POST /api/connectors/{id}/test requests
func (h *ConnectorHandler) TestHandler(w http.ResponseWriter, r *http.Request) {
	connector, ok := h.loadScoped(w, r)
	if !ok {
		return
	}

	if err := h.service.TestConnector(r.Context(), connector.ID); err != nil {
		h.logger.Warn().Err(err).Str("connector_id", connector.ID).Msg("Connector test failed")
		WriteError(w, http.StatusBadGateway, fmt.Sprintf("Connection test failed: %v", err))
		return
	}

	WriteSuccess(w, "Connection test passed")
}

// loadScoped extracts the connector ID from the request path, loads the
// connector and enforces tenant scoping. A connector belonging to another
// company reads as not found, so IDs cannot be probed across tenants.
func (h *ConnectorHandler) loadScoped(w http.ResponseWriter, r *http.Request) (*models.Connector, bool) {
	requester := RequesterFromQuery(r)
	companyID, ok := RequireCompany(w, requester)
	if !ok {
		return nil, false
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/connectors/")
	id = strings.TrimSuffix(id, "/test")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Connector ID is required")
		return nil, false
	}

	connector, err := h.service.GetConnector(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return nil, false
	}

	if connector.CompanyID != companyID {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("connector not found: %s", id))
		return nil, false
	}

	return connector, true
}
