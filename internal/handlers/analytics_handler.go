package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/interfaces"
)

const defaultReportDays = 30

// AnalyticsHandler handles interaction analytics HTTP requests
type AnalyticsHandler struct {
	analytics interfaces.AnalyticsService
	logger    arbor.ILogger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analytics interfaces.AnalyticsService, logger arbor.ILogger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		logger:    logger,
	}
}

// StatsHandler handles GET /api/analytics/stats requests
func (h *AnalyticsHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	requester := RequesterFromQuery(r)
	companyID, ok := RequireCompany(w, requester)
	if !ok {
		return
	}

	days := QueryInt(r, "days", defaultReportDays)
	summary, err := h.analytics.Summary(r.Context(), companyID, days)
	if err != nil {
		h.logger.Error().Err(err).Str("company_id", companyID).Msg("Failed to compute analytics summary")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

// RecentHandler handles GET /api/analytics/interactions requests
func (h *AnalyticsHandler) RecentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	requester := RequesterFromQuery(r)
	companyID, ok := RequireCompany(w, requester)
	if !ok {
		return
	}

	limit := QueryInt(r, "limit", 20)
	interactions, err := h.analytics.RecentInteractions(r.Context(), companyID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("company_id", companyID).Msg("Failed to list recent interactions")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"interactions": interactions,
		"count":        len(interactions),
	})
}

// ReportHandler handles GET /api/analytics/report requests, rendering a PDF
// usage report and returning it as a download.
func (h *AnalyticsHandler) ReportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	requester := RequesterFromQuery(r)
	companyID, ok := RequireCompany(w, requester)
	if !ok {
		return
	}

	days := QueryInt(r, "days", defaultReportDays)
	path, err := h.analytics.WriteReportPDF(r.Context(), companyID, days)
	if err != nil {
		h.logger.Error().Err(err).Str("company_id", companyID).Msg("Failed to render analytics report")
		WriteServiceError(w, err)
		return
	}

	h.logger.Info().Str("company_id", companyID).Str("path", path).Msg("Analytics report rendered")

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}
