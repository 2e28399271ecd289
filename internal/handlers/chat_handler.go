package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/interfaces"
)

// ChatHandler handles chat-related HTTP requests
type ChatHandler struct {
	engine   interfaces.ChatEngine
	llm      interfaces.LLMService
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(engine interfaces.ChatEngine, llm interfaces.LLMService, logger arbor.ILogger) *ChatHandler {
	return &ChatHandler{
		engine:   engine,
		llm:      llm,
		validate: validator.New(),
		logger:   logger,
	}
}

// ChatRequest is the POST /api/chat body
type ChatRequest struct {
	RequesterParams
	SessionID string `json:"session_id"`
	Message   string `json:"message" validate:"required"`
}

// ChatHandler handles POST /api/chat requests
func (h *ChatHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req ChatRequest
	if err := DecodeBody(r, &req); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to decode chat request")
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ValidationMessage(err))
		return
	}

	requester := req.Requester()
	if _, ok := RequireCompany(w, requester); !ok {
		return
	}

	// A fresh session ID is minted when the caller does not supply one, and
	// returned so the client can continue the conversation.
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	reply, err := h.engine.Ask(r.Context(), requester, sessionID, req.Message)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Chat request rejected")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":             true,
		"session_id":          sessionID,
		"message":             reply.Message,
		"sources":             reply.Sources,
		"confidence":          reply.Confidence,
		"needs_clarification": reply.NeedsClarification,
	})
}

// HistoryHandler handles GET /api/chat/history requests
func (h *ChatHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	requester := RequesterFromQuery(r)
	if _, ok := RequireCompany(w, requester); !ok {
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		WriteError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	messages, err := h.engine.History(r.Context(), requester, sessionID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"messages":   messages,
		"count":      len(messages),
	})
}

// ClearSessionHandler handles DELETE /api/chat/session requests
func (h *ChatHandler) ClearSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	requester := RequesterFromQuery(r)
	if _, ok := RequireCompany(w, requester); !ok {
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		WriteError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if err := h.engine.ClearSession(r.Context(), requester, sessionID); err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteSuccess(w, "Session cleared")
}

// HealthHandler handles GET /api/chat/health requests
func (h *ChatHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	err := h.llm.HealthCheck(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Chat backend health check failed")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"healthy": false,
			"mode":    h.llm.GetMode(),
			"error":   err.Error(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"healthy": true,
		"mode":    h.llm.GetMode(),
	})
}
