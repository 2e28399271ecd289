package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for embedded chat widgets
	},
}

// WSChatHandler serves interactive chat over a WebSocket connection. Each
// connection is one conversation: the first message establishes the session
// and later messages continue it.
type WSChatHandler struct {
	engine interfaces.ChatEngine
	logger arbor.ILogger
}

// NewWSChatHandler creates a new WebSocket chat handler
func NewWSChatHandler(engine interfaces.ChatEngine, logger arbor.ILogger) *WSChatHandler {
	return &WSChatHandler{
		engine: engine,
		logger: logger,
	}
}

// wsChatRequest is one inbound client frame. Type selects the action:
// "chat" (default), "history" or "clear".
type wsChatRequest struct {
	Type        string `json:"type"`
	CompanyID   string `json:"company_id"`
	ClientID    string `json:"client_id"`
	CompanyName string `json:"company_name"`
	SessionID   string `json:"session_id"`
	Message     string `json:"message"`
}

// HandleWebSocket handles /ws/chat connections
func (h *WSChatHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("Chat WebSocket client connected")

	// Session continuity across frames on the same connection. A client that
	// never supplies a session_id still gets a coherent conversation.
	sessionID := ""

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Msg("Chat WebSocket error")
			}
			break
		}

		var req wsChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			h.writeError(conn, "", "Invalid message format")
			continue
		}

		if req.SessionID != "" {
			sessionID = req.SessionID
		} else if sessionID == "" {
			sessionID = uuid.New().String()
		}

		requester := requesterFromFrame(req)
		if requester.CompanyID() == "" {
			h.writeError(conn, sessionID, "company_id or client_id is required")
			continue
		}

		switch req.Type {
		case "", "chat":
			h.handleChat(conn, requester, sessionID, req.Message)
		case "history":
			h.handleHistory(conn, requester, sessionID)
		case "clear":
			h.handleClear(conn, requester, sessionID)
		default:
			h.writeError(conn, sessionID, "Unknown message type: "+req.Type)
		}
	}

	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("Chat WebSocket client disconnected")
}

func (h *WSChatHandler) handleChat(conn *websocket.Conn, requester models.Requester, sessionID, message string) {
	reply, err := h.engine.Ask(context.Background(), requester, sessionID, message)
	if err != nil {
		h.writeError(conn, sessionID, err.Error())
		return
	}

	h.writeJSON(conn, map[string]interface{}{
		"type":                "reply",
		"session_id":          sessionID,
		"message":             reply.Message,
		"sources":             reply.Sources,
		"confidence":          reply.Confidence,
		"needs_clarification": reply.NeedsClarification,
	})
}

func (h *WSChatHandler) handleHistory(conn *websocket.Conn, requester models.Requester, sessionID string) {
	messages, err := h.engine.History(context.Background(), requester, sessionID)
	if err != nil {
		h.writeError(conn, sessionID, err.Error())
		return
	}

	h.writeJSON(conn, map[string]interface{}{
		"type":       "history",
		"session_id": sessionID,
		"messages":   messages,
		"count":      len(messages),
	})
}

func (h *WSChatHandler) handleClear(conn *websocket.Conn, requester models.Requester, sessionID string) {
	if err := h.engine.ClearSession(context.Background(), requester, sessionID); err != nil {
		h.writeError(conn, sessionID, err.Error())
		return
	}

	h.writeJSON(conn, map[string]interface{}{
		"type":       "cleared",
		"session_id": sessionID,
	})
}

func (h *WSChatHandler) writeError(conn *websocket.Conn, sessionID, message string) {
	h.writeJSON(conn, map[string]interface{}{
		"type":       "error",
		"session_id": sessionID,
		"error":      message,
	})
}

func (h *WSChatHandler) writeJSON(conn *websocket.Conn, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal WebSocket message")
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to write WebSocket message")
	}
}

func requesterFromFrame(req wsChatRequest) models.Requester {
	return RequesterParams{
		CompanyID:   req.CompanyID,
		ClientID:    req.ClientID,
		CompanyName: req.CompanyName,
	}.Requester()
}
