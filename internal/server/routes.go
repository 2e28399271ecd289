// -----------------------------------------------------------------------
// HTTP routes - chat, knowledge, training, analytics, connectors, keys
// -----------------------------------------------------------------------

package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket routes (embedded chat widget, live log streaming)
	mux.HandleFunc("/ws/chat", s.app.WSChatHandler.HandleWebSocket)
	mux.HandleFunc("/ws/logs", s.app.WSLogsHandler.HandleWebSocket)

	// API routes - Chat
	mux.HandleFunc("/api/chat", s.app.ChatHandler.ChatHandler)                 // POST - ask a question
	mux.HandleFunc("/api/chat/health", s.app.ChatHandler.HealthHandler)        // GET - LLM availability
	mux.HandleFunc("/api/chat/history", s.app.ChatHandler.HistoryHandler)      // GET - session transcript
	mux.HandleFunc("/api/chat/session", s.app.ChatHandler.ClearSessionHandler) // DELETE - forget a session

	// API routes - Knowledge base
	mux.HandleFunc("/api/knowledge", s.handleKnowledgeRoute) // GET (list), POST (add), DELETE (clear)
	mux.HandleFunc("/api/knowledge/stats", s.app.KnowledgeHandler.StatsHandler)
	mux.HandleFunc("/api/knowledge/", s.handleKnowledgeEntryRoutes) // DELETE /{id}

	// API routes - Training (ingestion)
	mux.HandleFunc("/api/training/text", s.app.TrainingHandler.TextHandler)
	mux.HandleFunc("/api/training/website", s.app.TrainingHandler.WebsiteHandler)
	mux.HandleFunc("/api/training/connector", s.app.TrainingHandler.ConnectorHandler)

	// API routes - Analytics
	mux.HandleFunc("/api/analytics/stats", s.app.AnalyticsHandler.StatsHandler)
	mux.HandleFunc("/api/analytics/interactions", s.app.AnalyticsHandler.RecentHandler)
	mux.HandleFunc("/api/analytics/report", s.app.AnalyticsHandler.ReportHandler) // GET - PDF download

	// API routes - Connectors
	mux.HandleFunc("/api/connectors", s.handleConnectorsRoute)  // GET (list), POST (create)
	mux.HandleFunc("/api/connectors/", s.handleConnectorRoutes) // GET/PUT/DELETE /{id}, POST /{id}/test

	// API routes - Key/value store (API keys, secrets)
	mux.HandleFunc("/api/kv", s.handleKVRoute)   // GET (list, masked), POST (create)
	mux.HandleFunc("/api/kv/", s.handleKVRoutes) // GET/PUT/DELETE /{key}

	// API routes - Logs
	mux.HandleFunc("/api/logs/recent", s.app.WSLogsHandler.RecentLogsHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleKnowledgeRoute routes /api/knowledge requests (list, add, clear)
func (s *Server) handleKnowledgeRoute(w http.ResponseWriter, r *http.Request) {
	RouteCRUD(w, r, s.app.KnowledgeHandler.ListHandler, s.app.KnowledgeHandler.AddHandler, nil, s.app.KnowledgeHandler.ClearHandler)
}

// handleKnowledgeEntryRoutes routes /api/knowledge/{id} requests
func (s *Server) handleKnowledgeEntryRoutes(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"DELETE": s.app.KnowledgeHandler.DeleteEntryHandler,
	})
}

// handleConnectorsRoute routes /api/connectors requests (list and create)
func (s *Server) handleConnectorsRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.ConnectorHandler.ListHandler, s.app.ConnectorHandler.CreateHandler)
}

// handleConnectorRoutes routes /api/connectors/{id} requests
func (s *Server) handleConnectorRoutes(w http.ResponseWriter, r *http.Request) {
	// POST /api/connectors/{id}/test
	if r.Method == "POST" && strings.HasSuffix(r.URL.Path, "/test") {
		s.app.ConnectorHandler.TestHandler(w, r)
		return
	}

	RouteResourceItem(w, r, s.app.ConnectorHandler.GetHandler, s.app.ConnectorHandler.UpdateHandler, s.app.ConnectorHandler.DeleteHandler)
}

// handleKVRoute routes /api/kv requests (list and create)
func (s *Server) handleKVRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.KVHandler.ListHandler, s.app.KVHandler.CreateHandler)
}

// handleKVRoutes routes /api/kv/{key} requests
func (s *Server) handleKVRoutes(w http.ResponseWriter, r *http.Request) {
	RouteResourceItem(w, r, s.app.KVHandler.GetHandler, s.app.KVHandler.UpdateHandler, s.app.KVHandler.DeleteHandler)
}
