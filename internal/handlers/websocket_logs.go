package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
)

// LogEntry is the wire form of one log line for the logs API and stream.
type LogEntry struct {
	Index     int    `json:"index"`
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// WSLogsHandler streams application logs to connected WebSocket clients and
// serves the recent-log REST endpoint. Broadcasts arrive from the log
// broadcaster goroutine, so each connection gets its own write mutex.
type WSLogsHandler struct {
	logger      arbor.ILogger
	clients     map[*websocket.Conn]bool
	clientMutex map[*websocket.Conn]*sync.Mutex
	mu          sync.RWMutex
}

// NewWSLogsHandler creates a new log streaming handler
func NewWSLogsHandler(logger arbor.ILogger) *WSLogsHandler {
	return &WSLogsHandler{
		logger:      logger,
		clients:     make(map[*websocket.Conn]bool),
		clientMutex: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// HandleWebSocket handles /ws/logs connections
func (h *WSLogsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", clientCount).Msg("Log WebSocket client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Int("clients", remaining).Msg("Log WebSocket client disconnected")
	}()

	// Drain client frames to detect disconnection; the stream is one-way.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// BroadcastLog sends a log entry to all connected clients
func (h *WSLogsHandler) BroadcastLog(entry LogEntry) {
	data, err := json.Marshal(map[string]interface{}{
		"type":    "log",
		"payload": entry,
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		mutex := mutexes[i]
		mutex.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			// The read loop notices the dead connection and unregisters it.
			continue
		}
	}
}

// ClientCount returns the number of connected log stream clients
func (h *WSLogsHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RecentLogsHandler handles GET /api/logs/recent, returning buffered log
// lines from the in-memory writer in chronological order.
func (h *WSLogsHandler) RecentLogsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	logs := []LogEntry{}
	memWriter := arbor.GetRegisteredMemoryWriter(arbor.WRITER_MEMORY)
	if memWriter != nil {
		entries, err := memWriter.GetEntriesWithLimit(100)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to get log entries")
			WriteError(w, http.StatusInternalServerError, "Failed to retrieve logs")
			return
		}

		// Keys are timestamps, so a string sort gives chronological order.
		keys := make([]string, 0, len(entries))
		for key := range entries {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			entry, ok := parseLogLine(entries[key], len(logs))
			if !ok {
				continue
			}
			logs = append(logs, entry)
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}

// noisyLogPatterns are dropped from the logs API so the stream does not
// recursively fill with its own traffic.
var noisyLogPatterns = []string{
	"WebSocket client connected",
	"WebSocket client disconnected",
	"HTTP request",
	"HTTP response",
}

// parseLogLine converts one memory-writer line ("LEVEL | time | message")
// into a LogEntry.
func parseLogLine(line string, index int) (LogEntry, bool) {
	for _, pattern := range noisyLogPatterns {
		if strings.Contains(line, pattern) {
			return LogEntry{}, false
		}
	}

	parts := strings.SplitN(line, "|", 3)
	if len(parts) != 3 {
		return LogEntry{}, false
	}

	levelStr := strings.TrimSpace(parts[0])
	dateTime := strings.TrimSpace(parts[1])
	message := strings.TrimSpace(parts[2])

	timestamp := time.Now().Format("15:04:05")
	if fields := strings.Fields(dateTime); len(fields) >= 3 {
		timestamp = fields[len(fields)-1]
	}

	level := "INF"
	switch levelStr {
	case "ERR", "ERROR", "FATAL", "PANIC":
		level = "ERR"
	case "WRN", "WARN":
		level = "WRN"
	case "DBG", "DEBUG":
		level = "DBG"
	}

	return LogEntry{
		Index:     index,
		Timestamp: timestamp,
		Level:     level,
		Message:   message,
	}, true
}
