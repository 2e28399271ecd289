// -----------------------------------------------------------------------
// Log broadcaster - drains arbor log batches into the /ws/logs stream
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"strings"
	"sync"

	plog "github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	arborlevels "github.com/ternarybob/arbor/levels"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/respondo/internal/common"
)

// defaultLogChannelBuffer bounds unprocessed log batches so logging never
// blocks on slow WebSocket clients.
const defaultLogChannelBuffer = 10

// defaultExcludePatterns keeps the broadcaster's own traffic out of the
// stream so it does not feed back into itself.
var defaultExcludePatterns = []string{
	"WebSocket client connected",
	"WebSocket client disconnected",
	"HTTP request",
	"HTTP response",
}

// LogBroadcaster consumes log batches from arbor's context channel and fans
// qualifying entries out to connected /ws/logs clients.
type LogBroadcaster struct {
	handler         *WSLogsHandler
	channel         chan []arbormodels.LogEvent
	minLevel        arbor.LogLevel
	excludePatterns []string
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
}

// NewLogBroadcaster creates a broadcaster feeding the given stream handler.
// wsConfig may be nil, in which case info level and the default exclude
// patterns apply.
func NewLogBroadcaster(handler *WSLogsHandler, wsConfig *common.WebSocketConfig) *LogBroadcaster {
	minLevel := arbor.InfoLevel
	excludePatterns := defaultExcludePatterns

	if wsConfig != nil {
		minLevel = parseBroadcastLevel(wsConfig.MinLevel)
		if len(wsConfig.ExcludePatterns) > 0 {
			excludePatterns = wsConfig.ExcludePatterns
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &LogBroadcaster{
		handler:         handler,
		channel:         make(chan []arbormodels.LogEvent, defaultLogChannelBuffer),
		minLevel:        minLevel,
		excludePatterns: excludePatterns,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// GetChannel returns the channel for arbor to send log batches to
func (b *LogBroadcaster) GetChannel() chan []arbormodels.LogEvent {
	return b.channel
}

// Start launches the consumer goroutine. A panic in the consumer kills the
// stream but never the service.
func (b *LogBroadcaster) Start() {
	b.wg.Add(1)
	common.SafeGo(b.handler.logger, "log-broadcaster", b.consume)
}

// Stop shuts the consumer down and waits for it to finish
func (b *LogBroadcaster) Stop() {
	b.cancel()
	b.wg.Wait()
}

func (b *LogBroadcaster) consume() {
	defer b.wg.Done()

	for {
		select {
		case batch, ok := <-b.channel:
			if !ok {
				return
			}
			for _, event := range batch {
				entry, ok := b.transform(event)
				if !ok {
					continue
				}
				b.handler.BroadcastLog(entry)
			}
		case <-b.ctx.Done():
			return
		}
	}
}

// transform filters one log event and shapes it for the stream
func (b *LogBroadcaster) transform(event arbormodels.LogEvent) (LogEntry, bool) {
	if arborlevels.FromLogLevel(event.Level) < b.minLevel {
		return LogEntry{}, false
	}

	for _, pattern := range b.excludePatterns {
		if strings.Contains(event.Message, pattern) {
			return LogEntry{}, false
		}
	}

	return LogEntry{
		Timestamp: event.Timestamp.Format("15:04:05"),
		Level:     broadcastLevelName(event.Level),
		Message:   event.Message,
	}, true
}

// parseBroadcastLevel converts a config string to an arbor log level
func parseBroadcastLevel(level string) arbor.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return arbor.DebugLevel
	case "warn", "warning":
		return arbor.WarnLevel
	case "error":
		return arbor.ErrorLevel
	default:
		return arbor.InfoLevel
	}
}

// broadcastLevelName maps a log level to the level strings the widget expects
func broadcastLevelName(level plog.Level) string {
	switch level {
	case plog.ErrorLevel:
		return "error"
	case plog.WarnLevel:
		return "warn"
	case plog.DebugLevel:
		return "debug"
	default:
		return "info"
	}
}
