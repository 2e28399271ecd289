package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
)

// wsLogFrame is the envelope shape clients receive on /ws/logs
type wsLogFrame struct {
	Type    string   `json:"type"`
	Payload LogEntry `json:"payload"`
}

// TestLogBroadcastFanOut verifies that log broadcast correctly fans out to multiple subscribers
// without blocking or leaking goroutines
func TestLogBroadcastFanOut(t *testing.T) {
	handler := NewWSLogsHandler(arbor.NewLogger())

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	// Convert http:// to ws://
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	numSubscribers := 5

	// Track received messages for each subscriber
	receivedMessages := make([][]LogEntry, numSubscribers)
	var receivedMutex sync.Mutex

	var wg sync.WaitGroup
	wg.Add(numSubscribers)

	// Track goroutine count before test
	initialGoroutines := runtime.NumGoroutine()

	subscribers := make([]*websocket.Conn, numSubscribers)
	for i := 0; i < numSubscribers; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("Failed to connect subscriber %d: %v", i, err)
		}
		subscribers[i] = conn

		subscriberIdx := i
		go func() {
			defer wg.Done()
			defer conn.Close()

			conn.SetReadDeadline(time.Now().Add(5 * time.Second))

			for {
				var frame wsLogFrame
				err := conn.ReadJSON(&frame)
				if err != nil {
					// Expected when connection closes or deadline reached
					return
				}

				if frame.Type == "log" {
					receivedMutex.Lock()
					receivedMessages[subscriberIdx] = append(receivedMessages[subscriberIdx], frame.Payload)
					receivedMutex.Unlock()
				}
			}
		}()
	}

	// Wait for all subscribers to connect
	time.Sleep(100 * time.Millisecond)

	if connected := handler.ClientCount(); connected != numSubscribers {
		t.Errorf("Expected %d connected clients, got %d", numSubscribers, connected)
	}

	testLogs := []LogEntry{
		{Level: "INF", Message: "Broadcast test message 1"},
		{Level: "DBG", Message: "Broadcast test message 2"},
		{Level: "WRN", Message: "Broadcast test message 3"},
		{Level: "ERR", Message: "Broadcast test message 4"},
		{Level: "INF", Message: "Broadcast test message 5"},
	}

	// Send logs concurrently to test thread safety
	var sendWg sync.WaitGroup
	sendWg.Add(len(testLogs))

	for _, entry := range testLogs {
		entryCopy := entry
		go func() {
			defer sendWg.Done()
			handler.BroadcastLog(entryCopy)
		}()
	}

	sendWg.Wait()

	// Allow time for messages to be received
	time.Sleep(500 * time.Millisecond)

	for _, conn := range subscribers {
		conn.Close()
	}

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
	case <-time.After(2 * time.Second):
		t.Error("Timeout waiting for subscribers to finish")
	}

	// Verify every subscriber received every test message
	receivedMutex.Lock()
	defer receivedMutex.Unlock()

	for i, messages := range receivedMessages {
		logCount := 0
		for _, msg := range messages {
			for _, testLog := range testLogs {
				if msg.Level == testLog.Level && msg.Message == testLog.Message {
					logCount++
					break
				}
			}
		}

		if logCount != len(testLogs) {
			t.Errorf("Subscriber %d received %d test logs, expected %d", i, logCount, len(testLogs))
			t.Logf("Subscriber %d messages: %+v", i, messages)
		}
	}

	// Wait a bit for goroutines to clean up
	time.Sleep(100 * time.Millisecond)

	finalGoroutines := runtime.NumGoroutine()
	goroutineDiff := finalGoroutines - initialGoroutines

	// Allow some tolerance for background goroutines
	if goroutineDiff > 2 {
		t.Errorf("Potential goroutine leak detected: %d goroutines leaked", goroutineDiff)
	}

	// Verify handler cleaned up all clients
	handler.mu.RLock()
	remainingClients := len(handler.clients)
	remainingMutexes := len(handler.clientMutex)
	handler.mu.RUnlock()

	if remainingClients != 0 {
		t.Errorf("Handler still has %d clients after cleanup", remainingClients)
	}

	if remainingMutexes != 0 {
		t.Errorf("Handler still has %d client mutexes after cleanup", remainingMutexes)
	}

	t.Logf("✓ Successfully broadcast %d logs to %d subscribers", len(testLogs), numSubscribers)
	t.Log("✓ No goroutine leaks detected")
	t.Log("✓ All resources cleaned up properly")
}

// TestConcurrentLogBroadcast verifies that concurrent broadcasts don't cause race conditions
func TestConcurrentLogBroadcast(t *testing.T) {
	handler := NewWSLogsHandler(arbor.NewLogger())

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect subscriber: %v", err)
	}
	defer conn.Close()

	var messageCount int32
	done := make(chan struct{})

	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))

		for {
			var frame wsLogFrame
			err := conn.ReadJSON(&frame)
			if err != nil {
				return
			}

			if frame.Type == "log" {
				atomic.AddInt32(&messageCount, 1)
			}
		}
	}()

	// Wait for the subscriber to register
	time.Sleep(100 * time.Millisecond)

	numSenders := 10
	logsPerSender := 10

	var wg sync.WaitGroup
	wg.Add(numSenders)

	for i := 0; i < numSenders; i++ {
		senderID := i
		go func() {
			defer wg.Done()

			for j := 0; j < logsPerSender; j++ {
				handler.BroadcastLog(LogEntry{
					Level:   "INF",
					Message: fmt.Sprintf("Sender %d message %d", senderID, j),
				})
			}
		}()
	}

	wg.Wait()

	// Allow time for messages to be received
	time.Sleep(500 * time.Millisecond)

	conn.Close()
	<-done

	totalExpected := int32(numSenders * logsPerSender)
	received := atomic.LoadInt32(&messageCount)

	if received != totalExpected {
		t.Errorf("Received %d messages, expected %d", received, totalExpected)
	}

	t.Logf("✓ Successfully sent %d messages concurrently from %d senders", totalExpected, numSenders)
}

// TestLogBroadcastWithSlowSubscriber verifies that a subscriber that never reads
// does not hold up delivery to the others
func TestLogBroadcastWithSlowSubscriber(t *testing.T) {
	handler := NewWSLogsHandler(arbor.NewLogger())

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	fastConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect fast subscriber: %v", err)
	}
	defer fastConn.Close()

	// Slow subscriber connects but never reads
	slowConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect slow subscriber: %v", err)
	}
	defer slowConn.Close()

	var fastMessages int32
	fastDone := make(chan struct{})

	go func() {
		defer close(fastDone)
		fastConn.SetReadDeadline(time.Now().Add(3 * time.Second))

		for {
			var frame wsLogFrame
			err := fastConn.ReadJSON(&frame)
			if err != nil {
				return
			}

			if frame.Type == "log" {
				atomic.AddInt32(&fastMessages, 1)
			}
		}
	}()

	// Wait for both subscribers to register
	time.Sleep(100 * time.Millisecond)

	numLogs := 20
	for i := 0; i < numLogs; i++ {
		handler.BroadcastLog(LogEntry{Level: "INF", Message: fmt.Sprintf("Timed message %d", i)})
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(500 * time.Millisecond)

	fastConn.Close()
	slowConn.Close()

	<-fastDone

	received := atomic.LoadInt32(&fastMessages)
	if received != int32(numLogs) {
		t.Errorf("Fast subscriber received %d messages, expected %d", received, numLogs)
	}

	t.Logf("✓ Fast subscriber received all %d messages", numLogs)
	t.Log("✓ Slow subscriber did not affect delivery to others")
}

func TestParseLogLine(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantOK      bool
		wantLevel   string
		wantMessage string
	}{
		{
			name:        "info line",
			line:        "INF | Oct  2 16:27:13 | Server started",
			wantOK:      true,
			wantLevel:   "INF",
			wantMessage: "Server started",
		},
		{
			name:        "long level names normalize",
			line:        "ERROR | Oct  2 16:27:13 | Embedding call failed",
			wantOK:      true,
			wantLevel:   "ERR",
			wantMessage: "Embedding call failed",
		},
		{
			name:        "warn level",
			line:        "WARN | Oct  2 16:27:13 | Falling back to keyword search",
			wantOK:      true,
			wantLevel:   "WRN",
			wantMessage: "Falling back to keyword search",
		},
		{
			name:        "debug level",
			line:        "DEBUG | Oct  2 16:27:13 | Chunk stored",
			wantOK:      true,
			wantLevel:   "DBG",
			wantMessage: "Chunk stored",
		},
		{
			name:        "unknown level defaults to info",
			line:        "TRACE | Oct  2 16:27:13 | Something minor",
			wantOK:      true,
			wantLevel:   "INF",
			wantMessage: "Something minor",
		},
		{
			name:        "message keeps embedded pipes",
			line:        "INF | Oct  2 16:27:13 | rate limit 5 | burst 10",
			wantOK:      true,
			wantLevel:   "INF",
			wantMessage: "rate limit 5 | burst 10",
		},
		{
			name:   "noisy connection chatter filtered",
			line:   "DBG | Oct  2 16:27:13 | Log WebSocket client connected",
			wantOK: false,
		},
		{
			name:   "malformed line dropped",
			line:   "no delimiters at all",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := parseLogLine(tt.line, 0)

			if ok != tt.wantOK {
				t.Fatalf("parseLogLine(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}

			if entry.Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", entry.Level, tt.wantLevel)
			}
			if entry.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", entry.Message, tt.wantMessage)
			}
			if entry.Timestamp != "16:27:13" {
				t.Errorf("Timestamp = %q, want %q", entry.Timestamp, "16:27:13")
			}
		})
	}
}
