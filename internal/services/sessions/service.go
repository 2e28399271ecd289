package sessions

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/models"
)

// session is one conversation's in-memory state. Sessions are never
// persisted; a restart starts every conversation fresh.
type session struct {
	companyID    string
	sessionID    string
	messages     []models.ConversationMessage
	createdAt    time.Time
	lastActivity time.Time
}

// Service tracks conversation history per (company, session) pair. All
// access is serialized by one mutex; sessions are tiny and operations are
// map lookups plus slice appends, so finer locking buys nothing. Expired
// sessions are evicted by Sweep, which callers run at the start of a chat
// turn rather than on a timer.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	logger   arbor.ILogger

	now func() time.Time
}

// NewService creates a session store with the given idle retention window.
func NewService(ttl time.Duration, logger arbor.ILogger) *Service {
	return &Service{
		sessions: make(map[string]*session),
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

func sessionKey(companyID, sessionID string) string {
	return companyID + ":" + sessionID
}

// Append records one conversation turn, creating the session on first use.
func (s *Service) Append(companyID, sessionID, role, content string) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(companyID, sessionID)
	sess, ok := s.sessions[key]
	if !ok {
		sess = &session{
			companyID: companyID,
			sessionID: sessionID,
			createdAt: now,
		}
		s.sessions[key] = sess
	}

	sess.messages = append(sess.messages, models.ConversationMessage{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	sess.lastActivity = now
}

// History returns a copy of the session's messages in order. Unknown
// sessions yield an empty slice.
func (s *Service) History(companyID, sessionID string) []models.ConversationMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionKey(companyID, sessionID)]
	if !ok {
		return []models.ConversationMessage{}
	}

	history := make([]models.ConversationMessage, len(sess.messages))
	copy(history, sess.messages)
	return history
}

// Recent returns a copy of the session's last n messages in order.
func (s *Service) Recent(companyID, sessionID string, n int) []models.ConversationMessage {
	history := s.History(companyID, sessionID)
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	return history
}

// Clear removes a session, reporting whether it existed.
func (s *Service) Clear(companyID, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(companyID, sessionID)
	if _, ok := s.sessions[key]; !ok {
		return false
	}
	delete(s.sessions, key)
	return true
}

// Sweep evicts sessions idle past the retention window and returns the
// number removed. Staleness only wastes memory, so sweeping is opportunistic.
func (s *Service) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, sess := range s.sessions {
		if sess.lastActivity.Before(cutoff) {
			delete(s.sessions, key)
			evicted++
		}
	}

	if evicted > 0 {
		s.logger.Info().
			Int("evicted", evicted).
			Int("remaining", len(s.sessions)).
			Msg("Expired sessions cleaned up")
	}
	return evicted
}

// Active returns the number of live sessions.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
