package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/common"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
	"github.com/ternarybob/respondo/internal/services/composer"
	"github.com/ternarybob/respondo/internal/services/sessions"
)

// DefaultSessionID scopes callers that do not track their own sessions.
const DefaultSessionID = "default"

// Engine is the conversational pipeline: sweep expired sessions, retrieve
// matches, compose a reply, remember the turn, record the interaction.
// Retrieval and composition failures degrade to user-safe replies; only
// invalid input comes back as an error.
type Engine struct {
	retrieval interfaces.RetrievalService
	composer  *composer.Service
	sessions  *sessions.Service
	analytics interfaces.AnalyticsService
	logger    arbor.ILogger
}

var _ interfaces.ChatEngine = (*Engine)(nil)

// NewEngine creates a new chat engine
func NewEngine(
	retrieval interfaces.RetrievalService,
	composerService *composer.Service,
	sessionStore *sessions.Service,
	analytics interfaces.AnalyticsService,
	logger arbor.ILogger,
) *Engine {
	return &Engine{
		retrieval: retrieval,
		composer:  composerService,
		sessions:  sessionStore,
		analytics: analytics,
		logger:    logger,
	}
}

// Ask processes one chat turn for the requester's company.
func (e *Engine) Ask(ctx context.Context, requester models.Requester, sessionID, message string) (*models.Reply, error) {
	started := time.Now()

	companyID := requester.CompanyID()
	if companyID == "" {
		return nil, fmt.Errorf("%w: company is required", models.ErrValidation)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", models.ErrValidation)
	}
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	e.sessions.Sweep()

	// History is captured before this turn is appended; the composer gets
	// the query separately and must not see it twice.
	history := e.sessions.History(companyID, sessionID)
	e.sessions.Append(companyID, sessionID, models.RoleUser, message)

	matches, err := e.retrieval.Search(ctx, companyID, message, "")
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("company_id", companyID).
			Msg("Retrieval failed, returning apology")
		reply := composer.ApologyReply()
		e.record(ctx, companyID, sessionID, message, reply, 0, started)
		return reply, nil
	}

	reply := e.composer.Compose(ctx, requester.CompanyName(), message, matches, history)
	e.sessions.Append(companyID, sessionID, models.RoleAssistant, reply.Message)

	e.record(ctx, companyID, sessionID, message, reply, len(matches), started)

	e.logger.Debug().
		Str("company_id", companyID).
		Str("session_id", sessionID).
		Int("matches", len(matches)).
		Float64("confidence", reply.Confidence).
		Bool("needs_clarification", reply.NeedsClarification).
		Msg("Chat turn completed")

	return reply, nil
}

// History returns the session's conversation in order.
func (e *Engine) History(ctx context.Context, requester models.Requester, sessionID string) ([]models.ConversationMessage, error) {
	companyID := requester.CompanyID()
	if companyID == "" {
		return nil, fmt.Errorf("%w: company is required", models.ErrValidation)
	}
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	return e.sessions.History(companyID, sessionID), nil
}

// ClearSession removes a session's conversation history.
func (e *Engine) ClearSession(ctx context.Context, requester models.Requester, sessionID string) error {
	companyID := requester.CompanyID()
	if companyID == "" {
		return fmt.Errorf("%w: company is required", models.ErrValidation)
	}
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	if !e.sessions.Clear(companyID, sessionID) {
		return fmt.Errorf("%w: session %s", models.ErrNotFound, sessionID)
	}
	return nil
}

// record captures the interaction for analytics. Failures are logged and
// swallowed so reporting can never break the chat path.
func (e *Engine) record(ctx context.Context, companyID, sessionID, message string, reply *models.Reply, matchCount int, started time.Time) {
	if e.analytics == nil {
		return
	}

	interaction := &models.Interaction{
		ID:                 common.NewInteractionID(),
		CompanyID:          companyID,
		SessionID:          sessionID,
		Query:              message,
		QueryLength:        len(message),
		Confidence:         reply.Confidence,
		Matched:            matchCount > 0 && !reply.NeedsClarification,
		NeedsClarification: reply.NeedsClarification,
		Sources:            reply.Sources,
		DurationMs:         time.Since(started).Milliseconds(),
		CreatedAt:          time.Now().UTC(),
	}

	if err := e.analytics.Record(ctx, interaction); err != nil {
		e.logger.Warn().
			Err(err).
			Str("company_id", companyID).
			Msg("Failed to record interaction")
	}
}
