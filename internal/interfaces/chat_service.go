package interfaces

import (
	"context"

	"github.com/ternarybob/respondo/internal/models"
)

// ChatEngine is the top-level conversational pipeline: validate, retrieve,
// compose, remember. One Ask call is one chat turn.
type ChatEngine interface {
	// Ask processes a single user message for the requester's company within
	// the given session, returning a composed reply. Validation failures
	// return an error wrapping models.ErrValidation; downstream service
	// failures degrade to an apology reply rather than an error.
	Ask(ctx context.Context, requester models.Requester, sessionID, message string) (*models.Reply, error)

	// History returns the session's conversation messages in order
	History(ctx context.Context, requester models.Requester, sessionID string) ([]models.ConversationMessage, error)

	// ClearSession removes a session's conversation history
	ClearSession(ctx context.Context, requester models.Requester, sessionID string) error
}
