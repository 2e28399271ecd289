package sessions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/models"
)

func newTestStore() *Service {
	return NewService(24*time.Hour, arbor.NewLogger())
}

func TestAppendAndHistory(t *testing.T) {
	store := newTestStore()

	store.Append("acme", "s1", models.RoleUser, "Do you ship overseas?")
	store.Append("acme", "s1", models.RoleAssistant, "Yes, worldwide.")

	history := store.History("acme", "s1")
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, "Do you ship overseas?", history[0].Content)
	assert.Equal(t, models.RoleAssistant, history[1].Role)
	assert.False(t, history[0].Timestamp.IsZero())
}

func TestHistoryUnknownSessionEmpty(t *testing.T) {
	store := newTestStore()

	assert.Empty(t, store.History("acme", "missing"))
}

func TestHistoryReturnsCopy(t *testing.T) {
	store := newTestStore()
	store.Append("acme", "s1", models.RoleUser, "original")

	history := store.History("acme", "s1")
	history[0].Content = "mutated"

	assert.Equal(t, "original", store.History("acme", "s1")[0].Content)
}

func TestSessionsIsolatedByCompanyAndSession(t *testing.T) {
	store := newTestStore()

	store.Append("acme", "s1", models.RoleUser, "acme s1")
	store.Append("acme", "s2", models.RoleUser, "acme s2")
	store.Append("beta", "s1", models.RoleUser, "beta s1")

	assert.Equal(t, "acme s1", store.History("acme", "s1")[0].Content)
	assert.Equal(t, "acme s2", store.History("acme", "s2")[0].Content)
	assert.Equal(t, "beta s1", store.History("beta", "s1")[0].Content)
	assert.Equal(t, 3, store.Active())
}

func TestRecentReturnsTailWindow(t *testing.T) {
	store := newTestStore()
	for i := 0; i < 8; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		store.Append("acme", "s1", role, string(rune('a'+i)))
	}

	recent := store.Recent("acme", "s1", 5)
	require.Len(t, recent, 5)
	assert.Equal(t, "d", recent[0].Content)
	assert.Equal(t, "h", recent[4].Content)

	assert.Len(t, store.Recent("acme", "s1", 0), 8)
	assert.Len(t, store.Recent("acme", "s1", 20), 8)
}

func TestClear(t *testing.T) {
	store := newTestStore()
	store.Append("acme", "s1", models.RoleUser, "hello")

	assert.True(t, store.Clear("acme", "s1"))
	assert.Empty(t, store.History("acme", "s1"))
	assert.False(t, store.Clear("acme", "s1"))
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	store := newTestStore()
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	store.Append("acme", "stale", models.RoleUser, "old message")

	current = current.Add(25 * time.Hour)
	store.Append("acme", "fresh", models.RoleUser, "new message")

	evicted := store.Sweep()

	assert.Equal(t, 1, evicted)
	assert.Empty(t, store.History("acme", "stale"))
	require.Len(t, store.History("acme", "fresh"), 1)
	assert.Equal(t, 1, store.Active())
}

func TestSweepKeepsActiveSessions(t *testing.T) {
	store := newTestStore()
	store.Append("acme", "s1", models.RoleUser, "hello")

	assert.Zero(t, store.Sweep())
	assert.Equal(t, 1, store.Active())
}
