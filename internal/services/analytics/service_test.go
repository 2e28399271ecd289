package analytics

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/common"
	"github.com/ternarybob/respondo/internal/models"
)

// memInteractions is a slice-backed InteractionStorage for tests.
type memInteractions struct {
	interactions []*models.Interaction
	recordErr    error
}

func (m *memInteractions) Record(_ context.Context, interaction *models.Interaction) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.interactions = append(m.interactions, interaction)
	return nil
}

func (m *memInteractions) ListByCompany(_ context.Context, companyID string, limit int) ([]*models.Interaction, error) {
	matched := make([]*models.Interaction, 0)
	for _, interaction := range m.interactions {
		if interaction.CompanyID == companyID {
			matched = append(matched, interaction)
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *memInteractions) CountByCompany(_ context.Context, companyID string) (int, error) {
	list, _ := m.ListByCompany(context.Background(), companyID, 0)
	return len(list), nil
}

func (m *memInteractions) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	kept := make([]*models.Interaction, 0, len(m.interactions))
	removed := 0
	for _, interaction := range m.interactions {
		if interaction.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, interaction)
	}
	m.interactions = kept
	return removed, nil
}

func newTestService(storage *memInteractions) *Service {
	config := &common.AnalyticsConfig{
		Enabled:       true,
		RetentionDays: 90,
		ReportDir:     os.TempDir(),
	}
	return NewService(storage, config, arbor.NewLogger())
}

func interactionAt(companyID string, created time.Time, matched bool, confidence float64, durationMs int64) *models.Interaction {
	return &models.Interaction{
		ID:                 common.NewInteractionID(),
		CompanyID:          companyID,
		SessionID:          "s1",
		Query:              "test query",
		QueryLength:        10,
		Confidence:         confidence,
		Matched:            matched,
		NeedsClarification: !matched,
		DurationMs:         durationMs,
		CreatedAt:          created,
	}
}

func TestRecordStoresInteraction(t *testing.T) {
	storage := &memInteractions{}
	service := newTestService(storage)

	err := service.Record(context.Background(), interactionAt("acme", time.Now().UTC(), true, 0.5, 12))

	require.NoError(t, err)
	assert.Len(t, storage.interactions, 1)
}

func TestRecordDisabledDropsSilently(t *testing.T) {
	storage := &memInteractions{}
	service := NewService(storage, &common.AnalyticsConfig{Enabled: false}, arbor.NewLogger())

	err := service.Record(context.Background(), interactionAt("acme", time.Now().UTC(), true, 0.5, 12))

	require.NoError(t, err)
	assert.Empty(t, storage.interactions)
}

func TestRecordValidates(t *testing.T) {
	service := newTestService(&memInteractions{})

	assert.ErrorIs(t, service.Record(context.Background(), nil), models.ErrValidation)

	missing := interactionAt("", time.Now().UTC(), true, 0.5, 12)
	assert.ErrorIs(t, service.Record(context.Background(), missing), models.ErrValidation)
}

func TestSummaryAggregates(t *testing.T) {
	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	storage := &memInteractions{interactions: []*models.Interaction{
		interactionAt("acme", base, true, 0.8, 10),
		interactionAt("acme", base.Add(30*time.Minute), true, 0.6, 20),
		interactionAt("acme", base.Add(26*time.Hour), false, 0.1, 30),
		interactionAt("acme", base.Add(27*time.Hour), true, 0.5, 40),
		interactionAt("beta", base, true, 0.9, 99),
	}}
	service := newTestService(storage)

	summary, err := service.Summary(context.Background(), "acme", 3650)

	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalInteractions)
	assert.Equal(t, 3, summary.MatchedCount)
	assert.Equal(t, 1, summary.ClarificationCount)
	assert.InDelta(t, 0.75, summary.MatchRate, 1e-9)
	assert.InDelta(t, 0.5, summary.AverageConfidence, 1e-9)
	assert.InDelta(t, 25.0, summary.AverageDurationMs, 1e-9)
	assert.Equal(t, int64(20), summary.DurationP50Ms)
	assert.Equal(t, int64(40), summary.DurationP95Ms)
	assert.Equal(t, int64(40), summary.DurationP99Ms)

	assert.Equal(t, 2, summary.HourlyDistribution[9])
	assert.Equal(t, 1, summary.HourlyDistribution[11])
	assert.Equal(t, 1, summary.HourlyDistribution[12])
	assert.Equal(t, 2, summary.DailyDistribution["2026-08-20"])
	assert.Equal(t, 2, summary.DailyDistribution["2026-08-21"])
}

func TestSummaryFiltersPeriod(t *testing.T) {
	now := time.Now().UTC()
	storage := &memInteractions{interactions: []*models.Interaction{
		interactionAt("acme", now.AddDate(0, 0, -40), true, 0.9, 10),
		interactionAt("acme", now.Add(-time.Hour), true, 0.5, 20),
	}}
	service := newTestService(storage)

	summary, err := service.Summary(context.Background(), "acme", 7)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalInteractions)
}

func TestSummaryEmptyCompany(t *testing.T) {
	service := newTestService(&memInteractions{})

	summary, err := service.Summary(context.Background(), "newco", 0)

	require.NoError(t, err)
	assert.Equal(t, defaultPeriodDays, summary.PeriodDays)
	assert.Zero(t, summary.TotalInteractions)
	assert.Zero(t, summary.MatchRate)
	assert.Empty(t, summary.HourlyDistribution)

	_, err = service.Summary(context.Background(), "", 7)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestPrune(t *testing.T) {
	now := time.Now().UTC()
	storage := &memInteractions{interactions: []*models.Interaction{
		interactionAt("acme", now.AddDate(0, 0, -120), true, 0.9, 10),
		interactionAt("acme", now.Add(-time.Hour), true, 0.5, 20),
	}}
	service := newTestService(storage)

	removed, err := service.Prune(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Len(t, storage.interactions, 1)
}

func TestPruneDisabledRetention(t *testing.T) {
	storage := &memInteractions{interactions: []*models.Interaction{
		interactionAt("acme", time.Now().UTC().AddDate(-1, 0, 0), true, 0.9, 10),
	}}
	service := NewService(storage, &common.AnalyticsConfig{Enabled: true, RetentionDays: 0}, arbor.NewLogger())

	removed, err := service.Prune(context.Background())

	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Len(t, storage.interactions, 1)
}

func TestWriteReportPDF(t *testing.T) {
	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	storage := &memInteractions{interactions: []*models.Interaction{
		interactionAt("acme", base, true, 0.8, 10),
		interactionAt("acme", base.Add(time.Hour), false, 0.2, 30),
	}}
	config := &common.AnalyticsConfig{
		Enabled:       true,
		RetentionDays: 90,
		ReportDir:     t.TempDir(),
	}
	service := NewService(storage, config, arbor.NewLogger())

	path, err := service.WriteReportPDF(context.Background(), "acme", 3650)

	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRecentInteractions(t *testing.T) {
	now := time.Now().UTC()
	storage := &memInteractions{}
	for i := 0; i < 30; i++ {
		storage.interactions = append(storage.interactions, interactionAt("acme", now.Add(time.Duration(-i)*time.Minute), true, 0.5, 10))
	}
	service := newTestService(storage)

	recent, err := service.RecentInteractions(context.Background(), "acme", 0)
	require.NoError(t, err)
	assert.Len(t, recent, defaultRecentLimit)

	recent, err = service.RecentInteractions(context.Background(), "acme", 5)
	require.NoError(t, err)
	assert.Len(t, recent, 5)

	_, err = service.RecentInteractions(context.Background(), "", 5)
	assert.ErrorIs(t, err, models.ErrValidation)
}
