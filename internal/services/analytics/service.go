package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/common"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
)

const (
	defaultPeriodDays  = 30
	defaultRecentLimit = 20
)

// Service records chat interactions and aggregates them into usage
// summaries. Recording sits on the chat hot path, so it is cheap and its
// failures are the caller's to swallow; aggregation reads the whole
// per-company history and computes in memory.
type Service struct {
	storage interfaces.InteractionStorage
	config  *common.AnalyticsConfig
	logger  arbor.ILogger
}

var _ interfaces.AnalyticsService = (*Service)(nil)

// NewService creates a new analytics service
func NewService(storage interfaces.InteractionStorage, config *common.AnalyticsConfig, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		config:  config,
		logger:  logger,
	}
}

// Record stores one interaction. A disabled config drops records silently.
func (s *Service) Record(ctx context.Context, interaction *models.Interaction) error {
	if !s.config.Enabled {
		return nil
	}
	if interaction == nil {
		return fmt.Errorf("%w: interaction is required", models.ErrValidation)
	}
	if interaction.CompanyID == "" {
		return fmt.Errorf("%w: company ID is required", models.ErrValidation)
	}
	return s.storage.Record(ctx, interaction)
}

// Summary aggregates the company's interactions over the last periodDays.
func (s *Service) Summary(ctx context.Context, companyID string, periodDays int) (*interfaces.AnalyticsSummary, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company ID is required", models.ErrValidation)
	}
	if periodDays <= 0 {
		periodDays = defaultPeriodDays
	}

	interactions, err := s.storage.ListByCompany(ctx, companyID, 0)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -periodDays)
	summary := &interfaces.AnalyticsSummary{
		CompanyID:          companyID,
		PeriodDays:         periodDays,
		HourlyDistribution: make(map[int]int),
		DailyDistribution:  make(map[string]int),
	}

	durations := make([]int64, 0, len(interactions))
	var confidenceSum, durationSum float64

	for _, interaction := range interactions {
		if interaction.CreatedAt.Before(cutoff) {
			continue
		}

		summary.TotalInteractions++
		if interaction.Matched {
			summary.MatchedCount++
		}
		if interaction.NeedsClarification {
			summary.ClarificationCount++
		}
		confidenceSum += interaction.Confidence
		durationSum += float64(interaction.DurationMs)
		durations = append(durations, interaction.DurationMs)

		created := interaction.CreatedAt.UTC()
		summary.HourlyDistribution[created.Hour()]++
		summary.DailyDistribution[created.Format("2006-01-02")]++
	}

	if summary.TotalInteractions > 0 {
		total := float64(summary.TotalInteractions)
		summary.MatchRate = float64(summary.MatchedCount) / total
		summary.AverageConfidence = confidenceSum / total
		summary.AverageDurationMs = durationSum / total

		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
		summary.DurationP50Ms = percentile(durations, 0.50)
		summary.DurationP95Ms = percentile(durations, 0.95)
		summary.DurationP99Ms = percentile(durations, 0.99)
	}

	return summary, nil
}

// RecentInteractions returns the newest interactions for a company.
func (s *Service) RecentInteractions(ctx context.Context, companyID string, limit int) ([]*models.Interaction, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company ID is required", models.ErrValidation)
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.storage.ListByCompany(ctx, companyID, limit)
}

// Prune removes interactions past the retention window. A non-positive
// retention keeps everything.
func (s *Service) Prune(ctx context.Context) (int, error) {
	if s.config.RetentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -s.config.RetentionDays)
	removed, err := s.storage.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info().
			Int("removed", removed).
			Str("cutoff", cutoff.Format(time.RFC3339)).
			Msg("Old interactions pruned")
	}
	return removed, nil
}

// percentile returns the nearest-rank percentile of ascending-sorted values.
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
