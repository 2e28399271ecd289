package interfaces

import (
	"context"

	"github.com/ternarybob/respondo/internal/models"
)

// AnalyticsSummary aggregates a company's chat interactions over a period
type AnalyticsSummary struct {
	CompanyID          string         `json:"company_id"`
	PeriodDays         int            `json:"period_days"`
	TotalInteractions  int            `json:"total_interactions"`
	MatchedCount       int            `json:"matched_count"`
	ClarificationCount int            `json:"clarification_count"`
	MatchRate          float64        `json:"match_rate"`
	AverageConfidence  float64        `json:"average_confidence"`
	AverageDurationMs  float64        `json:"average_duration_ms"`
	DurationP50Ms      int64          `json:"duration_p50_ms"`
	DurationP95Ms      int64          `json:"duration_p95_ms"`
	DurationP99Ms      int64          `json:"duration_p99_ms"`
	HourlyDistribution map[int]int    `json:"hourly_distribution"`
	DailyDistribution  map[string]int `json:"daily_distribution"`
}

// AnalyticsService records chat interactions and reports on them
type AnalyticsService interface {
	// Record stores one interaction. Failures are logged, never fatal to the
	// chat path.
	Record(ctx context.Context, interaction *models.Interaction) error

	// Summary aggregates the company's interactions over the last periodDays
	Summary(ctx context.Context, companyID string, periodDays int) (*AnalyticsSummary, error)

	// RecentInteractions returns the newest interactions for a company
	RecentInteractions(ctx context.Context, companyID string, limit int) ([]*models.Interaction, error)

	// WriteReportPDF renders a usage report and returns the file path
	WriteReportPDF(ctx context.Context, companyID string, periodDays int) (string, error)

	// Prune removes interactions older than the configured retention window.
	// Returns the number of records removed.
	Prune(ctx context.Context) (int, error)
}
