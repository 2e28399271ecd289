package analytics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"
)

// WriteReportPDF renders a usage report for the company and returns the
// path of the generated file.
func (s *Service) WriteReportPDF(ctx context.Context, companyID string, periodDays int) (string, error) {
	summary, err := s.Summary(ctx, companyID, periodDays)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.config.ReportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(s.config.ReportDir, fmt.Sprintf("%s-usage-%s.pdf", companyID, time.Now().UTC().Format("20060102-150405")))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Usage Report: %s", companyID), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s, covering the last %d days", time.Now().UTC().Format("2 Jan 2006 15:04 MST"), summary.PeriodDays), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	writeRow := func(label, value string) {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(70, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
	}

	writeRow("Total interactions", fmt.Sprintf("%d", summary.TotalInteractions))
	writeRow("Matched", fmt.Sprintf("%d (%.1f%%)", summary.MatchedCount, summary.MatchRate*100))
	writeRow("Clarification prompts", fmt.Sprintf("%d", summary.ClarificationCount))
	writeRow("Average confidence", fmt.Sprintf("%.2f", summary.AverageConfidence))
	writeRow("Average duration", fmt.Sprintf("%.0f ms", summary.AverageDurationMs))
	writeRow("Duration p50 / p95 / p99", fmt.Sprintf("%d / %d / %d ms", summary.DurationP50Ms, summary.DurationP95Ms, summary.DurationP99Ms))

	if len(summary.DailyDistribution) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Interactions per day", "", 1, "L", false, 0, "")

		days := make([]string, 0, len(summary.DailyDistribution))
		for day := range summary.DailyDistribution {
			days = append(days, day)
		}
		sort.Strings(days)

		pdf.SetFont("Arial", "", 9)
		for _, day := range days {
			pdf.CellFormat(70, 6, day, "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, fmt.Sprintf("%d", summary.DailyDistribution[day]), "", 1, "L", false, 0, "")
		}
	}

	if len(summary.HourlyDistribution) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Interactions by hour (UTC)", "", 1, "L", false, 0, "")

		pdf.SetFont("Arial", "", 9)
		for hour := 0; hour < 24; hour++ {
			count, ok := summary.HourlyDistribution[hour]
			if !ok {
				continue
			}
			pdf.CellFormat(70, 6, fmt.Sprintf("%02d:00", hour), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, fmt.Sprintf("%d", count), "", 1, "L", false, 0, "")
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	s.logger.Info().
		Str("company_id", companyID).
		Str("path", path).
		Msg("Usage report generated")
	return path, nil
}
