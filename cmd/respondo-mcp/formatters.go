package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/respondo/internal/models"
)

// formatMatches formats retrieval matches as markdown
func formatMatches(query string, matches []models.Match) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Matches for \"%s\" (%d results)\n\n", query, len(matches)))

	if len(matches) == 0 {
		sb.WriteString("No matches cleared the similarity threshold.\n")
		return sb.String()
	}

	for i, match := range matches {
		sb.WriteString(fmt.Sprintf("### %d. Score %.2f (%s tier)\n", i+1, match.Score, match.Source))
		sb.WriteString(fmt.Sprintf("**Entry:** %s\n", match.EntryID))
		if match.Category != "" {
			sb.WriteString(fmt.Sprintf("**Category:** %s\n", match.Category))
		}
		sb.WriteString("\n")

		// Content preview (first 300 chars)
		content := match.Content
		if len(content) > 300 {
			content = content[:300] + "..."
		}
		sb.WriteString(content)
		sb.WriteString("\n\n")

		// Metadata
		if len(match.Metadata) > 0 {
			metadataJSON, _ := json.MarshalIndent(match.Metadata, "", "  ")
			sb.WriteString(fmt.Sprintf("**Metadata:** %s\n", string(metadataJSON)))
		}
		sb.WriteString("\n---\n\n")
	}

	return sb.String()
}

// formatStats formats a knowledge base summary as markdown
func formatStats(companyID string, stats *models.KnowledgeStats) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Knowledge Base: %s\n\n", companyID))
	sb.WriteString(fmt.Sprintf("**Entries:** %d\n", stats.TotalEntries))
	sb.WriteString(fmt.Sprintf("**Total content:** %d chars (avg %.0f)\n", stats.TotalContentLength, stats.AverageContentLength))
	if stats.LatestUpdate != nil {
		sb.WriteString(fmt.Sprintf("**Latest update:** %s\n", stats.LatestUpdate.Format(time.RFC3339)))
	}
	sb.WriteString("\n")

	writeDistribution(&sb, "Categories", stats.Categories)
	writeDistribution(&sb, "Sources", stats.Sources)

	return sb.String()
}

// writeDistribution renders a name/count map as a sorted markdown list
func writeDistribution(sb *strings.Builder, heading string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	sb.WriteString(fmt.Sprintf("## %s\n\n", heading))
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("- %s: %d\n", name, counts[name]))
	}
	sb.WriteString("\n")
}

// formatEntry formats a stored knowledge entry as markdown
func formatEntry(entry *models.KnowledgeEntry) string {
	var sb strings.Builder
	sb.WriteString("## Entry Stored\n\n")
	sb.WriteString(fmt.Sprintf("**ID:** %s\n", entry.ID))
	sb.WriteString(fmt.Sprintf("**Company:** %s\n", entry.CompanyID))
	sb.WriteString(fmt.Sprintf("**Source:** %s\n", entry.Source))
	sb.WriteString(fmt.Sprintf("**Category:** %s\n", entry.Category))
	sb.WriteString(fmt.Sprintf("**Chunks:** %d\n", len(entry.Chunks)))
	sb.WriteString(fmt.Sprintf("**Updated:** %s\n\n", entry.UpdatedAt.Format(time.RFC3339)))

	// Content preview (first 300 chars)
	content := entry.Content
	if len(content) > 300 {
		content = content[:300] + "..."
	}
	sb.WriteString(content)
	sb.WriteString("\n")

	return sb.String()
}

// formatReply formats a composed chat reply as markdown
func formatReply(message string, reply *models.Reply) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Question\n\n%s\n\n", message))
	sb.WriteString(fmt.Sprintf("## Answer\n\n%s\n\n", reply.Message))
	sb.WriteString(fmt.Sprintf("**Confidence:** %.2f\n", reply.Confidence))
	if reply.NeedsClarification {
		sb.WriteString("**Needs clarification:** yes\n")
	}
	if len(reply.Sources) > 0 {
		sb.WriteString(fmt.Sprintf("**Sources:** %s\n", strings.Join(reply.Sources, ", ")))
	}
	return sb.String()
}
