package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
)

// handleKnowledgeSearch implements the knowledge_search tool
func handleKnowledgeSearch(retrievalService interfaces.RetrievalService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// Parse company_id parameter (required)
		companyID, err := request.RequireString("company_id")
		if err != nil || companyID == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: company_id parameter is required"),
				},
			}, nil
		}

		// Parse query parameter (required)
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: query parameter is required"),
				},
			}, nil
		}

		// Parse optional filters
		category := request.GetString("category", "")
		limit := request.GetInt("limit", 5)
		if limit > 20 {
			limit = 20
		}

		// Execute search
		matches, err := retrievalService.Search(ctx, companyID, query, category)
		if err != nil {
			logger.Error().Err(err).Msg("Knowledge search failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Search error: %v", err)),
				},
			}, nil
		}
		if limit > 0 && len(matches) > limit {
			matches = matches[:limit]
		}

		// Format results as markdown
		markdown := formatMatches(query, matches)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(markdown),
			},
		}, nil
	}
}

// handleKnowledgeStats implements the knowledge_stats tool
func handleKnowledgeStats(knowledgeService interfaces.KnowledgeService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// Parse company_id parameter (required)
		companyID, err := request.RequireString("company_id")
		if err != nil || companyID == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: company_id parameter is required"),
				},
			}, nil
		}

		// Aggregate stats
		stats, err := knowledgeService.Stats(ctx, companyID)
		if err != nil {
			logger.Error().Err(err).Str("company_id", companyID).Msg("Knowledge stats failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Stats error: %v", err)),
				},
			}, nil
		}

		// Format as markdown
		markdown := formatStats(companyID, stats)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(markdown),
			},
		}, nil
	}
}

// handleKnowledgeAdd implements the knowledge_add tool
func handleKnowledgeAdd(knowledgeService interfaces.KnowledgeService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// Parse company_id parameter (required)
		companyID, err := request.RequireString("company_id")
		if err != nil || companyID == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: company_id parameter is required"),
				},
			}, nil
		}

		// Parse content parameter (required)
		content, err := request.RequireString("content")
		if err != nil || content == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: content parameter is required"),
				},
			}, nil
		}

		// Ingest with optional source and category hints
		entry, err := knowledgeService.Add(ctx, companyID, &interfaces.AddEntryRequest{
			Content:  content,
			Source:   request.GetString("source", ""),
			Category: request.GetString("category", ""),
		})
		if err != nil {
			logger.Error().Err(err).Str("company_id", companyID).Msg("Knowledge add failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Ingestion error: %v", err)),
				},
			}, nil
		}

		// Format the stored entry as markdown
		markdown := formatEntry(entry)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(markdown),
			},
		}, nil
	}
}

// handleAsk implements the ask tool
func handleAsk(engine interfaces.ChatEngine, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// Parse company_id parameter (required)
		companyID, err := request.RequireString("company_id")
		if err != nil || companyID == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: company_id parameter is required"),
				},
			}, nil
		}

		// Parse message parameter (required)
		message, err := request.RequireString("message")
		if err != nil || message == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: message parameter is required"),
				},
			}, nil
		}

		// A fresh session per call keeps turns independent
		sessionID := uuid.New().String()
		requester := models.UnauthenticatedRequester(companyID)

		reply, err := engine.Ask(ctx, requester, sessionID, message)
		if err != nil {
			logger.Error().Err(err).Str("company_id", companyID).Msg("Ask failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Ask error: %v", err)),
				},
			}, nil
		}

		// Format the reply as markdown
		markdown := formatReply(message, reply)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(markdown),
			},
		}, nil
	}
}
