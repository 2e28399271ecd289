package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createKnowledgeSearchTool returns the knowledge_search tool definition
func createKnowledgeSearchTool() mcp.Tool {
	return mcp.NewTool("knowledge_search",
		mcp.WithDescription("Search a company's knowledge base using vector similarity with keyword fallback"),
		mcp.WithString("company_id",
			mcp.Required(),
			mcp.Description("Company (tenant) identifier that scopes the search"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language search query"),
		),
		mcp.WithString("category",
			mcp.Description("Restrict matches to one category: general, pricing, support, contact, services"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default: 5, max: 20)"),
		),
	)
}

// createKnowledgeStatsTool returns the knowledge_stats tool definition
func createKnowledgeStatsTool() mcp.Tool {
	return mcp.NewTool("knowledge_stats",
		mcp.WithDescription("Summarize a company's knowledge base: entry count, categories, sources"),
		mcp.WithString("company_id",
			mcp.Required(),
			mcp.Description("Company (tenant) identifier"),
		),
	)
}

// createKnowledgeAddTool returns the knowledge_add tool definition
func createKnowledgeAddTool() mcp.Tool {
	return mcp.NewTool("knowledge_add",
		mcp.WithDescription("Ingest text into a company's knowledge base (analyze, chunk, vectorize)"),
		mcp.WithString("company_id",
			mcp.Required(),
			mcp.Description("Company (tenant) identifier"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Text content to ingest"),
		),
		mcp.WithString("source",
			mcp.Description("Origin label (default: manual)"),
		),
		mcp.WithString("category",
			mcp.Description("Category hint, auto-detected when omitted"),
		),
	)
}

// createAskTool returns the ask tool definition
func createAskTool() mcp.Tool {
	return mcp.NewTool("ask",
		mcp.WithDescription("Ask a question against a company's knowledge base and get a composed answer. Each call is an independent chat turn without session history."),
		mcp.WithString("company_id",
			mcp.Required(),
			mcp.Description("Company (tenant) identifier"),
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
	)
}
