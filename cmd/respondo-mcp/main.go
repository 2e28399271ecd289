package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/respondo/internal/common"
	"github.com/ternarybob/respondo/internal/services/analysis"
	"github.com/ternarybob/respondo/internal/services/analytics"
	"github.com/ternarybob/respondo/internal/services/chat"
	"github.com/ternarybob/respondo/internal/services/chunking"
	"github.com/ternarybob/respondo/internal/services/composer"
	"github.com/ternarybob/respondo/internal/services/embeddings"
	"github.com/ternarybob/respondo/internal/services/knowledge"
	"github.com/ternarybob/respondo/internal/services/llm"
	"github.com/ternarybob/respondo/internal/services/retrieval"
	"github.com/ternarybob/respondo/internal/services/sessions"
	"github.com/ternarybob/respondo/internal/storage"
)

func main() {
	// A panic escaping main leaves a crash report behind
	defer common.RecoverWithCrashFile()
	common.InstallCrashHandler("")

	// Load configuration
	configPath := os.Getenv("RESPONDO_CONFIG")
	if configPath == "" {
		configPath = "respondo.toml"
	}

	// Phase 1: Load config without KV replacement (storage not initialized yet)
	// The LLM factory reads API keys from KV storage directly, so the
	// replacement phase is not needed here
	config, err := common.LoadFromFile(nil, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize minimal logger for MCP server (console only, no file output)
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn") // Minimal logging to avoid cluttering MCP stdio

	// Initialize storage
	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer storageManager.Close()

	// LLM backend degrades to deterministic fallbacks when no key is configured
	llmService, err := llm.NewLLMService(config, storageManager.KVStorage(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize LLM service")
	}
	defer llmService.Close()

	// Knowledge pipeline: analysis, chunking and embeddings behind ingestion
	analysisService := analysis.NewService(logger)
	chunkingService := chunking.NewService(logger, config.Chunking.Size, config.Chunking.Overlap)
	embeddingService := embeddings.NewService(llmService, config.Gemini.EmbeddingModel, logger)
	knowledgeService := knowledge.NewService(
		storageManager.EntryStorage(),
		analysisService,
		chunkingService,
		embeddingService,
		logger,
	)

	// Answer pipeline for the ask tool
	retrievalService := retrieval.NewService(knowledgeService, embeddingService, analysisService, &config.Retrieval, logger)
	composerService, err := composer.NewService(llmService, &config.Composer, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize composer service")
	}
	sessionService := sessions.NewService(config.SessionTTL(), logger)
	analyticsService := analytics.NewService(storageManager.InteractionStorage(), &config.Analytics, logger)
	chatEngine := chat.NewEngine(retrievalService, composerService, sessionService, analyticsService, logger)

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"respondo",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	// Register knowledge tools
	mcpServer.AddTool(createKnowledgeSearchTool(), handleKnowledgeSearch(retrievalService, logger))
	mcpServer.AddTool(createKnowledgeStatsTool(), handleKnowledgeStats(knowledgeService, logger))
	mcpServer.AddTool(createKnowledgeAddTool(), handleKnowledgeAdd(knowledgeService, logger))

	// Register chat tool
	mcpServer.AddTool(createAskTool(), handleAsk(chatEngine, logger))

	// Start server (blocks on stdio)
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
