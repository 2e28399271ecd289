// -----------------------------------------------------------------------
// Application wiring - storage, services and handlers in dependency order
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/common"
	"github.com/ternarybob/respondo/internal/handlers"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/services/analysis"
	"github.com/ternarybob/respondo/internal/services/analytics"
	"github.com/ternarybob/respondo/internal/services/chat"
	"github.com/ternarybob/respondo/internal/services/chunking"
	"github.com/ternarybob/respondo/internal/services/composer"
	"github.com/ternarybob/respondo/internal/services/connectors"
	"github.com/ternarybob/respondo/internal/services/embeddings"
	"github.com/ternarybob/respondo/internal/services/knowledge"
	"github.com/ternarybob/respondo/internal/services/kv"
	"github.com/ternarybob/respondo/internal/services/llm"
	"github.com/ternarybob/respondo/internal/services/maintenance"
	"github.com/ternarybob/respondo/internal/services/retrieval"
	"github.com/ternarybob/respondo/internal/services/scraper"
	"github.com/ternarybob/respondo/internal/services/sessions"
	"github.com/ternarybob/respondo/internal/services/training"
	"github.com/ternarybob/respondo/internal/storage"
)

// App holds all services and handlers with their dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	StorageManager interfaces.StorageManager

	// Services
	KVService          *kv.Service
	LLMService         interfaces.LLMService
	AnalysisService    *analysis.Service
	ChunkingService    *chunking.Service
	EmbeddingService   *embeddings.Service
	KnowledgeService   interfaces.KnowledgeService
	RetrievalService   interfaces.RetrievalService
	ComposerService    *composer.Service
	SessionService     *sessions.Service
	AnalyticsService   interfaces.AnalyticsService
	ChatEngine         interfaces.ChatEngine
	ScraperService     interfaces.ScraperService
	ConnectorService   interfaces.ConnectorService
	TrainingService    interfaces.TrainingService
	MaintenanceService *maintenance.Service

	// Handlers
	APIHandler       *handlers.APIHandler
	ChatHandler      *handlers.ChatHandler
	KnowledgeHandler *handlers.KnowledgeHandler
	TrainingHandler  *handlers.TrainingHandler
	AnalyticsHandler *handlers.AnalyticsHandler
	ConnectorHandler *handlers.ConnectorHandler
	KVHandler        *handlers.KVHandler
	WSChatHandler    *handlers.WSChatHandler
	WSLogsHandler    *handlers.WSLogsHandler

	// LogBroadcaster feeds /ws/logs clients from arbor's context channel
	LogBroadcaster *handlers.LogBroadcaster
}

// New creates a fully wired application
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Log streaming is wired before services so startup logs reach clients
	app.WSLogsHandler = handlers.NewWSLogsHandler(logger)
	app.LogBroadcaster = handlers.NewLogBroadcaster(app.WSLogsHandler, &cfg.WebSocket)
	app.LogBroadcaster.Start()
	app.Logger.SetChannel("context", app.LogBroadcaster.GetChannel())

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	// Import knowledge seeds once the full training pipeline is wired
	if cfg.Seeds.ImportOnStartup {
		if _, err := app.TrainingService.ImportSeeds(context.Background(), cfg.Seeds.Dir); err != nil {
			app.Logger.Warn().Err(err).Str("dir", cfg.Seeds.Dir).Msg("Failed to import knowledge seeds")
		}
	}

	logger.Info().
		Str("llm_mode", string(app.LLMService.GetMode())).
		Bool("analytics_enabled", cfg.Analytics.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	// Load API keys and secrets from files before config replacement so the
	// loaded values can satisfy {key-name} references
	if err := a.StorageManager.LoadKeysFromFiles(context.Background(), a.Config.Variables.Dir); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load keys from files")
	}

	// Replace {key-name} references in config values with stored pairs.
	// Must happen before the LLM service reads its API keys.
	ctx := context.Background()
	kvMap, err := a.StorageManager.KVStorage().GetAll(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to fetch KV map for config replacement, skipping replacement")
	} else if len(kvMap) > 0 {
		if err := common.ReplaceInStruct(a.Config, kvMap, a.Logger); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to replace key references in config")
		} else {
			a.Logger.Debug().Int("keys", len(kvMap)).Msg("Applied key/value replacements to config")
		}
	} else {
		a.Logger.Debug().Msg("No key/value pairs found, skipping config replacement")
	}

	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	var err error

	// Key/value service over the storage layer
	a.KVService = kv.NewService(a.StorageManager.KVStorage(), a.Logger)
	a.Logger.Debug().Msg("Variables service initialized")

	// LLM service via the provider factory. A missing API key degrades to
	// the disabled implementation rather than failing startup, so the
	// pipeline always has an embeddings and chat backend to call.
	a.LLMService, err = llm.NewLLMService(a.Config, a.StorageManager.KVStorage(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	if err := a.LLMService.HealthCheck(context.Background()); err != nil {
		a.Logger.Warn().Err(err).Msg("LLM health check failed, answers degrade to deterministic fallbacks")
	} else {
		a.Logger.Debug().Str("mode", string(a.LLMService.GetMode())).Msg("LLM service initialized")
	}

	// Content analysis, chunking and embeddings feed the knowledge service
	a.AnalysisService = analysis.NewService(a.Logger)
	a.ChunkingService = chunking.NewService(a.Logger, a.Config.Chunking.Size, a.Config.Chunking.Overlap)
	a.EmbeddingService = embeddings.NewService(a.LLMService, a.Config.Gemini.EmbeddingModel, a.Logger)

	a.KnowledgeService = knowledge.NewService(
		a.StorageManager.EntryStorage(),
		a.AnalysisService,
		a.ChunkingService,
		a.EmbeddingService,
		a.Logger,
	)
	a.Logger.Debug().Msg("Knowledge service initialized")

	// Retrieval and composition form the answer pipeline
	a.RetrievalService = retrieval.NewService(a.KnowledgeService, a.EmbeddingService, a.AnalysisService, &a.Config.Retrieval, a.Logger)
	a.ComposerService, err = composer.NewService(a.LLMService, &a.Config.Composer, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize composer service: %w", err)
	}

	a.SessionService = sessions.NewService(a.Config.SessionTTL(), a.Logger)
	a.AnalyticsService = analytics.NewService(a.StorageManager.InteractionStorage(), &a.Config.Analytics, a.Logger)

	a.ChatEngine = chat.NewEngine(a.RetrievalService, a.ComposerService, a.SessionService, a.AnalyticsService, a.Logger)
	a.Logger.Debug().Msg("Chat engine initialized")

	// Training inputs: website scraper and external connectors
	a.ScraperService = scraper.NewService(&a.Config.Scraper, a.Logger)
	a.ConnectorService = connectors.NewService(a.StorageManager.ConnectorStorage(), a.Logger)
	a.TrainingService = training.NewService(a.KnowledgeService, a.ScraperService, a.ConnectorService, a.Logger)
	a.Logger.Debug().Msg("Training service initialized")

	// Scheduled retention purge and storage GC
	a.MaintenanceService = maintenance.NewService(&a.Config.Maintenance, a.AnalyticsService, a.SessionService, a.StorageManager, a.Logger)
	if err := a.MaintenanceService.Start(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to start maintenance scheduler")
	}

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler()
	// WSLogsHandler already initialized in New() before service setup

	a.ChatHandler = handlers.NewChatHandler(a.ChatEngine, a.LLMService, a.Logger)
	a.KnowledgeHandler = handlers.NewKnowledgeHandler(a.KnowledgeService, a.Logger)
	a.TrainingHandler = handlers.NewTrainingHandler(a.TrainingService, a.Logger)
	a.AnalyticsHandler = handlers.NewAnalyticsHandler(a.AnalyticsService, a.Logger)
	a.ConnectorHandler = handlers.NewConnectorHandler(a.ConnectorService, a.Logger)
	a.KVHandler = handlers.NewKVHandler(a.KVService, a.Logger)
	a.WSChatHandler = handlers.NewWSChatHandler(a.ChatEngine, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	// Stop scheduled maintenance first so no sweep runs against closing stores
	if a.MaintenanceService != nil {
		a.MaintenanceService.Stop()
	}

	// Stop the log broadcaster; remaining shutdown logs still reach the
	// console and file writers
	if a.LogBroadcaster != nil {
		a.LogBroadcaster.Stop()
	}

	// Release the scraper's HTTP client and any browser allocator
	if a.ScraperService != nil {
		a.ScraperService.Close()
	}

	// Close LLM service
	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}

	// Close storage last
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
