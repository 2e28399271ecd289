package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment"` // "development" or "production"
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Logging     LoggingConfig     `toml:"logging"`
	Variables   KeysDirConfig     `toml:"variables"` // Variables directory (./keys/*.toml) for key/value pairs
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	Composer    ComposerConfig    `toml:"composer"`
	Chunking    ChunkingConfig    `toml:"chunking"`
	Sessions    SessionsConfig    `toml:"sessions"`
	Scraper     ScraperConfig     `toml:"scraper"`
	Gemini      GeminiConfig      `toml:"gemini"`
	Claude      ClaudeConfig      `toml:"claude"`
	LLM         LLMConfig         `toml:"llm"`
	Analytics   AnalyticsConfig   `toml:"analytics"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
	Seeds       SeedsConfig       `toml:"seeds"`
	WebSocket   WebSocketConfig   `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// KeysDirConfig contains configuration for key/value file loading (generic secrets/configuration)
type KeysDirConfig struct {
	Dir string `toml:"dir"` // Directory containing variable files (TOML)
}

// RetrievalConfig contains the single documented threshold set for knowledge search.
// Scores from both tiers are normalized to [0,1] so these values apply uniformly.
type RetrievalConfig struct {
	SimilarityThreshold float64 `toml:"similarity_threshold"` // Minimum cosine similarity for vector matches (default: 0.3)
	KeywordFloor        float64 `toml:"keyword_floor"`        // Minimum normalized score for keyword matches (default: 0.1)
	MaxResults          int     `toml:"max_results"`          // Maximum matches returned per query (default: 5)
}

// ComposerConfig controls response composition behavior
type ComposerConfig struct {
	ClarificationThreshold float64 `toml:"clarification_threshold"` // Best-match score below which a clarification prompt is returned (default: 0.3)
	MaxSentences           int     `toml:"max_sentences"`           // Maximum sentences per reply (default: 2)
	ContextChars           int     `toml:"context_chars"`           // Per-match context truncation length (default: 500)
	HistoryMessages        int     `toml:"history_messages"`        // Recent conversation messages included as context (default: 5)
	TemplatesDir           string  `toml:"templates_dir"`           // Directory of prompt template overrides (default: embedded templates only)
}

// ChunkingConfig controls how ingested content is split before vectorization
type ChunkingConfig struct {
	Size    int `toml:"size"`    // Target chunk size in words (default: 500)
	Overlap int `toml:"overlap"` // Overlapping words between adjacent chunks (default: 50)
}

// SessionsConfig controls in-memory conversation session retention
type SessionsConfig struct {
	TTL string `toml:"ttl"` // Session retention as duration string (default: "24h")
}

// ScraperConfig contains website training crawl configuration
type ScraperConfig struct {
	UserAgent          string        `toml:"user_agent"`           // User agent string for page fetches
	MaxPages           int           `toml:"max_pages"`            // Maximum pages per training crawl (default: 50)
	MaxDepth           int           `toml:"max_depth"`            // Maximum link depth from the start URL (default: 3)
	RequestDelay       time.Duration `toml:"request_delay"`        // Minimum delay between requests (default: 1s)
	RequestTimeout     time.Duration `toml:"request_timeout"`      // HTTP request timeout (default: 30s)
	MaxBodySize        int           `toml:"max_body_size"`        // Maximum response body size in bytes (default: 10MB)
	OnlyMainContent    bool          `toml:"only_main_content"`    // Extract only main content, removing nav/footer/ads
	IncludeMetadata    bool          `toml:"include_metadata"`     // Extract and include page metadata
	EnableJavaScript   bool          `toml:"enable_javascript"`    // Enable JavaScript rendering with chromedp for SPA sites
	JavaScriptWaitTime time.Duration `toml:"javascript_wait_time"` // Time to wait for JavaScript to render (default: 3s)
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey         string  `toml:"api_key"`         // Google Gemini API key
	Model          string  `toml:"model"`           // Chat model (default: "gemini-3-flash-preview")
	EmbeddingModel string  `toml:"embedding_model"` // Embedding model (default: "gemini-embedding-001")
	Timeout        string  `toml:"timeout"`         // Operation timeout as duration string (default: "5m")
	RateLimit      string  `toml:"rate_limit"`      // Rate limit duration string (default: "4s" for 15 RPM)
	Temperature    float32 `toml:"temperature"`     // Chat completion temperature (default: 0.7)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Chat model (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 1024)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
	// LLMProviderNone disables cloud LLM calls entirely; the pipeline runs on
	// deterministic fallbacks (pseudo-embeddings, keyword retrieval, templates)
	LLMProviderNone LLMProvider = "none"
)

// LLMConfig contains unified configuration for AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini", "claude" or "none" (default: "gemini")
}

// AnalyticsConfig controls interaction recording and reporting
type AnalyticsConfig struct {
	Enabled       bool   `toml:"enabled"`        // Record chat interactions for analytics (default: true)
	RetentionDays int    `toml:"retention_days"` // Days of interaction history to keep (default: 90)
	ReportDir     string `toml:"report_dir"`     // Directory for generated PDF reports (default: "./reports")
}

// MaintenanceConfig controls scheduled background upkeep
type MaintenanceConfig struct {
	Enabled  bool   `toml:"enabled"`  // Run scheduled maintenance (default: true)
	Schedule string `toml:"schedule"` // Cron schedule (5-field) for the maintenance sweep (default: "0 3 * * *")
}

// SeedsConfig controls YAML knowledge seed import
type SeedsConfig struct {
	Dir             string `toml:"dir"`               // Directory containing seed YAML files (default: "./seeds")
	ImportOnStartup bool   `toml:"import_on_startup"` // Import seed files when the server starts (default: false)
}

// WebSocketConfig contains configuration for WebSocket log streaming
type WebSocketConfig struct {
	MinLevel        string   `toml:"min_level"`        // Minimum log level to broadcast ("debug", "info", "warn", "error")
	ExcludePatterns []string `toml:"exclude_patterns"` // Log message patterns to exclude from broadcasting
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in respondo.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development", // Default to development mode
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",                     // Info level for production (debug|info|warn|error)
			Format:     "text",                     // Human-readable text format (text|json)
			Output:     []string{"stdout", "file"}, // Log to both console and file
			TimeFormat: "15:04:05",
		},
		Variables: KeysDirConfig{
			Dir: "./keys", // Default directory for variable TOML files
		},
		Retrieval: RetrievalConfig{
			SimilarityThreshold: 0.3, // Cosine similarity floor for vector matches
			KeywordFloor:        0.1, // Normalized score floor for keyword matches
			MaxResults:          5,
		},
		Composer: ComposerConfig{
			ClarificationThreshold: 0.3, // Below this, ask the user to rephrase instead of answering
			MaxSentences:           2,
			ContextChars:           500,
			HistoryMessages:        5,
		},
		Chunking: ChunkingConfig{
			Size:    500, // Words per chunk
			Overlap: 50,  // Words carried between adjacent chunks
		},
		Sessions: SessionsConfig{
			TTL: "24h",
		},
		Scraper: ScraperConfig{
			UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			MaxPages:           50,
			MaxDepth:           3,
			RequestDelay:       1 * time.Second,
			RequestTimeout:     30 * time.Second,
			MaxBodySize:        10 * 1024 * 1024, // 10MB
			OnlyMainContent:    true,
			IncludeMetadata:    true,
			EnableJavaScript:   false,           // Plain HTTP fetch by default; enable for SPA sites
			JavaScriptWaitTime: 3 * time.Second, // Wait 3 seconds for JavaScript to render
		},
		Gemini: GeminiConfig{
			APIKey:         "",                       // User must provide API key (no fallback)
			Model:          "gemini-3-flash-preview", // Model for chat completions
			EmbeddingModel: "gemini-embedding-001",   // Model for embeddings
			Timeout:        "5m",                     // 5 minutes for operations
			RateLimit:      "4s",                     // Default to 4s (15 RPM) for free tier
			Temperature:    0.7,                      // Default temperature for chat completions
		},
		Claude: ClaudeConfig{
			APIKey:      "",                          // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:       "claude-haiku-3-5-20241022", // Model for chat completions
			MaxTokens:   1024,                        // Replies are short; keep the cap low
			Timeout:     "5m",                        // 5 minutes for operations
			RateLimit:   "1s",                        // Default rate limit
			Temperature: 0.7,                         // Default temperature
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Analytics: AnalyticsConfig{
			Enabled:       true,
			RetentionDays: 90,
			ReportDir:     "./reports",
		},
		Maintenance: MaintenanceConfig{
			Enabled:  true,
			Schedule: "0 3 * * *", // Daily at 03:00
		},
		Seeds: SeedsConfig{
			Dir:             "./seeds",
			ImportOnStartup: false, // User must explicitly opt-in
		},
		WebSocket: WebSocketConfig{
			MinLevel: "info", // Default: info level and above
			ExcludePatterns: []string{
				"WebSocket client connected",
				"WebSocket client disconnected",
				"HTTP request",
				"HTTP response",
			},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
// Priority system: CLI flags > Environment variables > Config file > Defaults
// kvStorage can be nil (key reference replacement will be skipped)
func LoadFromFile(kvStorage interfaces.KeyValueStorage, path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles(kvStorage)
	}
	return LoadFromFiles(kvStorage, path)
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env -> CLI
// Later files override earlier files.
// Example: LoadFromFiles(kvStorage, "base.toml", "override.toml") - override.toml settings take precedence over base.toml
// kvStorage can be nil (key reference replacement will be skipped)
func LoadFromFiles(kvStorage interfaces.KeyValueStorage, paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Perform {key-name} replacement if KV storage is available
	if kvStorage != nil {
		ctx := context.Background()
		kvMap, err := kvStorage.GetAll(ctx)
		if err != nil {
			// Log warning and skip replacement (graceful degradation)
			logger := arbor.NewLogger()
			logger.Warn().Err(err).Msg("Failed to fetch KV map for config replacement, skipping replacement")
		} else {
			logger := arbor.NewLogger()
			if err := ReplaceInStruct(config, kvMap, logger); err != nil {
				logger.Warn().Err(err).Msg("Failed to replace key references in config")
			} else {
				logger.Info().Int("keys", len(kvMap)).Msg("Applied key/value replacements to config")
			}
		}
	}

	// Apply environment variables (overrides all file configs and replacements)
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: RESPONDO_ENV, fallback: GO_ENV)
	if env := os.Getenv("RESPONDO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("RESPONDO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("RESPONDO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("RESPONDO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("RESPONDO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("RESPONDO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("RESPONDO_LOG_OUTPUT"); output != "" {
		// Split comma-separated output types
		outputs := []string{}
		for _, o := range splitString(output, ",") {
			trimmed := trimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Variables configuration
	if variablesDir := os.Getenv("RESPONDO_VARIABLES_DIR"); variablesDir != "" {
		config.Variables.Dir = variablesDir
	}

	// Retrieval configuration
	if threshold := os.Getenv("RESPONDO_RETRIEVAL_SIMILARITY_THRESHOLD"); threshold != "" {
		if t, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Retrieval.SimilarityThreshold = t
		}
	}
	if floor := os.Getenv("RESPONDO_RETRIEVAL_KEYWORD_FLOOR"); floor != "" {
		if f, err := strconv.ParseFloat(floor, 64); err == nil {
			config.Retrieval.KeywordFloor = f
		}
	}
	if maxResults := os.Getenv("RESPONDO_RETRIEVAL_MAX_RESULTS"); maxResults != "" {
		if mr, err := strconv.Atoi(maxResults); err == nil {
			config.Retrieval.MaxResults = mr
		}
	}

	// Composer configuration
	if threshold := os.Getenv("RESPONDO_COMPOSER_CLARIFICATION_THRESHOLD"); threshold != "" {
		if t, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Composer.ClarificationThreshold = t
		}
	}
	if maxSentences := os.Getenv("RESPONDO_COMPOSER_MAX_SENTENCES"); maxSentences != "" {
		if ms, err := strconv.Atoi(maxSentences); err == nil {
			config.Composer.MaxSentences = ms
		}
	}
	if contextChars := os.Getenv("RESPONDO_COMPOSER_CONTEXT_CHARS"); contextChars != "" {
		if cc, err := strconv.Atoi(contextChars); err == nil {
			config.Composer.ContextChars = cc
		}
	}
	if historyMessages := os.Getenv("RESPONDO_COMPOSER_HISTORY_MESSAGES"); historyMessages != "" {
		if hm, err := strconv.Atoi(historyMessages); err == nil {
			config.Composer.HistoryMessages = hm
		}
	}

	// Chunking configuration
	if size := os.Getenv("RESPONDO_CHUNKING_SIZE"); size != "" {
		if s, err := strconv.Atoi(size); err == nil {
			config.Chunking.Size = s
		}
	}
	if overlap := os.Getenv("RESPONDO_CHUNKING_OVERLAP"); overlap != "" {
		if o, err := strconv.Atoi(overlap); err == nil {
			config.Chunking.Overlap = o
		}
	}

	// Sessions configuration
	if ttl := os.Getenv("RESPONDO_SESSIONS_TTL"); ttl != "" {
		if _, err := time.ParseDuration(ttl); err == nil {
			config.Sessions.TTL = ttl
		}
	}

	// Scraper configuration
	if userAgent := os.Getenv("RESPONDO_SCRAPER_USER_AGENT"); userAgent != "" {
		config.Scraper.UserAgent = userAgent
	}
	if maxPages := os.Getenv("RESPONDO_SCRAPER_MAX_PAGES"); maxPages != "" {
		if mp, err := strconv.Atoi(maxPages); err == nil {
			config.Scraper.MaxPages = mp
		}
	}
	if maxDepth := os.Getenv("RESPONDO_SCRAPER_MAX_DEPTH"); maxDepth != "" {
		if md, err := strconv.Atoi(maxDepth); err == nil {
			config.Scraper.MaxDepth = md
		}
	}
	if requestDelay := os.Getenv("RESPONDO_SCRAPER_REQUEST_DELAY"); requestDelay != "" {
		if rd, err := time.ParseDuration(requestDelay); err == nil {
			config.Scraper.RequestDelay = rd
		}
	}
	if requestTimeout := os.Getenv("RESPONDO_SCRAPER_REQUEST_TIMEOUT"); requestTimeout != "" {
		if rt, err := time.ParseDuration(requestTimeout); err == nil {
			config.Scraper.RequestTimeout = rt
		}
	}
	if maxBodySize := os.Getenv("RESPONDO_SCRAPER_MAX_BODY_SIZE"); maxBodySize != "" {
		if mbs, err := strconv.Atoi(maxBodySize); err == nil {
			config.Scraper.MaxBodySize = mbs
		}
	}
	if onlyMainContent := os.Getenv("RESPONDO_SCRAPER_ONLY_MAIN_CONTENT"); onlyMainContent != "" {
		if omc, err := strconv.ParseBool(onlyMainContent); err == nil {
			config.Scraper.OnlyMainContent = omc
		}
	}
	if enableJavaScript := os.Getenv("RESPONDO_SCRAPER_ENABLE_JAVASCRIPT"); enableJavaScript != "" {
		if ej, err := strconv.ParseBool(enableJavaScript); err == nil {
			config.Scraper.EnableJavaScript = ej
		}
	}

	// Gemini configuration
	if apiKey := os.Getenv("RESPONDO_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("RESPONDO_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if embeddingModel := os.Getenv("RESPONDO_GEMINI_EMBEDDING_MODEL"); embeddingModel != "" {
		config.Gemini.EmbeddingModel = embeddingModel
	}
	if timeout := os.Getenv("RESPONDO_GEMINI_TIMEOUT"); timeout != "" {
		config.Gemini.Timeout = timeout
	}
	if rateLimit := os.Getenv("RESPONDO_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}
	if temperature := os.Getenv("RESPONDO_GEMINI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Gemini.Temperature = float32(t)
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("RESPONDO_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // RESPONDO_ prefix takes priority
	}
	if model := os.Getenv("RESPONDO_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("RESPONDO_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("RESPONDO_CLAUDE_TIMEOUT"); timeout != "" {
		config.Claude.Timeout = timeout
	}
	if rateLimit := os.Getenv("RESPONDO_CLAUDE_RATE_LIMIT"); rateLimit != "" {
		config.Claude.RateLimit = rateLimit
	}
	if temperature := os.Getenv("RESPONDO_CLAUDE_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Claude.Temperature = float32(t)
		}
	}

	// LLM provider configuration
	if provider := os.Getenv("RESPONDO_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}

	// Analytics configuration
	if enabled := os.Getenv("RESPONDO_ANALYTICS_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Analytics.Enabled = e
		}
	}
	if retentionDays := os.Getenv("RESPONDO_ANALYTICS_RETENTION_DAYS"); retentionDays != "" {
		if rd, err := strconv.Atoi(retentionDays); err == nil {
			config.Analytics.RetentionDays = rd
		}
	}
	if reportDir := os.Getenv("RESPONDO_ANALYTICS_REPORT_DIR"); reportDir != "" {
		config.Analytics.ReportDir = reportDir
	}

	// Maintenance configuration
	if enabled := os.Getenv("RESPONDO_MAINTENANCE_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Maintenance.Enabled = e
		}
	}
	if schedule := os.Getenv("RESPONDO_MAINTENANCE_SCHEDULE"); schedule != "" {
		config.Maintenance.Schedule = schedule
	}

	// Seeds configuration
	if seedsDir := os.Getenv("RESPONDO_SEEDS_DIR"); seedsDir != "" {
		config.Seeds.Dir = seedsDir
	}
	if importOnStartup := os.Getenv("RESPONDO_SEEDS_IMPORT_ON_STARTUP"); importOnStartup != "" {
		if ios, err := strconv.ParseBool(importOnStartup); err == nil {
			config.Seeds.ImportOnStartup = ios
		}
	}

	// WebSocket configuration
	if minLevel := os.Getenv("RESPONDO_WEBSOCKET_MIN_LEVEL"); minLevel != "" {
		config.WebSocket.MinLevel = minLevel
	}
	if excludePatterns := os.Getenv("RESPONDO_WEBSOCKET_EXCLUDE_PATTERNS"); excludePatterns != "" {
		// Split comma-separated patterns
		patterns := []string{}
		for _, p := range splitString(excludePatterns, ",") {
			trimmed := trimSpace(p)
			if trimmed != "" {
				patterns = append(patterns, trimmed)
			}
		}
		if len(patterns) > 0 {
			config.WebSocket.ExcludePatterns = patterns
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key by name with environment variable priority
// Resolution order: environment variables → KV store → config fallback → error
// This ensures RESPONDO_* environment variables always take precedence
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	// Map of KV store key names to environment variable names
	// Environment variables have highest priority
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"RESPONDO_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"google_api_key":    {"RESPONDO_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"anthropic_api_key": {"RESPONDO_CLAUDE_API_KEY"},
		"claude_api_key":    {"RESPONDO_CLAUDE_API_KEY"},
	}

	// For Claude, also check the standard ANTHROPIC_API_KEY env var
	if name == "anthropic_api_key" || name == "claude_api_key" {
		if envValue := os.Getenv("ANTHROPIC_API_KEY"); envValue != "" {
			return envValue, nil
		}
	}

	// Check environment variables (highest priority)
	if envVarNames, hasMappedEnv := keyToEnvMapping[name]; hasMappedEnv {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	// Try to resolve from KV store (medium priority - file-based variables)
	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	// Fallback to config value (lowest priority)
	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// Helper functions for string manipulation
func splitString(s, sep string) []string {
	result := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if i+len(sep) <= len(s) && s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	result = append(result, s[start:])
	return result
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}

// ValidateMaintenanceSchedule validates a cron schedule expression and ensures minimum 5-minute interval
func ValidateMaintenanceSchedule(schedule string) error {
	// Parse the cron expression
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	// Check for minimum 5-minute interval
	// Validate minute field (first field in standard cron)
	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]

	// Check for patterns that violate 5-minute minimum
	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}

	// Check for */n patterns where n < 5
	if strings.HasPrefix(minuteField, "*/") {
		intervalStr := strings.TrimPrefix(minuteField, "*/")
		interval, err := strconv.Atoi(intervalStr)
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// SessionTTL returns the parsed session retention duration, falling back to
// 24 hours when the configured value is missing or malformed.
func (c *Config) SessionTTL() time.Duration {
	if c.Sessions.TTL != "" {
		if d, err := time.ParseDuration(c.Sessions.TTL); err == nil && d > 0 {
			return d
		}
	}
	return 24 * time.Hour
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// DeepCloneConfig creates a deep copy of the Config struct
// This prevents mutations of the original config from leaking between consumers.
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}

	// Clone the config struct (shallow copy first)
	clone := *c

	// Deep clone slice fields to prevent shared memory
	if len(c.Logging.Output) > 0 {
		clone.Logging.Output = make([]string, len(c.Logging.Output))
		copy(clone.Logging.Output, c.Logging.Output)
	}

	if len(c.WebSocket.ExcludePatterns) > 0 {
		clone.WebSocket.ExcludePatterns = make([]string, len(c.WebSocket.ExcludePatterns))
		copy(clone.WebSocket.ExcludePatterns, c.WebSocket.ExcludePatterns)
	}

	return &clone
}
