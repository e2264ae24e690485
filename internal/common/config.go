package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/ternarybob/tradeprep/internal/interfaces"
)

// AppName is used for data directories, log file names and the banner.
const AppName = "tradeprep"

// Config represents the application configuration
type Config struct {
	Environment    string               `toml:"environment" validate:"omitempty,oneof=development production dev prod test"`
	Logging        LoggingConfig        `toml:"logging"`
	Storage        StorageConfig        `toml:"storage"`
	Audit          AuditConfig          `toml:"audit"`
	Taxonomy       TaxonomyConfig       `toml:"taxonomy"`
	AnalysisSchema AnalysisSchemaConfig `toml:"analysis_schema"`
	News           NewsConfig           `toml:"news"`
	EODHD          EODHDConfig          `toml:"eodhd"`
	AlphaVantage   AlphaVantageConfig   `toml:"alphavantage"`
	Preprocess     PreprocessConfig     `toml:"preprocess"`
	Report         ReportConfig         `toml:"report"`
	Scheduler      SchedulerConfig      `toml:"scheduler"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Enabled        bool   `toml:"enabled"`
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
	VariablesFile  string `toml:"variables_file"`   // TOML file of API keys loaded into the KV store
}

// AuditConfig controls the append-only JSONL event streams.
type AuditConfig struct {
	Dir           string `toml:"dir" validate:"required"`
	MirrorToDebug bool   `toml:"mirror_to_debug"` // also emit each record as a debug log line
}

// TaxonomyConfig points at a taxonomy YAML file; empty uses the embedded default.
type TaxonomyConfig struct {
	Path string `toml:"path"`
}

// AnalysisSchemaConfig points at an analysis schema JSON file; empty uses the embedded default.
type AnalysisSchemaConfig struct {
	Path string `toml:"path"`
}

type NewsConfig struct {
	Vendors      []string `toml:"vendors" validate:"dive,oneof=eodhd alphavantage rss"` // tried in order
	FallbackFile string   `toml:"fallback_file"`                                         // JSON list of records used when every vendor fails
	WindowDays   int      `toml:"window_days" validate:"gte=1,lte=365"`
	CompanyLimit int      `toml:"company_limit" validate:"gte=1"`
	MacroLimit   int      `toml:"macro_limit" validate:"gte=1"`
	MacroTopics  []string `toml:"macro_topics"`
	RSSFeeds     []string `toml:"rss_feeds" validate:"dive,url"`
}

type EODHDConfig struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url" validate:"omitempty,url"`
	RateLimit int    `toml:"rate_limit" validate:"gte=0"`
	// Fundamentals enables SecurityMaster lookups for tickers missing from the reference table.
	Fundamentals bool `toml:"fundamentals"`
}

type AlphaVantageConfig struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url" validate:"omitempty,url"`
	RateLimit int    `toml:"rate_limit" validate:"gte=0"`
}

type PreprocessConfig struct {
	CompanyTopK        int     `toml:"company_top_k" validate:"gte=0"`
	MacroTopK          int     `toml:"macro_top_k" validate:"gte=0"`
	RelevanceThreshold float64 `toml:"relevance_threshold" validate:"gte=0,lte=1"`
}

type ReportConfig struct {
	// ExtractFromText fills metrics and answers from markdown reports before compliance scoring.
	ExtractFromText bool `toml:"extract_from_text"`
}

type SchedulerConfig struct {
	Enabled  bool     `toml:"enabled"`
	Schedule string   `toml:"schedule"`
	Tickers  []string `toml:"tickers"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Enabled:       false,
				Path:          filepath.Join(xdg.DataHome, AppName, "badger"),
				VariablesFile: "variables.toml",
			},
		},
		Audit: AuditConfig{
			Dir: "logs",
		},
		News: NewsConfig{
			Vendors:      []string{},
			WindowDays:   7,
			CompanyLimit: 50,
			MacroLimit:   50,
			MacroTopics:  []string{},
			RSSFeeds:     []string{},
		},
		EODHD: EODHDConfig{
			BaseURL:   "https://eodhd.com/api",
			RateLimit: 10,
		},
		AlphaVantage: AlphaVantageConfig{
			BaseURL:   "https://www.alphavantage.co",
			RateLimit: 1,
		},
		Preprocess: PreprocessConfig{
			CompanyTopK:        5,
			MacroTopK:          3,
			RelevanceThreshold: 0.2,
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Schedule: "0 7 * * 1-5",
			Tickers:  []string{},
		},
	}
}

// LoadFromFile loads configuration from a single file (backward compatibility)
func LoadFromFile(kvStorage interfaces.KeyValueStorage, path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles(kvStorage)
	}
	return LoadFromFiles(kvStorage, path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> {key} replacement -> env overrides.
func LoadFromFiles(kvStorage interfaces.KeyValueStorage, paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Later files override earlier ones
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	if kvStorage != nil {
		logger := GetLogger()
		kvMap, err := kvStorage.GetAll(context.Background())
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to fetch KV map for config replacement, skipping replacement")
		} else if err := ReplaceInStruct(config, kvMap, logger); err != nil {
			logger.Warn().Err(err).Msg("Failed to replace key references in config")
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TRADEPREP_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("TRADEPREP_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("TRADEPREP_LOG_OUTPUT"); output != "" {
		if outputs := splitList(output); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if badgerPath := os.Getenv("TRADEPREP_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
		config.Storage.Badger.Enabled = true
	}
	if dir := os.Getenv("TRADEPREP_AUDIT_DIR"); dir != "" {
		config.Audit.Dir = dir
	}

	if path := os.Getenv("TRADEPREP_TAXONOMY_PATH"); path != "" {
		config.Taxonomy.Path = path
	}
	if path := os.Getenv("TRADEPREP_ANALYSIS_SCHEMA_PATH"); path != "" {
		config.AnalysisSchema.Path = path
	}

	if vendors := os.Getenv("TRADEPREP_NEWS_VENDORS"); vendors != "" {
		config.News.Vendors = splitList(vendors)
	}
	if fallback := os.Getenv("TRADEPREP_NEWS_FALLBACK_FILE"); fallback != "" {
		config.News.FallbackFile = fallback
	}
	if days := os.Getenv("TRADEPREP_NEWS_WINDOW_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err == nil {
			config.News.WindowDays = d
		}
	}

	if baseURL := os.Getenv("TRADEPREP_EODHD_BASE_URL"); baseURL != "" {
		config.EODHD.BaseURL = baseURL
	}
	if baseURL := os.Getenv("TRADEPREP_ALPHAVANTAGE_BASE_URL"); baseURL != "" {
		config.AlphaVantage.BaseURL = baseURL
	}

	if topK := os.Getenv("TRADEPREP_PREPROCESS_COMPANY_TOP_K"); topK != "" {
		if k, err := strconv.Atoi(topK); err == nil {
			config.Preprocess.CompanyTopK = k
		}
	}
	if topK := os.Getenv("TRADEPREP_PREPROCESS_MACRO_TOP_K"); topK != "" {
		if k, err := strconv.Atoi(topK); err == nil {
			config.Preprocess.MacroTopK = k
		}
	}
	if threshold := os.Getenv("TRADEPREP_PREPROCESS_RELEVANCE_THRESHOLD"); threshold != "" {
		if v, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Preprocess.RelevanceThreshold = v
		}
	}

	if extract := os.Getenv("TRADEPREP_REPORT_EXTRACT_FROM_TEXT"); extract != "" {
		if v, err := strconv.ParseBool(extract); err == nil {
			config.Report.ExtractFromText = v
		}
	}

	if schedule := os.Getenv("TRADEPREP_SCHEDULER_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}
	if tickers := os.Getenv("TRADEPREP_SCHEDULER_TICKERS"); tickers != "" {
		config.Scheduler.Tickers = splitList(tickers)
	}
}

// Validate checks struct tags and the scheduler cron expression.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Scheduler.Enabled {
		if err := ValidateSchedule(c.Scheduler.Schedule); err != nil {
			return fmt.Errorf("invalid scheduler configuration: %w", err)
		}
	}
	return nil
}

// ResolveAPIKey resolves an API key by name with environment variable priority
// Resolution order: environment variables → KV store → config fallback → error
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"eodhd_api_key":        {"TRADEPREP_EODHD_API_KEY", "EODHD_API_KEY"},
		"alphavantage_api_key": {"TRADEPREP_ALPHAVANTAGE_API_KEY", "ALPHAVANTAGE_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// ValidateSchedule validates a 5-field cron expression and ensures minimum 5-minute interval
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	minuteField := strings.Fields(schedule)[0]
	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}
	if strings.HasPrefix(minuteField, "*/") {
		interval, err := strconv.Atoi(strings.TrimPrefix(minuteField, "*/"))
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// DeepCloneConfig creates a deep copy of the Config struct
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}

	clone := *c
	clone.Logging.Output = append([]string(nil), c.Logging.Output...)
	clone.News.Vendors = append([]string(nil), c.News.Vendors...)
	clone.News.MacroTopics = append([]string(nil), c.News.MacroTopics...)
	clone.News.RSSFeeds = append([]string(nil), c.News.RSSFeeds...)
	clone.Scheduler.Tickers = append([]string(nil), c.Scheduler.Tickers...)

	return &clone
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
