package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/alphavantage"
	"github.com/ternarybob/tradeprep/internal/common"
	"github.com/ternarybob/tradeprep/internal/eodhd"
	"github.com/ternarybob/tradeprep/internal/interfaces"
	"github.com/ternarybob/tradeprep/internal/models"
	"github.com/ternarybob/tradeprep/internal/services/audit"
	"github.com/ternarybob/tradeprep/internal/services/news"
	"github.com/ternarybob/tradeprep/internal/services/pipeline"
	"github.com/ternarybob/tradeprep/internal/services/report"
	"github.com/ternarybob/tradeprep/internal/services/router"
	"github.com/ternarybob/tradeprep/internal/services/securitymaster"
	"github.com/ternarybob/tradeprep/internal/services/taxonomy"
	"github.com/ternarybob/tradeprep/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config  *common.Config
	Logger  arbor.ILogger
	Storage *badger.Manager // nil when badger is disabled

	Taxonomy       models.Taxonomy
	AnalysisSchema models.AnalysisSchema

	AuditSink      interfaces.AuditSink
	AuditReader    *audit.Reader
	SecurityMaster *securitymaster.Service
	NewsProvider   *news.Provider
	Router         *router.Service
	Reports        *report.Service
	Pipeline       *pipeline.Service
	Scheduler      *pipeline.Scheduler
}

// New initializes the application with all dependencies.
// The config is cloned so {key} replacement never mutates the caller's copy.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	cfg = common.DeepCloneConfig(cfg)
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Bool("production", cfg.IsProduction()).
		Bool("badger_enabled", app.Storage != nil).
		Strs("news_vendors", cfg.News.Vendors).
		Str("taxonomy_version", app.Taxonomy.Version).
		Str("schema_version", app.AnalysisSchema.Version).
		Str("audit_dir", cfg.Audit.Dir).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage opens Badger when enabled, loads the variables file into the KV
// store and applies {key} replacements to the config.
func (a *App) initStorage() error {
	if !a.Config.Storage.Badger.Enabled {
		a.Logger.Debug().Msg("Badger storage disabled, SecurityMaster cache and KV lookups unavailable")
		return nil
	}

	manager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.Storage = manager

	ctx := context.Background()
	if path := a.Config.Storage.Badger.VariablesFile; path != "" {
		if loaded, err := manager.LoadVariablesFromFile(ctx, path); err != nil {
			a.Logger.Warn().Err(err).Str("file", path).Msg("Failed to load variables from file")
		} else if loaded > 0 {
			a.Logger.Debug().Int("loaded", loaded).Str("file", path).Msg("Loaded variables into KV store")
		}
	}

	kvMap, err := manager.KeyValueStorage().GetAll(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to fetch KV map for config replacement, skipping replacement")
	} else if len(kvMap) > 0 {
		if err := common.ReplaceInStruct(a.Config, kvMap, a.Logger); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to replace key references in config")
		} else {
			a.Logger.Debug().Int("keys", len(kvMap)).Msg("Applied key/value replacements to config")
		}
	}

	return nil
}

func (a *App) initServices() error {
	var err error

	a.Taxonomy, err = taxonomy.LoadTaxonomy(a.Config.Taxonomy.Path)
	if err != nil {
		return err
	}
	a.AnalysisSchema, err = taxonomy.LoadAnalysisSchema(a.Config.AnalysisSchema.Path)
	if err != nil {
		return err
	}

	jsonl := audit.NewJSONLSink(a.Config.Audit.Dir, a.Logger)
	a.AuditSink = jsonl
	if a.Config.Audit.MirrorToDebug {
		a.AuditSink = audit.NewMirrorSink(jsonl, a.Logger)
	}
	a.AuditReader = audit.NewReader(a.Config.Audit.Dir, a.Logger)

	a.SecurityMaster = securitymaster.NewService(a.Logger, a.securitySources()...)

	fallback, err := news.LoadFallback(a.Config.News.FallbackFile)
	if err != nil {
		a.Logger.Warn().Err(err).Str("file", a.Config.News.FallbackFile).Msg("Failed to load news fallback file, continuing without fallback")
	}
	a.NewsProvider = news.NewProvider(a.Logger, fallback, a.newsVendors()...)

	a.Router = router.NewService(a.Taxonomy, a.AnalysisSchema, a.Logger)

	var extractor interfaces.ReportExtractor = report.NoneExtractor{}
	if a.Config.Report.ExtractFromText {
		extractor = report.NewMarkdownExtractor()
	}
	a.Reports = report.NewService(extractor, a.Logger)

	a.Pipeline = pipeline.NewService(
		pipeline.OptionsFromConfig(a.Config),
		a.SecurityMaster,
		a.NewsProvider,
		a.Router,
		a.Reports,
		a.AuditSink,
		a.Logger,
	)
	a.Scheduler = pipeline.NewScheduler(a.Pipeline, a.Config.Scheduler.Tickers, a.Logger)

	return nil
}

func (a *App) kvStorage() interfaces.KeyValueStorage {
	if a.Storage == nil {
		return nil
	}
	return a.Storage.KeyValueStorage()
}

func (a *App) eodhdClient() *eodhd.Client {
	key, err := common.ResolveAPIKey(context.Background(), a.kvStorage(), "eodhd_api_key", a.Config.EODHD.APIKey)
	if err != nil {
		a.Logger.Debug().Err(err).Msg("EODHD API key not configured")
		return nil
	}
	return eodhd.NewClient(key,
		eodhd.WithBaseURL(a.Config.EODHD.BaseURL),
		eodhd.WithRateLimit(a.Config.EODHD.RateLimit),
		eodhd.WithLogger(a.Logger),
	)
}

// securitySources orders lookups: reference table, then EODHD fundamentals
// (cached in Badger when available).
func (a *App) securitySources() []interfaces.SecurityMasterSource {
	sources := []interfaces.SecurityMasterSource{securitymaster.NewTableSource()}
	if !a.Config.EODHD.Fundamentals {
		return sources
	}

	client := a.eodhdClient()
	if client == nil {
		a.Logger.Warn().Msg("EODHD fundamentals enabled but no API key found, using reference table only")
		return sources
	}

	var src interfaces.SecurityMasterSource = securitymaster.NewEODHDSource(client, a.Logger)
	if a.Storage != nil {
		src = securitymaster.NewCachedSource(src, a.Storage.SecurityMasterStorage(), a.Logger)
	}
	return append(sources, src)
}

// newsVendors builds the configured vendors in order; vendors missing an API
// key are skipped with a warning.
func (a *App) newsVendors() []interfaces.NewsVendor {
	var vendors []interfaces.NewsVendor
	for _, name := range a.Config.News.Vendors {
		switch name {
		case news.VendorEODHD:
			if client := a.eodhdClient(); client != nil {
				vendors = append(vendors, news.NewEODHDVendor(client, a.Logger))
				continue
			}
		case news.VendorAlphaVantage:
			key, err := common.ResolveAPIKey(context.Background(), a.kvStorage(), "alphavantage_api_key", a.Config.AlphaVantage.APIKey)
			if err == nil {
				vendors = append(vendors, news.NewAlphaVantageVendor(alphavantage.NewClient(key,
					alphavantage.WithBaseURL(a.Config.AlphaVantage.BaseURL),
					alphavantage.WithRateLimit(a.Config.AlphaVantage.RateLimit),
					alphavantage.WithLogger(a.Logger),
				)))
				continue
			}
		case news.VendorRSS:
			if len(a.Config.News.RSSFeeds) > 0 {
				vendors = append(vendors, news.NewRSSVendor(a.Config.News.RSSFeeds, a.Logger))
				continue
			}
		}
		a.Logger.Warn().Str("vendor", name).Msg("News vendor not configured, skipping")
	}
	return vendors
}

// Close stops the scheduler and releases storage.
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.AuditSink != nil {
		if err := a.AuditSink.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close audit sink")
		}
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Debug().Msg("Storage closed")
	}
	return nil
}
