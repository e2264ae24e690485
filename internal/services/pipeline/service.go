// Package pipeline runs the pre-analysis stages for a ticker: security
// lookup, news fetch, routing, preprocessing, and later report enforcement,
// auditing each stage.
package pipeline

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/common"
	"github.com/ternarybob/tradeprep/internal/interfaces"
	"github.com/ternarybob/tradeprep/internal/models"
	"github.com/ternarybob/tradeprep/internal/services/audit"
	"github.com/ternarybob/tradeprep/internal/services/preprocess"
	"github.com/ternarybob/tradeprep/internal/services/report"
	"github.com/ternarybob/tradeprep/internal/services/router"
)

// Component version stamps.
const (
	ProviderVersion     = "internal_news_v1"
	PreprocessorVersion = "preprocess_v1"
)

// UsedTextFields are the news fields fed to the router.
var UsedTextFields = []string{"title", "summary", "body"}

// Options are the run parameters taken from configuration.
type Options struct {
	WindowDays   int
	CompanyLimit int
	MacroLimit   int
	MacroTopics  []string
	Preprocess   common.PreprocessConfig
}

// OptionsFromConfig reads run parameters from the loaded configuration.
func OptionsFromConfig(c *common.Config) Options {
	return Options{
		WindowDays:   c.News.WindowDays,
		CompanyLimit: c.News.CompanyLimit,
		MacroLimit:   c.News.MacroLimit,
		MacroTopics:  c.News.MacroTopics,
		Preprocess:   c.Preprocess,
	}
}

// Service wires the stages together.
type Service struct {
	opts     Options
	security interfaces.SecurityMasterProvider
	news     interfaces.NewsProvider
	router   *router.Service
	reports  *report.Service
	sink     interfaces.AuditSink
	logger   arbor.ILogger
	now      func() time.Time
}

// NewService creates a pipeline. sink may be nil to disable auditing.
func NewService(
	opts Options,
	security interfaces.SecurityMasterProvider,
	news interfaces.NewsProvider,
	router *router.Service,
	reports *report.Service,
	sink interfaces.AuditSink,
	logger arbor.ILogger,
) *Service {
	if opts.WindowDays <= 0 {
		opts.WindowDays = 7
	}
	return &Service{
		opts:     opts,
		security: security,
		news:     news,
		router:   router,
		reports:  reports,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}
}

// Versions returns the version bundle stamped on every record.
func (s *Service) Versions() models.VersionBundle {
	return models.VersionBundle{
		Router:       s.router.Taxonomy().Version,
		Schema:       s.router.Schema().Version,
		Provider:     ProviderVersion,
		Preprocessor: PreprocessorVersion,
	}
}

// Run executes one pipeline run. An unparsable tradeDate means now.
// Routing happens before preprocessing since relevance keywords depend on the domain.
func (s *Service) Run(ctx context.Context, ticker, tradeDate string) models.RunResult {
	now := s.now().UTC()
	ticker = common.CanonicalTicker(ticker)
	end := common.ParseTradeDate(tradeDate, now)
	start := end.AddDate(0, 0, -s.opts.WindowDays)

	result := models.RunResult{
		RunID:     common.NewRunID(now),
		Ticker:    ticker,
		AsOf:      common.FormatTimestamp(now),
		TradeDate: common.FormatTimestamp(end),
		Window:    models.TimeWindow{Start: common.FormatTimestamp(start), End: common.FormatTimestamp(end)},
		Version:   s.Versions(),
	}

	logger := s.logger.WithCorrelationId(result.RunID)
	run := s.auditRun(result.Header(), logger)

	logger.Info().Str("ticker", ticker).Str("window_start", result.Window.Start).Str("window_end", result.Window.End).Msg("Pipeline run started")

	result.SecurityMaster = s.security.Get(ctx, ticker)

	company := s.news.GetCompanyNews(ctx, ticker, start, end, s.opts.CompanyLimit)
	macro := s.news.GetMacroNews(ctx, start, end, s.opts.MacroTopics, s.opts.MacroLimit)
	run.NewsFetch(result.Window, models.NewsCounts{Company: len(company), Macro: len(macro)})

	all := append(append([]models.NewsItem{}, company...), macro...)
	result.Classification = s.router.Route(ticker, result.SecurityMaster, models.NewsTexts(all), all)
	result.Schema = s.router.Schema().Schema(result.Classification.AnalysisSchemaID)
	run.Classification(result.SecurityMaster, models.NewsContext{
		CompanyCount:   len(company),
		MacroCount:     len(macro),
		UsedTextFields: UsedTextFields,
	}, result.Classification)

	cfg := preprocess.FromConfig(s.opts.Preprocess, s.router.Taxonomy())
	result.News = preprocess.Preprocess(ticker, result.Classification.DomainCategory, company, macro, cfg)
	run.NewsPreprocess(result.News)

	logger.Info().
		Str("ticker", ticker).
		Str("domain", result.Classification.DomainCategory).
		Float64("confidence", result.Classification.Confidence).
		Int("company_cards", len(result.News.CompanyNewsCards)).
		Int("macro_cards", len(result.News.MacroNewsCards)).
		Msg("Pipeline run completed")

	return result
}

// EnforceReport wraps an analyst's text report for a completed run and records it.
func (s *Service) EnforceReport(ctx context.Context, result models.RunResult, agent, rawText string, evidence []map[string]interface{}, extra map[string]interface{}) models.StructuredReport {
	logger := s.logger.WithCorrelationId(result.RunID)
	return s.reports.Enforce(ctx, s.auditRun(result.Header(), logger), report.Request{
		AgentName:        agent,
		Ticker:           result.Ticker,
		DomainCategory:   result.Classification.DomainCategory,
		AnalysisSchemaID: result.Classification.AnalysisSchemaID,
		Schema:           result.Schema,
		RawTextReport:    rawText,
		KeyEvidence:      evidence,
		ExtraFields:      extra,
	})
}

// StageRun starts an audit recorder for a single stage invoked outside Run,
// such as a standalone routing or preprocessing call. It is nil without a sink.
func (s *Service) StageRun(ticker string) *audit.Run {
	now := s.now().UTC()
	header := models.AuditHeader{
		RunID:   common.NewRunID(now),
		Ticker:  common.CanonicalTicker(ticker),
		AsOf:    common.FormatTimestamp(now),
		Version: s.Versions(),
	}
	return s.auditRun(header, s.logger.WithCorrelationId(header.RunID))
}

func (s *Service) auditRun(header models.AuditHeader, logger arbor.ILogger) *audit.Run {
	if s.sink == nil {
		return nil
	}
	return audit.NewRun(s.sink, header, logger)
}
