package securitymaster

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/common"
	"github.com/ternarybob/tradeprep/internal/eodhd"
	"github.com/ternarybob/tradeprep/internal/interfaces"
	"github.com/ternarybob/tradeprep/internal/models"
)

// Source names recorded in SecurityMaster.SourceMap.
const (
	SourceReferenceTable = "reference_table"
	SourceEODHD          = "eodhd"
	SourcePlaceholder    = "placeholder"
)

const defaultAssetType = "Equity"

type tableEntry struct {
	exchange    string
	name        string
	description string
}

// referenceTable covers one representative ticker per built-in domain.
var referenceTable = map[string]tableEntry{
	"JPM":  {"NYSE", "JPMorgan Chase & Co.", "bank financial services deposits loans"},
	"O":    {"NYSE", "Realty Income", "reit net lease retail occupancy ffo noi"},
	"XOM":  {"NYSE", "Exxon Mobil", "oil gas upstream production capex opec"},
	"CRM":  {"NYSE", "Salesforce", "saas subscription cloud enterprise arr nrr"},
	"MRNA": {"NASDAQ", "Moderna", "biotech clinical trial fda phase pdufa"},
}

// TableSource serves the built-in reference table.
type TableSource struct {
	now func() time.Time
}

func NewTableSource() *TableSource {
	return &TableSource{now: time.Now}
}

func (s *TableSource) Name() string { return SourceReferenceTable }

func (s *TableSource) Lookup(ctx context.Context, ticker string) (models.SecurityMaster, error) {
	entry, ok := referenceTable[ticker]
	if !ok {
		return models.SecurityMaster{}, interfaces.ErrSecurityNotFound
	}
	return buildRecord(ticker, entry, SourceReferenceTable, s.now()), nil
}

// Placeholder is the record returned for tickers no source knows.
func Placeholder(ticker string, now time.Time) models.SecurityMaster {
	return buildRecord(ticker, tableEntry{exchange: "UNKNOWN", name: ticker}, SourcePlaceholder, now)
}

func buildRecord(ticker string, entry tableEntry, source string, now time.Time) models.SecurityMaster {
	return models.SecurityMaster{
		Ticker:              ticker,
		Exchange:            entry.exchange,
		Name:                entry.name,
		AssetTypeHint:       defaultAssetType,
		BusinessDescription: entry.description,
		SourceMap:           sourceMap(source, common.FormatTimestamp(now), "ticker", "exchange", "name", "business_description"),
	}
}

func sourceMap(source, updatedAt string, fields ...string) map[string]models.SourceRef {
	m := make(map[string]models.SourceRef, len(fields))
	for _, f := range fields {
		m[f] = models.SourceRef{Source: source, UpdatedAt: updatedAt}
	}
	return m
}

// FundamentalsClient is the part of the EODHD client used for lookups.
type FundamentalsClient interface {
	GetFundamentals(ctx context.Context, symbol string) (*eodhd.FundamentalsResponse, error)
}

// EODHDSource resolves unknown tickers from the EODHD fundamentals General section.
type EODHDSource struct {
	client FundamentalsClient
	logger arbor.ILogger
	now    func() time.Time
}

func NewEODHDSource(client FundamentalsClient, logger arbor.ILogger) *EODHDSource {
	return &EODHDSource{client: client, logger: logger, now: time.Now}
}

func (s *EODHDSource) Name() string { return SourceEODHD }

func (s *EODHDSource) Lookup(ctx context.Context, ticker string) (models.SecurityMaster, error) {
	symbol := common.ParseTicker(ticker).EODHDSymbol()
	resp, err := s.client.GetFundamentals(ctx, symbol)
	if err != nil {
		var apiErr *eodhd.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return models.SecurityMaster{}, interfaces.ErrSecurityNotFound
		}
		return models.SecurityMaster{}, err
	}
	if resp == nil || resp.General == nil || strings.TrimSpace(resp.General.Name) == "" {
		return models.SecurityMaster{}, interfaces.ErrSecurityNotFound
	}

	g := resp.General
	updatedAt := common.FormatTimestamp(s.now())
	if t, ok := common.ParseTimestamp(g.UpdatedAt); ok {
		updatedAt = common.FormatTimestamp(t)
	}

	industry := g.GicIndustry
	if industry == "" {
		industry = g.Industry
	}

	fields := []string{"ticker", "exchange", "name", "asset_type_hint"}
	if industry != "" {
		fields = append(fields, "industry_classification")
	}
	if g.Description != "" {
		fields = append(fields, "business_description")
	}

	s.logger.Debug().Str("ticker", ticker).Str("symbol", symbol).Str("name", g.Name).Msg("Resolved security from EODHD fundamentals")

	return models.SecurityMaster{
		Ticker:                 ticker,
		Exchange:               g.Exchange,
		Name:                   g.Name,
		AssetTypeHint:          assetTypeHint(g.Type),
		IndustryClassification: industry,
		BusinessDescription:    g.Description,
		SourceMap:              sourceMap(SourceEODHD, updatedAt, fields...),
	}, nil
}

// assetTypeHint maps EODHD security types onto router asset types.
func assetTypeHint(eodhdType string) string {
	switch strings.ToLower(strings.TrimSpace(eodhdType)) {
	case "etf":
		return "ETF"
	case "fund", "mutual fund":
		return "Fund"
	case "preferred share", "preferred stock":
		return "Preferred"
	default:
		return defaultAssetType
	}
}

// CachedSource puts a SecurityMasterStorage in front of a slower source.
type CachedSource struct {
	inner   interfaces.SecurityMasterSource
	storage interfaces.SecurityMasterStorage
	logger  arbor.ILogger
}

func NewCachedSource(inner interfaces.SecurityMasterSource, storage interfaces.SecurityMasterStorage, logger arbor.ILogger) *CachedSource {
	return &CachedSource{inner: inner, storage: storage, logger: logger}
}

func (s *CachedSource) Name() string { return s.inner.Name() }

func (s *CachedSource) Lookup(ctx context.Context, ticker string) (models.SecurityMaster, error) {
	cached, err := s.storage.GetSecurity(ctx, ticker)
	if err == nil && cached != nil {
		s.logger.Debug().Str("ticker", ticker).Str("source", s.inner.Name()).Msg("Using cached security master")
		return *cached, nil
	}
	if err != nil && !errors.Is(err, interfaces.ErrSecurityNotFound) {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Security master cache read failed")
	}

	record, err := s.inner.Lookup(ctx, ticker)
	if err != nil {
		return record, err
	}

	if err := s.storage.SaveSecurity(ctx, record); err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache security master")
	}
	return record, nil
}
