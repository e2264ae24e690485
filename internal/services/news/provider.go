package news

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/common"
	"github.com/ternarybob/tradeprep/internal/interfaces"
	"github.com/ternarybob/tradeprep/internal/models"
)

// healthcheckTicker is the probe symbol used by Healthcheck.
const healthcheckTicker = "AAPL"

// Fallback holds static records served when every vendor fails.
type Fallback struct {
	Company []map[string]interface{} `json:"company_news"`
	Macro   []map[string]interface{} `json:"macro_news"`
}

// Empty reports whether no fallback records are available.
func (f Fallback) Empty() bool {
	return len(f.Company) == 0 && len(f.Macro) == 0
}

// LoadFallback reads a JSON file of the form
// {"company_news": [...], "macro_news": [...]}. An empty path yields no fallback.
func LoadFallback(path string) (Fallback, error) {
	if path == "" {
		return Fallback{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Fallback{}, fmt.Errorf("failed to read news fallback %s: %w", path, err)
	}
	var fb Fallback
	if err := json.Unmarshal(data, &fb); err != nil {
		return Fallback{}, fmt.Errorf("failed to parse news fallback %s: %w", path, err)
	}
	return fb, nil
}

// Provider implements interfaces.NewsProvider over an ordered vendor list.
type Provider struct {
	vendors  []interfaces.NewsVendor
	fallback Fallback
	logger   arbor.ILogger
	now      func() time.Time
}

// NewProvider creates a provider. With no vendors every query is served from fallback.
func NewProvider(logger arbor.ILogger, fallback Fallback, vendors ...interfaces.NewsVendor) *Provider {
	return &Provider{
		vendors:  vendors,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// GetCompanyNews returns normalized news for ticker within [start, end].
func (p *Provider) GetCompanyNews(ctx context.Context, ticker string, start, end time.Time, limit int) []models.NewsItem {
	ticker = common.CanonicalTicker(ticker)
	payload := p.fetch("company", ticker, p.fallback.Company, func(v interfaces.NewsVendor) (interface{}, error) {
		return v.FetchCompanyNews(ctx, ticker, start, end, limit)
	})

	items := Normalize(payload, Defaults{Ticker: ticker, Now: p.now()})
	items = FilterByWindow(items, start, end)
	items = FilterByTicker(items, ticker)
	return Limit(items, limit)
}

// GetMacroNews returns normalized macro news within [start, end], restricted
// to topics when given.
func (p *Provider) GetMacroNews(ctx context.Context, start, end time.Time, topics []string, limit int) []models.NewsItem {
	payload := p.fetch("macro", "", p.fallback.Macro, func(v interfaces.NewsVendor) (interface{}, error) {
		return v.FetchMacroNews(ctx, start, end, topics, limit)
	})

	items := Normalize(payload, Defaults{Topics: topics, Now: p.now()})
	items = FilterByWindow(items, start, end)
	items = FilterByTopics(items, topics)
	return Limit(items, limit)
}

// Healthcheck reports whether any vendor answers a probe query, or whether
// fallback data exists.
func (p *Provider) Healthcheck(ctx context.Context) bool {
	end := p.now().UTC()
	start := end.AddDate(0, 0, -4)
	for _, v := range p.vendors {
		if _, err := p.call(v, func(v interfaces.NewsVendor) (interface{}, error) {
			return v.FetchCompanyNews(ctx, healthcheckTicker, start, end, 1)
		}); err == nil {
			return true
		}
	}
	return !p.fallback.Empty()
}

// fetch tries vendors in order and decodes the first successful response.
func (p *Provider) fetch(kind, ticker string, fallback []map[string]interface{}, fn func(interfaces.NewsVendor) (interface{}, error)) Payload {
	for _, v := range p.vendors {
		raw, err := p.call(v, fn)
		if err != nil {
			p.logger.Warn().Err(err).Str("vendor", v.Name()).Str("kind", kind).Str("ticker", ticker).Msg("News vendor failed")
			continue
		}
		payload := DecodePayload(raw)
		p.logger.Debug().Str("vendor", v.Name()).Str("kind", kind).Str("payload", payload.Kind.String()).Msg("News vendor responded")
		return payload
	}

	if len(p.vendors) > 0 {
		p.logger.Warn().Str("kind", kind).Int("fallback_records", len(fallback)).Msg("All news vendors failed, using fallback")
	}
	return RecordsPayload(fallback)
}

// call runs fn against v, converting a panic into an error.
func (p *Provider) call(v interfaces.NewsVendor, fn func(interfaces.NewsVendor) (interface{}, error)) (raw interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("vendor %s panicked: %v", v.Name(), r)
		}
	}()
	return fn(v)
}
