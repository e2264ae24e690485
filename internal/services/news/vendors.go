package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/alphavantage"
	"github.com/ternarybob/tradeprep/internal/common"
	"github.com/ternarybob/tradeprep/internal/eodhd"
)

// Vendor names as used in the [news] vendors setting.
const (
	VendorEODHD        = "eodhd"
	VendorAlphaVantage = "alphavantage"
	VendorRSS          = "rss"
)

// ErrNotSupported is returned by vendors that cannot serve a query kind.
var ErrNotSupported = errors.New("query not supported by vendor")

// defaultMacroTags is used for EODHD macro queries when no topics are requested.
var defaultMacroTags = []string{"economy"}

// EODHDNewsClient is the part of the EODHD client used for news.
type EODHDNewsClient interface {
	GetNews(ctx context.Context, symbols []string, opts ...eodhd.QueryOption) (eodhd.NewsResponse, error)
}

// EODHDVendor fetches news from the EODHD /news endpoint and returns records.
type EODHDVendor struct {
	client EODHDNewsClient
	logger arbor.ILogger
}

func NewEODHDVendor(client EODHDNewsClient, logger arbor.ILogger) *EODHDVendor {
	return &EODHDVendor{client: client, logger: logger}
}

func (v *EODHDVendor) Name() string { return VendorEODHD }

func (v *EODHDVendor) FetchCompanyNews(ctx context.Context, ticker string, start, end time.Time, limit int) (interface{}, error) {
	symbol := common.ParseTicker(ticker).EODHDSymbol()
	resp, err := v.client.GetNews(ctx, []string{symbol}, eodhd.WithDateRange(start, end), eodhd.WithLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("eodhd news for %s: %w", symbol, err)
	}
	records := make([]map[string]interface{}, 0, len(resp))
	for _, item := range resp {
		records = append(records, eodhdRecord(item, ""))
	}
	return records, nil
}

func (v *EODHDVendor) FetchMacroNews(ctx context.Context, start, end time.Time, topics []string, limit int) (interface{}, error) {
	tags := topics
	if len(tags) == 0 {
		tags = defaultMacroTags
	}

	seen := make(map[string]bool)
	records := make([]map[string]interface{}, 0)
	var lastErr error
	succeeded := 0
	for _, tag := range tags {
		resp, err := v.client.GetNews(ctx, nil, eodhd.WithTag(tag), eodhd.WithDateRange(start, end), eodhd.WithLimit(limit))
		if err != nil {
			v.logger.Warn().Err(err).Str("tag", tag).Msg("EODHD macro news query failed")
			lastErr = err
			continue
		}
		succeeded++
		for _, item := range resp {
			key := item.Link
			if key == "" {
				key = item.Title
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			records = append(records, eodhdRecord(item, tag))
		}
	}
	if succeeded == 0 && lastErr != nil {
		return nil, fmt.Errorf("eodhd macro news: %w", lastErr)
	}
	return records, nil
}

// eodhdRecord maps an EODHD article; queryTag is added to its topics when
// the article was fetched by tag.
func eodhdRecord(item eodhd.NewsItem, queryTag string) map[string]interface{} {
	tickers := make([]interface{}, 0, len(item.Symbols))
	for _, s := range item.Symbols {
		tickers = append(tickers, common.StripEODHDSuffix(s))
	}

	topics := make([]interface{}, 0, len(item.Tags)+1)
	hasTag := queryTag == ""
	for _, t := range item.Tags {
		topics = append(topics, t)
		if strings.EqualFold(t, queryTag) {
			hasTag = true
		}
	}
	if !hasTag {
		topics = append(topics, queryTag)
	}

	publishedAt := item.DateStr
	if !item.Date.IsZero() {
		publishedAt = common.FormatTimestamp(item.Date)
	}

	meta := map[string]interface{}{"provider": "eodhd"}
	if item.Sentiment != nil {
		meta["sentiment_polarity"] = item.Sentiment.Polarity
	}

	return map[string]interface{}{
		"published_at": publishedAt,
		"source":       "eodhd",
		"title":        item.Title,
		"body":         item.Content,
		"url":          item.Link,
		"tickers":      tickers,
		"topics":       topics,
		"lang":         defaultLang,
		"meta":         meta,
	}
}

// AlphaVantageNewsClient is the part of the Alpha Vantage client used for news.
type AlphaVantageNewsClient interface {
	GetNewsSentiment(ctx context.Context, query alphavantage.NewsQuery) (string, error)
}

// AlphaVantageVendor returns raw NEWS_SENTIMENT JSON; the normalizer decodes
// it as a feed payload.
type AlphaVantageVendor struct {
	client AlphaVantageNewsClient
}

func NewAlphaVantageVendor(client AlphaVantageNewsClient) *AlphaVantageVendor {
	return &AlphaVantageVendor{client: client}
}

func (v *AlphaVantageVendor) Name() string { return VendorAlphaVantage }

func (v *AlphaVantageVendor) FetchCompanyNews(ctx context.Context, ticker string, start, end time.Time, limit int) (interface{}, error) {
	return v.client.GetNewsSentiment(ctx, alphavantage.NewsQuery{
		Tickers: []string{common.ParseTicker(ticker).Code},
		From:    start,
		To:      end,
		Limit:   limit,
	})
}

func (v *AlphaVantageVendor) FetchMacroNews(ctx context.Context, start, end time.Time, topics []string, limit int) (interface{}, error) {
	return v.client.GetNewsSentiment(ctx, alphavantage.NewsQuery{
		Topics: topics,
		From:   start,
		To:     end,
		Limit:  limit,
	})
}

// RSSVendor reads macro news from RSS/Atom feeds. Feeds carry no ticker
// tags, so company queries are not supported.
type RSSVendor struct {
	parser *gofeed.Parser
	feeds  []string
	logger arbor.ILogger
}

func NewRSSVendor(feeds []string, logger arbor.ILogger) *RSSVendor {
	return &RSSVendor{parser: gofeed.NewParser(), feeds: feeds, logger: logger}
}

func (v *RSSVendor) Name() string { return VendorRSS }

func (v *RSSVendor) FetchCompanyNews(ctx context.Context, ticker string, start, end time.Time, limit int) (interface{}, error) {
	return nil, ErrNotSupported
}

// FetchMacroNews reads every feed. Items without categories are tagged with
// the requested topics. Fails only when every feed fails.
func (v *RSSVendor) FetchMacroNews(ctx context.Context, start, end time.Time, topics []string, limit int) (interface{}, error) {
	if len(v.feeds) == 0 {
		return nil, fmt.Errorf("no rss feeds configured")
	}

	records := make([]map[string]interface{}, 0)
	var lastErr error
	succeeded := 0
	for _, url := range v.feeds {
		feed, err := v.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			v.logger.Warn().Err(err).Str("feed", url).Msg("RSS feed fetch failed")
			lastErr = err
			continue
		}
		succeeded++
		for _, item := range feed.Items {
			records = append(records, rssRecord(feed.Title, item, topics))
		}
	}
	if succeeded == 0 {
		return nil, fmt.Errorf("all rss feeds failed: %w", lastErr)
	}
	return records, nil
}

func rssRecord(feedTitle string, item *gofeed.Item, topics []string) map[string]interface{} {
	var published string
	switch {
	case item.PublishedParsed != nil:
		published = common.FormatTimestamp(*item.PublishedParsed)
	case item.UpdatedParsed != nil:
		published = common.FormatTimestamp(*item.UpdatedParsed)
	default:
		published = item.Published
	}

	categories := item.Categories
	if len(categories) == 0 {
		categories = topics
	}
	tags := make([]interface{}, 0, len(categories))
	for _, c := range categories {
		tags = append(tags, c)
	}

	source := feedTitle
	if source == "" {
		source = "rss"
	}

	return map[string]interface{}{
		"id":           item.GUID,
		"published_at": published,
		"source":       source,
		"title":        item.Title,
		"summary":      item.Description,
		"body":         item.Content,
		"url":          item.Link,
		"topics":       tags,
		"meta":         map[string]interface{}{"provider": "rss"},
	}
}
