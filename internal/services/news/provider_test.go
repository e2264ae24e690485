package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/alphavantage"
	"github.com/ternarybob/tradeprep/internal/eodhd"
)

func createTestLogger() arbor.ILogger {
	return arbor.NewLogger()
}

// stubVendor implements interfaces.NewsVendor for testing
type stubVendor struct {
	name    string
	company interface{}
	macro   interface{}
	err     error
	panics  bool
	calls   int
}

func (s *stubVendor) Name() string { return s.name }

func (s *stubVendor) FetchCompanyNews(ctx context.Context, ticker string, start, end time.Time, limit int) (interface{}, error) {
	s.calls++
	if s.panics {
		panic("boom")
	}
	return s.company, s.err
}

func (s *stubVendor) FetchMacroNews(ctx context.Context, start, end time.Time, topics []string, limit int) (interface{}, error) {
	s.calls++
	if s.panics {
		panic("boom")
	}
	return s.macro, s.err
}

var (
	testStart = time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	testEnd   = testStart.AddDate(0, 0, 7)
)

func fallbackFixture() Fallback {
	return Fallback{
		Company: []map[string]interface{}{
			{"title": "JPM deposit growth", "published_at": "2025-12-03T09:00:00Z", "tickers": []interface{}{"JPM"}},
			{"title": "BAC loan book", "published_at": "2025-12-03T09:00:00Z", "tickers": []interface{}{"BAC"}},
			{"title": "Stale", "published_at": "2025-10-01T09:00:00Z"},
		},
		Macro: []map[string]interface{}{
			{"title": "CPI cools", "published_at": "2025-12-04T12:00:00Z", "topics": []interface{}{"Economy"}},
			{"title": "Chip exports", "published_at": "2025-12-04T12:00:00Z", "topics": []interface{}{"Technology"}},
		},
	}
}

func TestProvider_VendorOrderAndFallthrough(t *testing.T) {
	failing := &stubVendor{name: "down", err: errors.New("timeout")}
	panicking := &stubVendor{name: "panics", panics: true}
	working := &stubVendor{name: "up", company: []interface{}{
		map[string]interface{}{"title": "JPM earnings", "published_at": "2025-12-02T00:00:00Z", "tickers": []interface{}{"jpm"}},
		map[string]interface{}{"title": "Untagged market wrap", "published_at": "2025-12-02T00:00:00Z"},
	}}
	unused := &stubVendor{name: "unused"}

	p := NewProvider(createTestLogger(), fallbackFixture(), failing, panicking, working, unused)
	items := p.GetCompanyNews(context.Background(), "jpm", testStart, testEnd, 50)

	require.Len(t, items, 2)
	assert.Equal(t, "JPM earnings", items[0].Title)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, panicking.calls)
	assert.Equal(t, 0, unused.calls)
}

func TestProvider_AllVendorsFailUsesFallback(t *testing.T) {
	p := NewProvider(createTestLogger(), fallbackFixture(), &stubVendor{name: "down", err: errors.New("503")})

	company := p.GetCompanyNews(context.Background(), "JPM", testStart, testEnd, 50)
	require.Len(t, company, 1)
	assert.Equal(t, "JPM deposit growth", company[0].Title)

	macro := p.GetMacroNews(context.Background(), testStart, testEnd, []string{"economy"}, 50)
	require.Len(t, macro, 1)
	assert.Equal(t, "CPI cools", macro[0].Title)

	allMacro := p.GetMacroNews(context.Background(), testStart, testEnd, nil, 1)
	assert.Len(t, allMacro, 1)
}

func TestProvider_TextPayloadTaggedWithTicker(t *testing.T) {
	p := NewProvider(createTestLogger(), Fallback{}, &stubVendor{name: "raw", company: "Free-form vendor text about JPM"})
	p.now = func() time.Time { return testStart.Add(time.Hour) }

	items := p.GetCompanyNews(context.Background(), "JPM", testStart, testEnd, 50)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"JPM"}, items[0].Tickers)
	assert.Equal(t, "vendor_raw", items[0].Source)
}

func TestProvider_Healthcheck(t *testing.T) {
	tests := []struct {
		name     string
		fallback Fallback
		vendors  []*stubVendor
		healthy  bool
	}{
		{name: "vendor answers", vendors: []*stubVendor{{name: "up", company: []interface{}{}}}, healthy: true},
		{name: "vendor down with fallback", fallback: fallbackFixture(), vendors: []*stubVendor{{name: "down", err: errors.New("x")}}, healthy: true},
		{name: "vendor panics without fallback", vendors: []*stubVendor{{name: "panics", panics: true}}, healthy: false},
		{name: "nothing configured", healthy: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider(createTestLogger(), tt.fallback)
			for _, v := range tt.vendors {
				p.vendors = append(p.vendors, v)
			}
			assert.Equal(t, tt.healthy, p.Healthcheck(context.Background()))
		})
	}
}

func TestLoadFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"company_news":[{"title":"a"}],"macro_news":[]}`), 0644))

	fb, err := LoadFallback(path)
	require.NoError(t, err)
	assert.Len(t, fb.Company, 1)
	assert.False(t, fb.Empty())

	fb, err = LoadFallback("")
	require.NoError(t, err)
	assert.True(t, fb.Empty())

	_, err = LoadFallback(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

// mockEODHDNews implements EODHDNewsClient for testing
type mockEODHDNews struct {
	responses map[string]eodhd.NewsResponse
}

func (m *mockEODHDNews) GetNews(ctx context.Context, symbols []string, opts ...eodhd.QueryOption) (eodhd.NewsResponse, error) {
	if len(symbols) > 0 {
		return m.responses[symbols[0]], nil
	}
	return m.responses["tag"], nil
}

func TestEODHDVendor(t *testing.T) {
	client := &mockEODHDNews{responses: map[string]eodhd.NewsResponse{
		"JPM.US": {{
			Date:    time.Date(2025, 12, 2, 14, 0, 0, 0, time.UTC),
			DateStr: "2025-12-02T14:00:00+00:00",
			Title:   "JPMorgan raises NIM outlook",
			Content: "Net interest margin guidance moved higher",
			Link:    "https://example.com/jpm",
			Symbols: []string{"JPM.US", "BAC.US"},
			Tags:    []string{"BANKS"},
		}},
		"tag": {{DateStr: "2025-12-03", Title: "Payrolls beat", Link: "https://example.com/nfp"}},
	}}
	vendor := NewEODHDVendor(client, createTestLogger())
	p := NewProvider(createTestLogger(), Fallback{}, vendor)

	company := p.GetCompanyNews(context.Background(), "JPM", testStart, testEnd, 10)
	require.Len(t, company, 1)
	assert.Equal(t, []string{"JPM", "BAC"}, company[0].Tickers)
	assert.Equal(t, "2025-12-02T14:00:00Z", company[0].PublishedAt)
	assert.Equal(t, "eodhd", company[0].Source)

	macro := p.GetMacroNews(context.Background(), testStart, testEnd, []string{"economy"}, 10)
	require.Len(t, macro, 1)
	assert.Equal(t, []string{"economy"}, macro[0].Topics)
}

func TestAlphaVantageVendor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"feed":[{"title":"Moderna PDUFA date set","time_published":"20251203T090000","ticker_sentiment":[{"ticker":"MRNA"}],"topics":[{"topic":"Life Sciences"}]}]}`))
	}))
	defer server.Close()

	client := alphavantage.NewClient("key", alphavantage.WithBaseURL(server.URL), alphavantage.WithRateLimit(100))
	p := NewProvider(createTestLogger(), Fallback{}, NewAlphaVantageVendor(client))

	items := p.GetCompanyNews(context.Background(), "MRNA", testStart, testEnd, 10)
	require.Len(t, items, 1)
	assert.Equal(t, "Moderna PDUFA date set", items[0].Title)
	assert.Equal(t, "alpha_vantage", items[0].Meta["provider"])
}

func TestRSSVendor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>Macro Wire</title>
<item><title>Fed signals pause</title><link>https://example.com/fed</link>
<description>&lt;p&gt;Rates on hold&lt;/p&gt;</description>
<pubDate>Wed, 03 Dec 2025 15:00:00 GMT</pubDate></item>
</channel></rss>`))
	}))
	defer server.Close()

	vendor := NewRSSVendor([]string{server.URL}, createTestLogger())

	_, err := vendor.FetchCompanyNews(context.Background(), "JPM", testStart, testEnd, 10)
	assert.ErrorIs(t, err, ErrNotSupported)

	p := NewProvider(createTestLogger(), Fallback{}, vendor)
	items := p.GetMacroNews(context.Background(), testStart, testEnd, []string{"rates"}, 10)
	require.Len(t, items, 1)
	assert.Equal(t, "Macro Wire", items[0].Source)
	assert.Equal(t, "Rates on hold", items[0].Summary)
	assert.Equal(t, []string{"rates"}, items[0].Topics)
}
