package securitymaster

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/eodhd"
	"github.com/ternarybob/tradeprep/internal/interfaces"
	"github.com/ternarybob/tradeprep/internal/models"
)

func createTestLogger() arbor.ILogger {
	return arbor.NewLogger()
}

// mockFundamentals implements FundamentalsClient for testing
type mockFundamentals struct {
	general *eodhd.GeneralInfo
	err     error
	calls   []string
}

func (m *mockFundamentals) GetFundamentals(ctx context.Context, symbol string) (*eodhd.FundamentalsResponse, error) {
	m.calls = append(m.calls, symbol)
	if m.err != nil {
		return nil, m.err
	}
	return &eodhd.FundamentalsResponse{General: m.general}, nil
}

// mockSecurityStorage implements interfaces.SecurityMasterStorage for testing
type mockSecurityStorage struct {
	data map[string]models.SecurityMaster
}

func newMockSecurityStorage() *mockSecurityStorage {
	return &mockSecurityStorage{data: make(map[string]models.SecurityMaster)}
}

func (m *mockSecurityStorage) GetSecurity(ctx context.Context, ticker string) (*models.SecurityMaster, error) {
	if v, ok := m.data[ticker]; ok {
		return &v, nil
	}
	return nil, interfaces.ErrSecurityNotFound
}

func (m *mockSecurityStorage) SaveSecurity(ctx context.Context, record models.SecurityMaster) error {
	m.data[record.Ticker] = record
	return nil
}

type panicSource struct{}

func (panicSource) Name() string { return "panic" }
func (panicSource) Lookup(ctx context.Context, ticker string) (models.SecurityMaster, error) {
	panic("vendor exploded")
}

func TestService_Get_ReferenceTable(t *testing.T) {
	svc := NewService(createTestLogger())

	tests := []struct {
		ticker   string
		exchange string
		name     string
	}{
		{ticker: "JPM", exchange: "NYSE", name: "JPMorgan Chase & Co."},
		{ticker: " mrna ", exchange: "NASDAQ", name: "Moderna"},
		{ticker: "NYSE:XOM", exchange: "NYSE", name: "Exxon Mobil"},
	}

	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			record := svc.Get(context.Background(), tt.ticker)
			assert.Equal(t, tt.exchange, record.Exchange)
			assert.Equal(t, tt.name, record.Name)
			assert.Equal(t, "Equity", record.AssetTypeHint)
			assert.NotEmpty(t, record.BusinessDescription)
			assert.Equal(t, SourceReferenceTable, record.SourceMap["name"].Source)
			assert.NotEmpty(t, record.SourceMap["name"].UpdatedAt)
		})
	}
}

func TestService_Get_UnknownTicker(t *testing.T) {
	svc := NewService(createTestLogger())

	record := svc.Get(context.Background(), "unknown")

	assert.Equal(t, "UNKNOWN", record.Ticker)
	assert.Equal(t, "UNKNOWN", record.Exchange)
	assert.Equal(t, "UNKNOWN", record.Name)
	assert.Empty(t, record.BusinessDescription)
	assert.Equal(t, SourcePlaceholder, record.SourceMap["ticker"].Source)
}

func TestService_Get_EODHDFallthrough(t *testing.T) {
	logger := createTestLogger()
	client := &mockFundamentals{general: &eodhd.GeneralInfo{
		Code:        "NVDA",
		Type:        "Common Stock",
		Name:        "NVIDIA Corporation",
		Exchange:    "NASDAQ",
		GicIndustry: "Semiconductors",
		Description: "Designs GPUs for gaming and data center cloud workloads",
		UpdatedAt:   "2025-11-20",
	}}
	storage := newMockSecurityStorage()

	svc := NewService(logger,
		NewTableSource(),
		NewCachedSource(NewEODHDSource(client, logger), storage, logger),
	)

	record := svc.Get(context.Background(), "nvda")
	assert.Equal(t, "NVIDIA Corporation", record.Name)
	assert.Equal(t, "Semiconductors", record.IndustryClassification)
	assert.Equal(t, SourceEODHD, record.SourceMap["name"].Source)
	assert.Equal(t, "2025-11-20T00:00:00Z", record.SourceMap["name"].UpdatedAt)
	assert.Equal(t, []string{"NVDA.US"}, client.calls)

	// Second lookup is served from the cache
	record = svc.Get(context.Background(), "NVDA")
	assert.Equal(t, "NVIDIA Corporation", record.Name)
	assert.Len(t, client.calls, 1)

	// Table tickers never reach the vendor
	svc.Get(context.Background(), "JPM")
	assert.Len(t, client.calls, 1)
}

func TestService_Get_SourceFailuresDegrade(t *testing.T) {
	tests := []struct {
		name   string
		source interfaces.SecurityMasterSource
	}{
		{name: "vendor error", source: NewEODHDSource(&mockFundamentals{err: errors.New("connection refused")}, createTestLogger())},
		{name: "vendor 404", source: NewEODHDSource(&mockFundamentals{err: &eodhd.APIError{StatusCode: 404, Message: "not found"}}, createTestLogger())},
		{name: "empty general", source: NewEODHDSource(&mockFundamentals{general: &eodhd.GeneralInfo{}}, createTestLogger())},
		{name: "panic", source: panicSource{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(createTestLogger(), tt.source)
			record := svc.Get(context.Background(), "ZZZ")
			assert.Equal(t, "UNKNOWN", record.Exchange)
			assert.Equal(t, "ZZZ", record.Name)
		})
	}
}

func TestEODHDSource_NotFound(t *testing.T) {
	src := NewEODHDSource(&mockFundamentals{err: &eodhd.APIError{StatusCode: 404}}, createTestLogger())
	_, err := src.Lookup(context.Background(), "ZZZ")
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrSecurityNotFound)
}

func TestAssetTypeHint(t *testing.T) {
	assert.Equal(t, "Equity", assetTypeHint("Common Stock"))
	assert.Equal(t, "ETF", assetTypeHint("ETF"))
	assert.Equal(t, "Fund", assetTypeHint("FUND"))
	assert.Equal(t, "Equity", assetTypeHint(""))
}
