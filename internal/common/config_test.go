package common

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/tradeprep/internal/interfaces"
)

type mapKV map[string]string

func (m mapKV) Get(ctx context.Context, key string) (string, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	return "", interfaces.ErrKeyNotFound
}

func (m mapKV) Set(ctx context.Context, key, value, description string) error {
	m[key] = value
	return nil
}

func (m mapKV) Delete(ctx context.Context, key string) error {
	delete(m, key)
	return nil
}

func (m mapKV) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	var pairs []interfaces.KeyValuePair
	for k, v := range m {
		pairs = append(pairs, interfaces.KeyValuePair{Key: k, Value: v})
	}
	return pairs, nil
}

func (m mapKV) GetAll(ctx context.Context) (map[string]string, error) {
	return map[string]string(m), nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tradeprep.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFiles_Defaults(t *testing.T) {
	cfg, err := LoadFromFiles(nil)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.News.WindowDays)
	assert.Equal(t, 5, cfg.Preprocess.CompanyTopK)
	assert.Equal(t, 3, cfg.Preprocess.MacroTopK)
	assert.InDelta(t, 0.2, cfg.Preprocess.RelevanceThreshold, 1e-9)
	assert.False(t, cfg.Report.ExtractFromText)
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	base := writeConfig(t, `
[news]
window_days = 10
vendors = ["eodhd"]

[preprocess]
company_top_k = 8
`)
	override := writeConfig(t, `
[news]
window_days = 14
`)

	cfg, err := LoadFromFiles(nil, base, override)
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.News.WindowDays)
	assert.Equal(t, []string{"eodhd"}, cfg.News.Vendors)
	assert.Equal(t, 8, cfg.Preprocess.CompanyTopK)
}

func TestLoadFromFiles_KeyReplacement(t *testing.T) {
	path := writeConfig(t, `
[eodhd]
api_key = "{eodhd_api_key}"

[alphavantage]
api_key = "{missing_key}"
`)

	cfg, err := LoadFromFiles(mapKV{"eodhd_api_key": "secret"}, path)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.EODHD.APIKey)
	assert.Equal(t, "{missing_key}", cfg.AlphaVantage.APIKey)
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("TRADEPREP_NEWS_VENDORS", "rss, alphavantage")
	t.Setenv("TRADEPREP_PREPROCESS_RELEVANCE_THRESHOLD", "0.35")
	t.Setenv("TRADEPREP_SCHEDULER_TICKERS", "JPM,XOM")
	t.Setenv("TRADEPREP_REPORT_EXTRACT_FROM_TEXT", "true")

	cfg, err := LoadFromFiles(nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"rss", "alphavantage"}, cfg.News.Vendors)
	assert.InDelta(t, 0.35, cfg.Preprocess.RelevanceThreshold, 1e-9)
	assert.Equal(t, []string{"JPM", "XOM"}, cfg.Scheduler.Tickers)
	assert.True(t, cfg.Report.ExtractFromText)
}

func TestLoadFromFiles_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown vendor", "[news]\nvendors = [\"bloomberg\"]\n"},
		{"threshold above one", "[preprocess]\nrelevance_threshold = 1.5\n"},
		{"window out of range", "[news]\nwindow_days = 0\n"},
		{"scheduler every minute", "[scheduler]\nenabled = true\nschedule = \"* * * * *\"\n"},
		{"malformed toml", "[news\nwindow_days = 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFiles(nil, writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		wantErr  bool
	}{
		{"0 7 * * 1-5", false},
		{"*/5 * * * *", false},
		{"*/15 9-16 * * *", false},
		{"* * * * *", true},
		{"*/2 * * * *", true},
		{"not a cron", true},
	}

	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			err := ValidateSchedule(tt.schedule)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveAPIKey(t *testing.T) {
	ctx := context.Background()
	kv := mapKV{"eodhd_api_key": "from-kv"}

	key, err := ResolveAPIKey(ctx, kv, "eodhd_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-kv", key)

	t.Setenv("TRADEPREP_EODHD_API_KEY", "from-env")
	key, err = ResolveAPIKey(ctx, kv, "eodhd_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)

	key, err = ResolveAPIKey(ctx, nil, "alphavantage_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)

	_, err = ResolveAPIKey(ctx, nil, "alphavantage_api_key", "")
	assert.Error(t, err)
}

func TestDeepCloneConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.News.Vendors = []string{"eodhd"}

	clone := DeepCloneConfig(cfg)
	clone.News.Vendors[0] = "rss"
	clone.EODHD.APIKey = "changed"

	assert.Equal(t, "eodhd", cfg.News.Vendors[0])
	assert.Empty(t, cfg.EODHD.APIKey)
	assert.Nil(t, DeepCloneConfig(nil))
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 1, 5, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		input  string
		want   time.Time
		wantOK bool
	}{
		{"2024-01-05T12:30:00Z", want, true},
		{"2024-01-05T14:30:00+02:00", want, true},
		{"2024-01-05T12:30:00", want, true},
		{"2024-01-05 12:30:00", want, true},
		{"20240105T123000", want, true},
		{"20240105T1230", want, true},
		{"2024-01-05", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), true},
		{"yesterday", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseTradeDate(t *testing.T) {
	now := time.Date(2025, 12, 5, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 11, 28, 0, 0, 0, 0, time.UTC), ParseTradeDate("2025-11-28", now))
	assert.Equal(t, now, ParseTradeDate("not-a-date", now))
	assert.Equal(t, "2025-12-05T09:00:00Z", FormatTimestamp(now))
}

func TestNewRunID(t *testing.T) {
	now := time.Date(2025, 12, 5, 9, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^run_20251205T090000Z_[0-9a-f]{8}$`)

	a := NewRunID(now)
	b := NewRunID(now)
	assert.Regexp(t, pattern, a)
	assert.Regexp(t, pattern, b)
	assert.NotEqual(t, a, b)
}

func TestScoringHelpers(t *testing.T) {
	assert.Equal(t, 1.0, ClampFloat64(1.4, 0, 1))
	assert.Equal(t, 0.05, ClampFloat64(-2, 0.05, 1))
	assert.InDelta(t, 0.5, Sigmoid(0), 1e-9)
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.15, StepScore(3, 0.05, 0.3), 1e-9)
	assert.InDelta(t, 0.3, StepScore(10, 0.05, 0.3), 1e-9)
}
