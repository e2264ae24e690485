package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/tradeprep/internal/models"
)

// NewsVendor fetches raw news payloads. The returned value may be any shape
// the normalizer understands: a list of record maps, a JSON string or bytes,
// a feed-style map, or plain text.
type NewsVendor interface {
	Name() string
	FetchCompanyNews(ctx context.Context, ticker string, start, end time.Time, limit int) (interface{}, error)
	FetchMacroNews(ctx context.Context, start, end time.Time, topics []string, limit int) (interface{}, error)
}

// NewsProvider returns normalized, filtered news and never fails; vendor
// problems degrade to fallback records.
type NewsProvider interface {
	GetCompanyNews(ctx context.Context, ticker string, start, end time.Time, limit int) []models.NewsItem
	GetMacroNews(ctx context.Context, start, end time.Time, topics []string, limit int) []models.NewsItem
	Healthcheck(ctx context.Context) bool
}
