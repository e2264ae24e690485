package news

import (
	"strings"
	"time"

	"github.com/ternarybob/tradeprep/internal/common"
	"github.com/ternarybob/tradeprep/internal/models"
)

// FilterByWindow keeps items published within [start, end]. Items whose
// timestamp does not parse are dropped.
func FilterByWindow(items []models.NewsItem, start, end time.Time) []models.NewsItem {
	out := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		t, ok := common.ParseTimestamp(item.PublishedAt)
		if !ok || t.Before(start) || t.After(end) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// FilterByTicker keeps untagged items and items tagged with ticker.
func FilterByTicker(items []models.NewsItem, ticker string) []models.NewsItem {
	ticker = common.CanonicalTicker(ticker)
	out := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		if len(item.Tickers) == 0 || item.HasTicker(ticker) {
			out = append(out, item)
		}
	}
	return out
}

// FilterByTopics keeps items carrying at least one of topics, compared
// case-insensitively. No topics means no filtering.
func FilterByTopics(items []models.NewsItem, topics []string) []models.NewsItem {
	want := make(map[string]bool, len(topics))
	for _, t := range topics {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			want[t] = true
		}
	}
	if len(want) == 0 {
		return items
	}

	out := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		for _, tp := range item.Topics {
			if want[strings.ToLower(tp)] {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// Limit truncates items to n; n <= 0 yields an empty list.
func Limit(items []models.NewsItem, n int) []models.NewsItem {
	if n <= 0 {
		return []models.NewsItem{}
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}
