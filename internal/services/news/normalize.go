package news

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/tradeprep/internal/common"
	"github.com/ternarybob/tradeprep/internal/models"
)

// Defaults fill the synthetic item built from a Text payload.
type Defaults struct {
	Ticker string
	Topics []string
	Now    time.Time
}

const (
	defaultSource   = "internal"
	defaultLang     = "en"
	textSource      = "vendor_raw"
	textTitleRunes  = 120
	providerFeed    = "alpha_vantage"
	providerDefault = "internal"
)

// Normalize converts a decoded payload into NewsItems. Unknown payloads yield
// an empty list.
func Normalize(p Payload, d Defaults) []models.NewsItem {
	items := []models.NewsItem{}
	switch p.Kind {
	case PayloadRecords:
		for _, r := range p.Records {
			items = append(items, NormalizeRecord(r))
		}
	case PayloadFeed:
		for _, f := range p.Feed {
			items = append(items, NormalizeRecord(feedRecord(f)))
		}
	case PayloadText:
		items = append(items, NormalizeRecord(textRecord(p.Text, d)))
	}
	return items
}

// NormalizeRecord maps one loosely typed record onto a NewsItem. A missing or
// null id is derived from published_at, title and url.
func NormalizeRecord(raw map[string]interface{}) models.NewsItem {
	publishedAt := asString(raw["published_at"])
	title := asString(raw["title"])
	url := asString(raw["url"])

	id := asString(raw["id"])
	if id == "" {
		id = StableHashID(publishedAt, title, url)
	}

	source := asString(raw["source"])
	if source == "" {
		source = defaultSource
	}
	lang := asString(raw["lang"])
	if lang == "" {
		lang = defaultLang
	}

	meta, ok := raw["meta"].(map[string]interface{})
	if !ok {
		meta = map[string]interface{}{"provider": providerDefault, "raw": map[string]interface{}{}}
	}

	if t, ok := common.ParseTimestamp(publishedAt); ok {
		publishedAt = common.FormatTimestamp(t)
	}

	return models.NewsItem{
		ID:          id,
		PublishedAt: publishedAt,
		Source:      source,
		Title:       title,
		Body:        cleanText(asString(raw["body"])),
		Summary:     cleanText(asString(raw["summary"])),
		URL:         url,
		Tickers:     mapNonEmpty(asList(raw["tickers"]), strings.ToUpper),
		Topics:      mapNonEmpty(asList(raw["topics"]), nil),
		Lang:        lang,
		Meta:        meta,
	}
}

// feedRecord maps an Alpha Vantage NEWS_SENTIMENT feed entry.
func feedRecord(item map[string]interface{}) map[string]interface{} {
	id := item["uuid"]
	if asString(id) == "" {
		id = item["id"]
	}

	var tickers []interface{}
	for _, ts := range asMaps(item["ticker_sentiment"]) {
		if t := asString(ts["ticker"]); t != "" {
			tickers = append(tickers, strings.ToUpper(t))
		}
	}
	var topics []interface{}
	for _, tp := range asMaps(item["topics"]) {
		if t := asString(tp["topic"]); t != "" {
			topics = append(topics, t)
		}
	}

	lang := item["language"]
	if lang == nil {
		lang = defaultLang
	}

	return map[string]interface{}{
		"id":           id,
		"published_at": item["time_published"],
		"source":       item["source"],
		"title":        item["title"],
		"summary":      item["summary"],
		"body":         item["summary"],
		"url":          item["url"],
		"tickers":      tickers,
		"topics":       topics,
		"lang":         lang,
		"meta":         map[string]interface{}{"provider": providerFeed, "raw": item},
	}
}

// textRecord wraps unstructured vendor text as a single record.
func textRecord(text string, d Defaults) map[string]interface{} {
	now := d.Now
	if now.IsZero() {
		now = time.Now()
	}

	var tickers []interface{}
	if t := common.CanonicalTicker(d.Ticker); t != "" {
		tickers = append(tickers, t)
	}
	topics := make([]interface{}, 0, len(d.Topics))
	for _, t := range d.Topics {
		topics = append(topics, t)
	}

	title := text
	if runes := []rune(text); len(runes) > textTitleRunes {
		title = string(runes[:textTitleRunes])
	}

	return map[string]interface{}{
		"id":           StableHashID(text),
		"published_at": common.FormatTimestamp(now),
		"source":       textSource,
		"title":        title,
		"summary":      text,
		"body":         text,
		"tickers":      tickers,
		"topics":       topics,
		"lang":         defaultLang,
		"meta":         map[string]interface{}{"provider": textSource},
	}
}

// StableHashID returns the first 16 hex characters of the SHA-256 of the
// non-empty parts joined by "||".
func StableHashID(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(kept, "||")))
	return hex.EncodeToString(sum[:])[:16]
}

// cleanText flattens HTML fragments to plain text. Strings without markup
// are only trimmed.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "<") || !strings.Contains(s, ">") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

// asList coerces a scalar into a one-element list.
func asList(v interface{}) []string {
	switch l := v.(type) {
	case nil:
		return nil
	case []string:
		return l
	case []interface{}:
		out := make([]string, 0, len(l))
		for _, item := range l {
			out = append(out, asString(item))
		}
		return out
	default:
		return []string{asString(l)}
	}
}

func asMaps(v interface{}) []map[string]interface{} {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

func mapNonEmpty(values []string, fn func(string) string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if fn != nil {
			v = fn(v)
		}
		out = append(out, v)
	}
	return out
}
