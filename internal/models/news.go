package models

// NewsItem is a vendor-neutral news record.
type NewsItem struct {
	ID          string                 `json:"id"`
	PublishedAt string                 `json:"published_at"` // ISO-8601
	Source      string                 `json:"source"`
	Title       string                 `json:"title"`
	Body        string                 `json:"body,omitempty"`
	Summary     string                 `json:"summary,omitempty"`
	URL         string                 `json:"url,omitempty"`
	Tickers     []string               `json:"tickers"`
	Topics      []string               `json:"topics"`
	Lang        string                 `json:"lang"`
	Meta        map[string]interface{} `json:"meta"`
}

// Text returns title, summary and body joined by spaces, the form scored by
// the preprocessor and the router.
func (n NewsItem) Text() string {
	return n.Title + " " + n.Summary + " " + n.Body
}

// BodyOrSummary returns the body when present, the summary otherwise.
func (n NewsItem) BodyOrSummary() string {
	if n.Body != "" {
		return n.Body
	}
	return n.Summary
}

// HasTicker reports whether ticker (already upper-cased) is tagged on the item.
func (n NewsItem) HasTicker(ticker string) bool {
	for _, t := range n.Tickers {
		if t == ticker {
			return true
		}
	}
	return false
}

// NewsTexts flattens items into their non-empty title, summary and body strings.
func NewsTexts(items []NewsItem) []string {
	var texts []string
	for _, item := range items {
		for _, field := range []string{item.Title, item.Summary, item.Body} {
			if field != "" {
				texts = append(texts, field)
			}
		}
	}
	return texts
}
