package models

// Event labels assigned by the preprocessor.
const (
	EventEarnings   = "EARNINGS"
	EventGuidance   = "GUIDANCE"
	EventMA         = "M&A"
	EventRegulation = "REGULATION"
	EventProduct    = "PRODUCT"
	EventMacro      = "MACRO"
	EventLegal      = "LEGAL"
	EventSecurity   = "SECURITY"
	EventRumor      = "RUMOR"
	EventOther      = "OTHER"
)

// NewsCard is the compact per-item summary injected into downstream prompts.
type NewsCard struct {
	NewsID         string  `json:"news_id"`
	PublishedAt    string  `json:"published_at"`
	Title          string  `json:"title"`
	Source         string  `json:"source"`
	RelevanceScore float64 `json:"relevance_score"`
	EventLabel     string  `json:"event_label"`
}

type DedupeStats struct {
	Before  int `json:"before"`
	After   int `json:"after"`
	Removed int `json:"removed"`
}

type RelevanceStats struct {
	KeptThreshold float64 `json:"kept_threshold"`
	AvgScore      float64 `json:"avg_score"`
}

// PreprocessedBundle is the bounded news context for one run.
type PreprocessedBundle struct {
	CompanyNews      []NewsItem     `json:"company_news"`
	MacroNews        []NewsItem     `json:"macro_news"`
	CompanyNewsCards []NewsCard     `json:"company_news_cards"`
	MacroNewsCards   []NewsCard     `json:"macro_news_cards"`
	DedupeStats      DedupeStats    `json:"dedupe_stats"`
	RelevanceStats   RelevanceStats `json:"relevance_stats"`
	EventStats       map[string]int `json:"event_stats"`
}
