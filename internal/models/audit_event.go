package models

// VersionBundle stamps every audit record with the component versions that produced it.
type VersionBundle struct {
	Router       string `json:"router"`
	Schema       string `json:"schema"`
	Provider     string `json:"provider,omitempty"`
	Preprocessor string `json:"preprocessor,omitempty"`
}

// AuditHeader is shared by every audit stream.
type AuditHeader struct {
	RunID   string        `json:"run_id"`
	Ticker  string        `json:"ticker"`
	AsOf    string        `json:"as_of"`
	Version VersionBundle `json:"version"`
}

type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type NewsCounts struct {
	Company int `json:"company"`
	Macro   int `json:"macro"`
}

// NewsFetchEvent is written to the news_fetch_events stream.
type NewsFetchEvent struct {
	AuditHeader
	Window TimeWindow `json:"window"`
	Counts NewsCounts `json:"counts"`
}

type NewsContext struct {
	CompanyCount   int      `json:"company_count"`
	MacroCount     int      `json:"macro_count"`
	UsedTextFields []string `json:"used_text_fields"`
}

// ClassificationEvent is written to the classification_events stream.
type ClassificationEvent struct {
	AuditHeader
	SecurityMaster SecurityMaster        `json:"security_master"`
	NewsContext    NewsContext           `json:"news_context"`
	Classification CategoryRoutingResult `json:"classification"`
}

// NewsPreprocessEvent is written to the news_preprocess_events stream.
type NewsPreprocessEvent struct {
	AuditHeader
	DedupeStats    DedupeStats    `json:"dedupe_stats"`
	RelevanceStats RelevanceStats `json:"relevance_stats"`
	EventStats     map[string]int `json:"event_stats"`
}

type Compliance struct {
	MissingFields []string `json:"missing_fields"`
	Confidence    float64  `json:"confidence"`
}

// ReportEvent is written to the report_events stream.
type ReportEvent struct {
	AuditHeader
	AgentName  string           `json:"agent_name"`
	ReportJSON StructuredReport `json:"report_json"`
	Compliance Compliance       `json:"compliance"`
}
