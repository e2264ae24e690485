package models

// SecurityMaster is static per-ticker reference metadata.
type SecurityMaster struct {
	Ticker                 string               `json:"ticker"`
	Exchange               string               `json:"exchange"`
	Name                   string               `json:"name"`
	AssetTypeHint          string               `json:"asset_type_hint,omitempty"`
	IndustryClassification string               `json:"industry_classification,omitempty"`
	BusinessDescription    string               `json:"business_description,omitempty"`
	SourceMap              map[string]SourceRef `json:"source_map"`
}

// SourceRef records where a SecurityMaster field came from.
type SourceRef struct {
	Source    string `json:"source"`
	UpdatedAt string `json:"updated_at"`
}
