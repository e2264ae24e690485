package models

// DomainCategory holds the keyword and ticker rules for one domain.
// Keywords are lower-cased and tickers upper-cased at load time.
type DomainCategory struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	Tickers  []string `json:"tickers"`
}

// HasTicker reports whether ticker is listed for the domain.
func (d DomainCategory) HasTicker(ticker string) bool {
	for _, t := range d.Tickers {
		if t == ticker {
			return true
		}
	}
	return false
}

// Taxonomy drives category routing. DomainCategories keeps file order,
// which is also the tie-break order when two domains score equally.
type Taxonomy struct {
	Version               string            `json:"version"`
	AssetTypeFallback     string            `json:"asset_type_fallback"`
	TickerDomainOverrides map[string]string `json:"ticker_domain_overrides"`
	DomainCategories      []DomainCategory  `json:"domain_categories"`
}

// Domain looks up a domain category by name.
func (t Taxonomy) Domain(name string) (DomainCategory, bool) {
	for _, d := range t.DomainCategories {
		if d.Name == name {
			return d, true
		}
	}
	return DomainCategory{}, false
}

// SchemaDefinition is one report template.
type SchemaDefinition struct {
	RequiredMetrics      []string `json:"required_metrics"`
	AnalysisQuestions    []string `json:"analysis_questions"`
	InvalidationTriggers []string `json:"invalidation_triggers"`
}

// AnalysisSchema maps domains to report templates.
type AnalysisSchema struct {
	Version        string                      `json:"version"`
	DomainToSchema map[string]string           `json:"domain_to_schema"`
	Schemas        map[string]SchemaDefinition `json:"schemas"`
}

// DefaultSchemaID is used when neither the domain nor "Others" has a mapping.
const DefaultSchemaID = "Default_v1"

// OthersDomain is the catch-all domain category.
const OthersDomain = "Others"

// ResolveSchemaID maps a domain to its schema id, falling back to the
// "Others" mapping and then to DefaultSchemaID.
func (s AnalysisSchema) ResolveSchemaID(domain string) string {
	if id, ok := s.DomainToSchema[domain]; ok && id != "" {
		return id
	}
	if id, ok := s.DomainToSchema[OthersDomain]; ok && id != "" {
		return id
	}
	return DefaultSchemaID
}

// Schema returns the definition for id, falling back to DefaultSchemaID.
// A missing default yields an empty definition.
func (s AnalysisSchema) Schema(id string) SchemaDefinition {
	if def, ok := s.Schemas[id]; ok {
		return def
	}
	return s.Schemas[DefaultSchemaID]
}
