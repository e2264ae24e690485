package router

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/models"
)

// Service binds the loaded taxonomy and analysis schema to Route.
type Service struct {
	taxonomy models.Taxonomy
	schema   models.AnalysisSchema
	logger   arbor.ILogger
}

// NewService creates a router over a fixed taxonomy and schema.
func NewService(taxonomy models.Taxonomy, schema models.AnalysisSchema, logger arbor.ILogger) *Service {
	return &Service{taxonomy: taxonomy, schema: schema, logger: logger}
}

// Taxonomy returns the taxonomy used for routing.
func (s *Service) Taxonomy() models.Taxonomy {
	return s.taxonomy
}

// Schema returns the analysis schema used for schema resolution.
func (s *Service) Schema() models.AnalysisSchema {
	return s.schema
}

// Route classifies ticker using texts and items as news context.
func (s *Service) Route(ticker string, security models.SecurityMaster, texts []string, items []models.NewsItem) models.CategoryRoutingResult {
	result := Route(Input{
		Ticker:    ticker,
		Security:  security,
		NewsTexts: texts,
		NewsItems: items,
		Taxonomy:  s.taxonomy,
		Schema:    s.schema,
	})

	s.logger.Debug().
		Str("ticker", ticker).
		Str("domain", result.DomainCategory).
		Float64("confidence", result.Confidence).
		Str("schema_id", result.AnalysisSchemaID).
		Int("evidence", result.Evidence.Len()).
		Msg("Category routed")

	return result
}
