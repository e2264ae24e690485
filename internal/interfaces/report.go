package interfaces

import "github.com/ternarybob/tradeprep/internal/models"

// Extraction holds values pulled out of a free-text report.
type Extraction struct {
	Metrics map[string]interface{}
	Answers map[string]string
}

// ReportExtractor fills schema metrics and question answers from report text.
// Keys of the returned maps must match the schema's metric and question names.
type ReportExtractor interface {
	Extract(rawText string, schema models.SchemaDefinition) Extraction
}
