// Package report wraps free-text analysis into its domain's report schema and
// scores compliance from the fields left unfilled.
package report

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/common"
	"github.com/ternarybob/tradeprep/internal/interfaces"
	"github.com/ternarybob/tradeprep/internal/models"
	"github.com/ternarybob/tradeprep/internal/services/audit"
)

const (
	baseConfidence = 0.7
	minConfidence  = 0.05
	maxConfidence  = 1.0

	missingMetricPrefix   = "required_metric:"
	missingQuestionPrefix = "analysis_question:"
)

// DefaultAssumptions are attached to every report.
var DefaultAssumptions = []string{
	"News input is collected and preprocessed by the internal news provider.",
	"Financial and price data vendors are not fully integrated, so some metrics may be blank.",
}

// DefaultUncertainty lists the three standing sources of uncertainty.
var DefaultUncertainty = []string{
	"Coverage and latency of internal news input",
	"Possible drift in category classification rules",
	"Lack of quantitative evidence without financial/price data",
}

// Request is one report to enforce.
type Request struct {
	AgentName        string
	Ticker           string
	DomainCategory   string
	AnalysisSchemaID string
	Schema           models.SchemaDefinition
	RawTextReport    string
	KeyEvidence      []map[string]interface{}
	// ExtraFields override any base field when the report is encoded.
	ExtraFields map[string]interface{}
}

// Service enforces report schemas.
type Service struct {
	extractor interfaces.ReportExtractor
	logger    arbor.ILogger
}

// NewService creates an enforcer. A nil extractor extracts nothing.
func NewService(extractor interfaces.ReportExtractor, logger arbor.ILogger) *Service {
	if extractor == nil {
		extractor = NoneExtractor{}
	}
	return &Service{extractor: extractor, logger: logger}
}

// Enforce builds the structured report and records it on run, which may be nil.
// Extra fields naming a typed field (confidence, missing_fields, ticker, ...)
// are applied to the struct too, so the returned report and the audit
// compliance block agree with the encoded form.
func (s *Service) Enforce(ctx context.Context, run *audit.Run, req Request) models.StructuredReport {
	extraction := s.extractor.Extract(req.RawTextReport, req.Schema)

	metrics := make(map[string]interface{}, len(req.Schema.RequiredMetrics))
	var missing []string
	for _, m := range req.Schema.RequiredMetrics {
		v := extraction.Metrics[m]
		metrics[m] = v
		if isBlank(v) {
			missing = append(missing, missingMetricPrefix+m)
		}
	}

	answers := make(map[string]string, len(req.Schema.AnalysisQuestions))
	for _, q := range req.Schema.AnalysisQuestions {
		a := extraction.Answers[q]
		answers[q] = a
		if strings.TrimSpace(a) == "" {
			missing = append(missing, missingQuestionPrefix+q)
		}
	}

	evidence := req.KeyEvidence
	if evidence == nil {
		evidence = []map[string]interface{}{}
	}
	if missing == nil {
		missing = []string{}
	}

	report := models.StructuredReport{
		Ticker:                req.Ticker,
		DomainCategory:        req.DomainCategory,
		AnalysisSchemaID:      req.AnalysisSchemaID,
		Assumptions:           append([]string(nil), DefaultAssumptions...),
		KeyEvidence:           evidence,
		RequiredMetricsFilled: metrics,
		AnswersToQuestions:    answers,
		InvalidationTriggers:  append([]string{}, req.Schema.InvalidationTriggers...),
		UncertaintyTop3:       append([]string(nil), DefaultUncertainty...),
		Confidence:            Confidence(len(missing)),
		MissingFields:         missing,
		RawTextReport:         req.RawTextReport,
		Extra:                 req.ExtraFields,
	}
	applyOverrides(&report, req.ExtraFields)

	s.logger.Debug().
		Str("ticker", req.Ticker).
		Str("agent", req.AgentName).
		Str("schema_id", req.AnalysisSchemaID).
		Int("missing_fields", len(report.MissingFields)).
		Float64("confidence", report.Confidence).
		Msg("Report schema enforced")

	run.Report(req.AgentName, report)
	return report
}

// Penalty is the confidence reduction for a number of missing fields.
func Penalty(missing int) float64 {
	switch {
	case missing <= 0:
		return 0
	case missing <= 2:
		return -0.1
	case missing <= 5:
		return -0.2
	default:
		return -0.35
	}
}

// Confidence is the report confidence for a number of missing fields.
func Confidence(missing int) float64 {
	return common.ClampFloat64(baseConfidence+Penalty(missing), minConfidence, maxConfidence)
}

func isBlank(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

// applyOverrides copies well-typed extra values onto the matching struct
// fields. Values of the wrong type stay in Extra only.
func applyOverrides(report *models.StructuredReport, extra map[string]interface{}) {
	for key, value := range extra {
		switch key {
		case "confidence":
			if f, ok := asFloat(value); ok {
				report.Confidence = f
			}
		case "missing_fields":
			if list, ok := asStrings(value); ok {
				report.MissingFields = list
			}
		case "ticker":
			if v, ok := value.(string); ok {
				report.Ticker = v
			}
		case "domain_category":
			if v, ok := value.(string); ok {
				report.DomainCategory = v
			}
		case "analysis_schema_id":
			if v, ok := value.(string); ok {
				report.AnalysisSchemaID = v
			}
		case "raw_text_report":
			if v, ok := value.(string); ok {
				report.RawTextReport = v
			}
		}
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func asStrings(v interface{}) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return append([]string{}, list...), true
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
