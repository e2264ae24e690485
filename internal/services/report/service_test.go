package report

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/interfaces"
	"github.com/ternarybob/tradeprep/internal/models"
	"github.com/ternarybob/tradeprep/internal/services/audit"
)

func banksSchema() models.SchemaDefinition {
	return models.SchemaDefinition{
		RequiredMetrics:      []string{"CET1", "NIM"},
		AnalysisQuestions:    []string{"Is deposit flight a risk?", "How is credit quality trending?"},
		InvalidationTriggers: []string{"CET1 below regulatory minimum"},
	}
}

func request() Request {
	return Request{
		AgentName:        "News Analyst",
		Ticker:           "JPM",
		DomainCategory:   "Banks",
		AnalysisSchemaID: "Banks_v1",
		Schema:           banksSchema(),
		RawTextReport:    "JPM looks fine.",
	}
}

func TestPenaltyAndConfidence(t *testing.T) {
	tests := []struct {
		missing    int
		penalty    float64
		confidence float64
	}{
		{0, 0, 0.7},
		{1, -0.1, 0.6},
		{2, -0.1, 0.6},
		{3, -0.2, 0.5},
		{4, -0.2, 0.5},
		{5, -0.2, 0.5},
		{6, -0.35, 0.35},
		{40, -0.35, 0.35},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.penalty, Penalty(tt.missing), "missing=%d", tt.missing)
		c := Confidence(tt.missing)
		assert.InDelta(t, tt.confidence, c, 1e-9, "missing=%d", tt.missing)
		assert.GreaterOrEqual(t, c, 0.05)
		assert.LessOrEqual(t, c, 1.0)
	}
}

func TestEnforce_NoExtractorMarksEverythingMissing(t *testing.T) {
	sink := audit.NewMemorySink()
	run := audit.NewRun(sink, models.AuditHeader{RunID: "r1", Ticker: "JPM"}, arbor.NewLogger())
	svc := NewService(nil, arbor.NewLogger())

	report := svc.Enforce(context.Background(), run, request())

	assert.Equal(t, []string{
		"required_metric:CET1",
		"required_metric:NIM",
		"analysis_question:Is deposit flight a risk?",
		"analysis_question:How is credit quality trending?",
	}, report.MissingFields)
	assert.InDelta(t, 0.5, report.Confidence, 1e-9)
	assert.Equal(t, map[string]interface{}{"CET1": nil, "NIM": nil}, report.RequiredMetricsFilled)
	assert.Equal(t, "", report.AnswersToQuestions["Is deposit flight a risk?"])
	assert.Equal(t, DefaultAssumptions, report.Assumptions)
	assert.Len(t, report.UncertaintyTop3, 3)
	assert.Equal(t, []string{"CET1 below regulatory minimum"}, report.InvalidationTriggers)
	assert.Equal(t, []map[string]interface{}{}, report.KeyEvidence)

	events := sink.Maps(interfaces.StreamReport)
	require.Len(t, events, 1)
	assert.Equal(t, "News Analyst", events[0]["agent_name"])
	assert.Equal(t, "r1", events[0]["run_id"])
	compliance := events[0]["compliance"].(map[string]interface{})
	assert.Len(t, compliance["missing_fields"], 4)
}

func TestEnforce_EmptySchema(t *testing.T) {
	svc := NewService(NoneExtractor{}, arbor.NewLogger())
	req := request()
	req.Schema = models.SchemaDefinition{}

	report := svc.Enforce(context.Background(), nil, req)
	assert.Empty(t, report.MissingFields)
	assert.NotNil(t, report.MissingFields)
	assert.Equal(t, 0.7, report.Confidence)
	assert.NotNil(t, report.InvalidationTriggers)
}

func TestEnforce_ExtraFieldsOverrideStructAndAudit(t *testing.T) {
	sink := audit.NewMemorySink()
	run := audit.NewRun(sink, models.AuditHeader{RunID: "r2", Ticker: "JPM"}, arbor.NewLogger())
	svc := NewService(nil, arbor.NewLogger())
	req := request()
	req.ExtraFields = map[string]interface{}{
		"confidence":     0.9,
		"missing_fields": []interface{}{"required_metric:CET1"},
		"ticker":         42,
	}

	report := svc.Enforce(context.Background(), run, req)
	assert.Equal(t, 0.9, report.Confidence)
	assert.Equal(t, []string{"required_metric:CET1"}, report.MissingFields)
	assert.Equal(t, "JPM", report.Ticker)

	events := sink.Maps(interfaces.StreamReport)
	require.Len(t, events, 1)
	compliance := events[0]["compliance"].(map[string]interface{})
	assert.Equal(t, 0.9, compliance["confidence"])
	assert.Equal(t, []interface{}{"required_metric:CET1"}, compliance["missing_fields"])
	reportJSON := events[0]["report_json"].(map[string]interface{})
	assert.Equal(t, 0.9, reportJSON["confidence"])
}

func TestEnforce_ExtraFieldsOverride(t *testing.T) {
	svc := NewService(nil, arbor.NewLogger())
	req := request()
	req.ExtraFields = map[string]interface{}{"confidence": 0.99, "sentiment": "positive"}

	report := svc.Enforce(context.Background(), nil, req)
	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 0.99, decoded["confidence"])
	assert.Equal(t, "positive", decoded["sentiment"])
	assert.Equal(t, "JPM", decoded["ticker"])
}

type staticExtractor struct {
	extraction interfaces.Extraction
}

func (s staticExtractor) Extract(string, models.SchemaDefinition) interfaces.Extraction {
	return s.extraction
}

func TestEnforce_ExtractorFillsFields(t *testing.T) {
	svc := NewService(staticExtractor{interfaces.Extraction{
		Metrics: map[string]interface{}{"CET1": 13.5, "NIM": "  "},
		Answers: map[string]string{"Is deposit flight a risk?": "No, deposits are stable."},
	}}, arbor.NewLogger())

	report := svc.Enforce(context.Background(), nil, request())
	assert.Equal(t, []string{"required_metric:NIM", "analysis_question:How is credit quality trending?"}, report.MissingFields)
	assert.InDelta(t, 0.6, report.Confidence, 1e-9)
	assert.Equal(t, 13.5, report.RequiredMetricsFilled["CET1"])
}

func TestMarkdownExtractor(t *testing.T) {
	raw := `# JPM review

| Metric | Value |
|--------|-------|
| CET1   | 15.7% |

- **NIM**: 2.7

## Is deposit flight a risk?

Deposits grew 3% quarter on quarter.
No sign of outflows.

## Outlook

How is credit quality trending?: Charge-offs are normalizing.
`

	got := NewMarkdownExtractor().Extract(raw, banksSchema())

	assert.Equal(t, 15.7, got.Metrics["CET1"])
	assert.Equal(t, 2.7, got.Metrics["NIM"])
	assert.Equal(t, "Deposits grew 3% quarter on quarter. No sign of outflows.", got.Answers["Is deposit flight a risk?"])
	assert.Equal(t, "Charge-offs are normalizing.", got.Answers["How is credit quality trending?"])

	svc := NewService(NewMarkdownExtractor(), arbor.NewLogger())
	req := request()
	req.RawTextReport = raw
	report := svc.Enforce(context.Background(), nil, req)
	assert.Empty(t, report.MissingFields)
	assert.Equal(t, 0.7, report.Confidence)
}

func TestMarkdownExtractor_Blank(t *testing.T) {
	got := NewMarkdownExtractor().Extract("   ", banksSchema())
	assert.Empty(t, got.Metrics)
	assert.Empty(t, got.Answers)
}
