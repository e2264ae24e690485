package models

import "encoding/json"

// StructuredReport wraps a free-text analysis into its schema and carries
// the compliance-driven confidence.
type StructuredReport struct {
	Ticker                string                   `json:"ticker"`
	DomainCategory        string                   `json:"domain_category"`
	AnalysisSchemaID      string                   `json:"analysis_schema_id"`
	Assumptions           []string                 `json:"assumptions"`
	KeyEvidence           []map[string]interface{} `json:"key_evidence"`
	RequiredMetricsFilled map[string]interface{}   `json:"required_metrics_filled"`
	AnswersToQuestions    map[string]string        `json:"answers_to_questions"`
	InvalidationTriggers  []string                 `json:"invalidation_triggers"`
	UncertaintyTop3       []string                 `json:"uncertainty_top3"`
	Confidence            float64                  `json:"confidence"`
	MissingFields         []string                 `json:"missing_fields"`
	RawTextReport         string                   `json:"raw_text_report"`

	// Extra holds caller-supplied fields. On encoding they are written over
	// the base fields, so an extra key with a base field's name replaces it.
	Extra map[string]interface{} `json:"-"`
}

// structuredReportFields avoids MarshalJSON recursion.
type structuredReportFields StructuredReport

// ToMap returns the encoded form as a generic map, extras applied.
func (r StructuredReport) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(structuredReportFields(r))
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{})
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		out[k] = v
	}
	return out, nil
}

func (r StructuredReport) MarshalJSON() ([]byte, error) {
	if len(r.Extra) == 0 {
		return json.Marshal(structuredReportFields(r))
	}
	m, err := r.ToMap()
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}
