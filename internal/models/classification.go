package models

import (
	"encoding/json"
	"errors"
)

// ClassificationEvidence justifies one contribution to a routing decision.
type ClassificationEvidence struct {
	Source      string `json:"source"`
	Field       string `json:"field"`
	Rule        string `json:"rule"`
	MatchedText string `json:"matched_text"`
	TS          string `json:"ts"`
}

// ErrEmptyEvidence is returned when decoding an evidence trail with no records.
var ErrEmptyEvidence = errors.New("evidence trail must contain at least one record")

// EvidenceTrail is a non-empty, append-only list of evidence.
// The zero value is not valid; build one with NewEvidenceTrail.
type EvidenceTrail struct {
	first ClassificationEvidence
	rest  []ClassificationEvidence
}

// NewEvidenceTrail starts a trail with its first record.
func NewEvidenceTrail(first ClassificationEvidence, rest ...ClassificationEvidence) EvidenceTrail {
	return EvidenceTrail{first: first, rest: append([]ClassificationEvidence(nil), rest...)}
}

// Append returns a new trail with e added at the end.
func (t EvidenceTrail) Append(e ClassificationEvidence) EvidenceTrail {
	rest := make([]ClassificationEvidence, len(t.rest), len(t.rest)+1)
	copy(rest, t.rest)
	return EvidenceTrail{first: t.first, rest: append(rest, e)}
}

// All returns a copy of every record in order.
func (t EvidenceTrail) All() []ClassificationEvidence {
	out := make([]ClassificationEvidence, 0, 1+len(t.rest))
	out = append(out, t.first)
	return append(out, t.rest...)
}

// Len is always at least one.
func (t EvidenceTrail) Len() int {
	return 1 + len(t.rest)
}

// Last returns the most recently appended record.
func (t EvidenceTrail) Last() ClassificationEvidence {
	if len(t.rest) == 0 {
		return t.first
	}
	return t.rest[len(t.rest)-1]
}

func (t EvidenceTrail) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.All())
}

func (t *EvidenceTrail) UnmarshalJSON(data []byte) error {
	var records []ClassificationEvidence
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrEmptyEvidence
	}
	*t = NewEvidenceTrail(records[0], records[1:]...)
	return nil
}

// Candidate is one scored domain in a routing result.
type Candidate struct {
	DomainCategory string  `json:"domain_category"`
	Score          float64 `json:"score"`
}

// CategoryRoutingResult is the router's decision for one ticker.
type CategoryRoutingResult struct {
	AssetType        string        `json:"asset_type"`
	DomainCategory   string        `json:"domain_category"`
	Confidence       float64       `json:"confidence"`
	CandidatesTopK   []Candidate   `json:"candidates_topk"`
	Evidence         EvidenceTrail `json:"evidence"`
	Version          string        `json:"version"`
	AnalysisSchemaID string        `json:"analysis_schema_id"`
}
