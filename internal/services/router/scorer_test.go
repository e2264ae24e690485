package router

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/tradeprep/internal/models"
)

func corpusTaxonomy() models.Taxonomy {
	return models.Taxonomy{
		Version: "taxonomy_test",
		DomainCategories: []models.DomainCategory{
			{Name: "Banks", Keywords: []string{"bank", "loan", "deposit", "credit", "capital", "mortgage", "branch", "lending", "interest", "fee"}},
			{Name: "REIT", Keywords: []string{"property", "lease"}},
			{Name: "Energy_EP", Keywords: []string{"crude"}},
			{Name: models.OthersDomain, Keywords: []string{"bank"}},
		},
	}
}

const testTS = "2025-12-05T09:00:00Z"

func TestScorer_ScoreCorpus(t *testing.T) {
	in := Input{
		Security: models.SecurityMaster{
			BusinessDescription: "Bank offering loan, deposit, credit, capital, mortgage, branch, lending and interest products",
		},
		NewsTexts: []string{"", "Property lease renewals"},
		Taxonomy:  corpusTaxonomy(),
	}

	s := newScorer(in, "XYZ", testTS)
	s.scoreCorpus()

	require.Len(t, s.scores, 2)
	assert.Equal(t, "Banks", s.scores[0].domain)
	assert.InDelta(t, corpusCap, s.scores[0].score, 1e-9, "nine hits are capped")
	assert.Equal(t, "REIT", s.scores[1].domain)
	assert.InDelta(t, 0.1, s.scores[1].score, 1e-9)

	require.Len(t, s.evidence, 2)
	assert.Equal(t, models.ClassificationEvidence{
		Source:      "fallback_corpus",
		Field:       "business_description+news",
		Rule:        "keywords_hit:9",
		MatchedText: "Banks hits=9",
		TS:          testTS,
	}, s.evidence[0])
	assert.Equal(t, "keywords_hit:2", s.evidence[1].Rule)
	assert.Equal(t, "REIT hits=2", s.evidence[1].MatchedText)

	resolved := s.resolve()
	assert.Equal(t, "Banks", resolved.Domain)
	assert.InDelta(t, 1/(1+math.Exp(-marginSensitivity*0.3)), resolved.Confidence, 1e-9)
	assert.Equal(t, 2, resolved.Evidence.Len())
	require.Len(t, resolved.Candidates, 2)
	assert.Equal(t, "REIT", resolved.Candidates[1].DomainCategory)
}

func TestScorer_ScoreCorpusNoHits(t *testing.T) {
	in := Input{
		Security:  models.SecurityMaster{BusinessDescription: "diversified holdings"},
		NewsTexts: []string{"nothing relevant"},
		Taxonomy:  corpusTaxonomy(),
	}

	s := newScorer(in, "XYZ", testTS)
	s.scoreCorpus()

	assert.Empty(t, s.scores)
	assert.Empty(t, s.evidence)
}

func TestScorer_ResolveForcesEvidence(t *testing.T) {
	t.Run("no evidence at all", func(t *testing.T) {
		s := newScorer(Input{Taxonomy: corpusTaxonomy()}, "XYZ", testTS)
		s.scores = []domainScore{{domain: "Energy_EP", score: 0.5}}

		resolved := s.resolve()

		assert.Equal(t, "Energy_EP", resolved.Domain)
		assert.InDelta(t, 1/(1+math.Exp(-marginSensitivity*0.5)), resolved.Confidence, 1e-9)
		require.Equal(t, 1, resolved.Evidence.Len())
		assert.Equal(t, models.ClassificationEvidence{
			Source:      "router",
			Field:       "fallback",
			Rule:        "score_without_evidence",
			MatchedText: "Score computed but no evidence captured; forced evidence",
			TS:          testTS,
		}, resolved.Evidence.All()[0])
	})

	t.Run("winner without evidence", func(t *testing.T) {
		s := newScorer(Input{Taxonomy: corpusTaxonomy()}, "XYZ", testTS)
		s.add("REIT", "fallback_corpus", "business_description+news", "keywords_hit:1", "REIT hits=1")
		s.scores = []domainScore{{domain: "REIT", score: 0.05}, {domain: "Energy_EP", score: 0.3}}

		resolved := s.resolve()

		assert.Equal(t, "Energy_EP", resolved.Domain)
		require.Equal(t, 2, resolved.Evidence.Len())
		assert.Equal(t, "keywords_hit:1", resolved.Evidence.All()[0].Rule)
		assert.Equal(t, "score_without_evidence", resolved.Evidence.Last().Rule)
	})

	t.Run("evidenced winner gets no synthetic record", func(t *testing.T) {
		s := newScorer(Input{Taxonomy: corpusTaxonomy()}, "XYZ", testTS)
		s.add("Banks", "taxonomy", "domain_categories.Banks.tickers", "ticker_in_list", "XYZ")
		s.scores = []domainScore{{domain: "Banks", score: 0.7}}

		resolved := s.resolve()

		require.Equal(t, 1, resolved.Evidence.Len())
		assert.Equal(t, "ticker_in_list", resolved.Evidence.Last().Rule)
	})
}
