// Package router assigns a ticker to a domain category and analysis schema
// using deterministic rules only: ticker overrides, weighted keyword and
// ticker-list scoring, a broader corpus scan, and finally Others.
package router

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/tradeprep/internal/common"
	"github.com/ternarybob/tradeprep/internal/models"
)

// Score weights.
const (
	tickerListWeight   = 0.7
	keywordStep        = 0.05
	keywordCap         = 0.3
	newsKeywordCap     = 0.2
	topicWeight        = 0.3
	companyNameWeight  = 0.15
	corpusCap          = 0.4
	overrideConfidence = 0.95
	fallbackConfidence = 0.2
	maxConfidence      = 0.95
	marginSensitivity  = 4.0
	topK               = 3
	evidenceHitsShown  = 5
	minCompanyNameLen  = 3
	unknownVersion     = "taxonomy_unknown"
	defaultAssetType   = "Equity"
	noMatchReason      = "No deterministic/taxonomy/text match; fallback to Others"
)

// Input carries everything a routing decision may use. NewsTexts and
// NewsItems are optional.
type Input struct {
	Ticker    string
	Security  models.SecurityMaster
	NewsTexts []string
	NewsItems []models.NewsItem
	Taxonomy  models.Taxonomy
	Schema    models.AnalysisSchema
	// Now stamps evidence; zero means time.Now().
	Now time.Time
}

// Decision is the outcome of Decide: either Resolved or Fallback.
type Decision interface {
	decision()
}

// Resolved names a domain with its evidence.
type Resolved struct {
	Domain     string
	Confidence float64
	Candidates []models.Candidate
	Evidence   models.EvidenceTrail
}

// Fallback means no rule matched and the ticker goes to Others.
type Fallback struct {
	Reason string
}

func (Resolved) decision() {}
func (Fallback) decision() {}

// Route decides and assembles the full routing result.
func Route(in Input) models.CategoryRoutingResult {
	now := in.now()
	result := models.CategoryRoutingResult{
		AssetType: assetType(in.Security, in.Taxonomy),
		Version:   in.Taxonomy.Version,
	}
	if result.Version == "" {
		result.Version = unknownVersion
	}

	switch d := Decide(in).(type) {
	case Resolved:
		result.DomainCategory = d.Domain
		result.Confidence = d.Confidence
		result.CandidatesTopK = d.Candidates
		result.Evidence = d.Evidence
	case Fallback:
		result.DomainCategory = models.OthersDomain
		result.Confidence = fallbackConfidence
		result.CandidatesTopK = []models.Candidate{{DomainCategory: models.OthersDomain, Score: fallbackConfidence}}
		result.Evidence = models.NewEvidenceTrail(models.ClassificationEvidence{
			Source:      "router",
			Field:       "fallback",
			Rule:        "no_match",
			MatchedText: d.Reason,
			TS:          common.FormatTimestamp(now),
		})
	}

	result.AnalysisSchemaID = in.Schema.ResolveSchemaID(result.DomainCategory)
	return result
}

// Decide runs the rule cascade.
func Decide(in Input) Decision {
	ts := common.FormatTimestamp(in.now())
	ticker := common.CanonicalTicker(in.Ticker)

	if domain, ok := in.Taxonomy.TickerDomainOverrides[ticker]; ok {
		domain = strings.TrimSpace(domain)
		return Resolved{
			Domain:     domain,
			Confidence: overrideConfidence,
			Candidates: []models.Candidate{
				{DomainCategory: domain, Score: 1.0},
				{DomainCategory: models.OthersDomain, Score: 0.0},
			},
			Evidence: models.NewEvidenceTrail(models.ClassificationEvidence{
				Source:      "taxonomy",
				Field:       "ticker_domain_overrides",
				Rule:        "deterministic_override",
				MatchedText: ticker + "->" + domain,
				TS:          ts,
			}),
		}
	}

	s := newScorer(in, ticker, ts)
	s.scoreTaxonomy()
	if len(s.scores) == 0 {
		s.scoreCorpus()
	}
	if len(s.scores) == 0 {
		return Fallback{Reason: noMatchReason}
	}
	return s.resolve()
}

func (in Input) now() time.Time {
	if in.Now.IsZero() {
		return time.Now()
	}
	return in.Now
}

func assetType(sm models.SecurityMaster, tax models.Taxonomy) string {
	for _, candidate := range []string{sm.AssetTypeHint, tax.AssetTypeFallback} {
		if v := strings.TrimSpace(candidate); v != "" {
			return v
		}
	}
	return defaultAssetType
}

type domainScore struct {
	domain string
	score  float64
}

// scorer accumulates scores in taxonomy order and evidence in emission order.
type scorer struct {
	in        Input
	ticker    string
	ts        string
	name      string
	bag       string
	newsBag   string
	scores    []domainScore
	evidence  []models.ClassificationEvidence
	evidenced map[string]bool
}

func newScorer(in Input, ticker, ts string) *scorer {
	var texts []string
	for _, t := range in.NewsTexts {
		if strings.TrimSpace(t) != "" {
			texts = append(texts, t)
		}
	}
	newsBag := strings.ToLower(strings.Join(texts, " "))
	name := strings.ToLower(in.Security.Name)
	desc := strings.ToLower(in.Security.BusinessDescription)

	return &scorer{
		in:        in,
		ticker:    ticker,
		ts:        ts,
		name:      name,
		bag:       strings.ToLower(ticker) + " " + name + " " + desc + " " + newsBag,
		newsBag:   newsBag,
		evidenced: make(map[string]bool),
	}
}

func (s *scorer) add(domain, source, field, rule, matched string) {
	s.evidence = append(s.evidence, models.ClassificationEvidence{
		Source:      source,
		Field:       field,
		Rule:        rule,
		MatchedText: matched,
		TS:          s.ts,
	})
	s.evidenced[domain] = true
}

func (s *scorer) scoreTaxonomy() {
	for _, d := range s.in.Taxonomy.DomainCategories {
		if d.Name == models.OthersDomain {
			continue
		}
		score := 0.0

		if d.HasTicker(s.ticker) {
			score += tickerListWeight
			s.add(d.Name, "taxonomy", "domain_categories."+d.Name+".tickers", "ticker_in_list", s.ticker)
		}

		if hits := keywordHits(d.Keywords, s.bag); len(hits) > 0 {
			score += common.StepScore(len(hits), keywordStep, keywordCap)
			s.add(d.Name, "security_master", "business_description", "keyword_match:"+d.Name, joinFirst(hits))
		}

		if s.newsBag != "" {
			if hits := keywordHits(d.Keywords, s.newsBag); len(hits) > 0 {
				score += common.StepScore(len(hits), keywordStep, newsKeywordCap)
				s.add(d.Name, "internal_news", "title/summary/body", "keyword_match_news:"+d.Name, joinFirst(hits))
			}
		}

		if item, topics, ok := topicMatch(d, s.in.NewsItems); ok {
			score += topicWeight
			id := item.ID
			if id == "" {
				id = "unknown"
			}
			s.add(d.Name, "internal_news", "topics", "topic_tag_match:"+d.Name,
				fmt.Sprintf("news_id=%s, topics=[%s]", id, strings.Join(topics, ", ")))
		}

		if s.companyNameInNews() {
			score += companyNameWeight
			s.add(d.Name, "internal_news", "company_name_match", "company_name_in_news",
				fmt.Sprintf("name=%s found in news text", s.name))
		}

		if score > 0 {
			s.scores = append(s.scores, domainScore{domain: d.Name, score: score})
		}
	}
}

// scoreCorpus scans only the business description and raw news texts.
func (s *scorer) scoreCorpus() {
	var parts []string
	if s.in.Security.BusinessDescription != "" {
		parts = append(parts, strings.ToLower(s.in.Security.BusinessDescription))
	}
	for _, t := range s.in.NewsTexts {
		if t != "" {
			parts = append(parts, strings.ToLower(t))
		}
	}
	corpus := strings.Join(parts, " ")

	for _, d := range s.in.Taxonomy.DomainCategories {
		if d.Name == models.OthersDomain {
			continue
		}
		hits := len(keywordHits(d.Keywords, corpus))
		if hits == 0 {
			continue
		}
		s.scores = append(s.scores, domainScore{domain: d.Name, score: common.StepScore(hits, keywordStep, corpusCap)})
		s.add(d.Name, "fallback_corpus", "business_description+news",
			fmt.Sprintf("keywords_hit:%d", hits), fmt.Sprintf("%s hits=%d", d.Name, hits))
	}
}

func (s *scorer) resolve() Resolved {
	ranked := append([]domainScore(nil), s.scores...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	best := ranked[0]
	second := 0.0
	if len(ranked) > 1 {
		second = ranked[1].score
	}

	candidates := make([]models.Candidate, 0, topK)
	for i := 0; i < len(ranked) && i < topK; i++ {
		candidates = append(candidates, models.Candidate{DomainCategory: ranked[i].domain, Score: ranked[i].score})
	}

	if !s.evidenced[best.domain] {
		s.add(best.domain, "router", "fallback", "score_without_evidence",
			"Score computed but no evidence captured; forced evidence")
	}

	return Resolved{
		Domain:     best.domain,
		Confidence: common.ClampFloat64(common.Sigmoid(marginSensitivity*(best.score-second)), fallbackConfidence, maxConfidence),
		Candidates: candidates,
		Evidence:   models.NewEvidenceTrail(s.evidence[0], s.evidence[1:]...),
	}
}

// companyNameInNews compares the name and news bag with spaces, periods and
// commas removed.
func (s *scorer) companyNameInNews() bool {
	if strings.TrimSpace(s.name) == "" || s.newsBag == "" {
		return false
	}
	name := stripNamePunct(s.name)
	return len([]rune(name)) >= minCompanyNameLen && strings.Contains(stripNamePunct(s.newsBag), name)
}

var namePunct = strings.NewReplacer(" ", "", ".", "", ",", "")

func stripNamePunct(s string) string {
	return namePunct.Replace(s)
}

// topicMatch returns the first item tagged with the domain name or one of
// its keywords.
func topicMatch(d models.DomainCategory, items []models.NewsItem) (models.NewsItem, []string, bool) {
	domain := strings.ToLower(d.Name)
	for _, item := range items {
		topics := make([]string, 0, len(item.Topics))
		for _, t := range item.Topics {
			topics = append(topics, strings.ToLower(strings.TrimSpace(t)))
		}
		for _, t := range topics {
			if t == domain || containsFold(d.Keywords, t) {
				return item, topics, true
			}
		}
	}
	return models.NewsItem{}, nil, false
}

func keywordHits(keywords []string, text string) []string {
	var hits []string
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw != "" && strings.Contains(text, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}

func joinFirst(hits []string) string {
	if len(hits) > evidenceHitsShown {
		hits = hits[:evidenceHitsShown]
	}
	return strings.Join(hits, ", ")
}

func containsFold(list []string, v string) bool {
	for _, x := range list {
		if strings.ToLower(x) == v {
			return true
		}
	}
	return false
}
