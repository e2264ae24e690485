// Package preprocess reduces raw company and macro news to a small ranked
// bundle: dedupe, relevance scoring, event labelling, sort, threshold and
// top-k truncation. All functions are pure.
package preprocess

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/tradeprep/internal/common"
	"github.com/ternarybob/tradeprep/internal/models"
)

// Config bounds the bundle.
type Config struct {
	CompanyTopK        int
	MacroTopK          int
	RelevanceThreshold float64
	// FallbackKeywords supplies relevance keywords for domains without a built-in list.
	FallbackKeywords map[string][]string
}

// DefaultConfig returns company_top_k=5, macro_top_k=3, relevance_threshold=0.2.
func DefaultConfig() Config {
	return Config{CompanyTopK: 5, MacroTopK: 3, RelevanceThreshold: 0.2}
}

// FromConfig converts the TOML section, attaching taxonomy keywords as fallback.
func FromConfig(c common.PreprocessConfig, taxonomy models.Taxonomy) Config {
	fallback := make(map[string][]string, len(taxonomy.DomainCategories))
	for _, d := range taxonomy.DomainCategories {
		fallback[d.Name] = d.Keywords
	}
	return Config{
		CompanyTopK:        c.CompanyTopK,
		MacroTopK:          c.MacroTopK,
		RelevanceThreshold: c.RelevanceThreshold,
		FallbackKeywords:   fallback,
	}
}

// domainKeywords are the relevance keywords per built-in domain.
var domainKeywords = map[string][]string{
	"Banks":     {"nim", "deposit", "credit", "loan", "fed", "rate"},
	"REIT":      {"ffo", "noi", "occupancy", "cap rate", "lease", "tenant"},
	"Energy_EP": {"wti", "brent", "opec", "production", "capex", "upstream"},
	"SaaS":      {"arr", "nrr", "subscription", "churn", "cloud", "margin"},
	"Biotech":   {"fda", "trial", "phase", "pdufa", "approval", "clinical"},
}

// Keywords returns the relevance keywords for domain.
func (c Config) Keywords(domain string) []string {
	if kw, ok := domainKeywords[domain]; ok {
		return kw
	}
	return c.FallbackKeywords[domain]
}

type eventRule struct {
	label   string
	needles []string
}

// eventRules are checked in order; the first rule with a matching substring wins.
var eventRules = []eventRule{
	{models.EventEarnings, []string{"earnings", "results", "quarter", "q1", "q2", "q3", "q4"}},
	{models.EventGuidance, []string{"guidance", "outlook", "forecast"}},
	{models.EventMA, []string{"acquisition", "merge", "merger", "buyout", "deal"}},
	{models.EventRegulation, []string{"regulation", "regulatory", "fed", "sec", "doj", "fda"}},
	{models.EventProduct, []string{"launch", "product", "release", "feature"}},
	{models.EventMacro, []string{"macro", "inflation", "cpi", "pce", "unemployment", "rates", "yield"}},
	{models.EventLegal, []string{"lawsuit", "legal", "court", "settlement"}},
	{models.EventSecurity, []string{"breach", "hack", "security incident", "cyber"}},
	{models.EventRumor, []string{"rumor", "reportedly", "sources say"}},
}

type scored struct {
	item      models.NewsItem
	score     float64
	label     string
	published time.Time
}

// Preprocess builds the bundle for ticker within domain.
func Preprocess(ticker, domain string, company, macro []models.NewsItem, cfg Config) models.PreprocessedBundle {
	rel := newRelevance(ticker, cfg.Keywords(domain))
	before := len(company) + len(macro)

	companyKept := rank(Dedupe(company), rel, cfg.RelevanceThreshold, cfg.CompanyTopK)
	macroKept := rank(Dedupe(macro), rel, cfg.RelevanceThreshold, cfg.MacroTopK)

	after := len(companyKept) + len(macroKept)
	scores := make([]float64, 0, after)
	eventStats := make(map[string]int)
	for _, s := range append(append([]scored{}, companyKept...), macroKept...) {
		scores = append(scores, s.score)
		eventStats[s.label]++
	}

	removed := before - after
	if removed < 0 {
		removed = 0
	}

	return models.PreprocessedBundle{
		CompanyNews:      items(companyKept),
		MacroNews:        items(macroKept),
		CompanyNewsCards: cards(companyKept),
		MacroNewsCards:   cards(macroKept),
		DedupeStats:      models.DedupeStats{Before: before, After: after, Removed: removed},
		RelevanceStats:   models.RelevanceStats{KeptThreshold: cfg.RelevanceThreshold, AvgScore: common.Mean(scores)},
		EventStats:       eventStats,
	}
}

func rank(in []models.NewsItem, rel relevance, threshold float64, topK int) []scored {
	all := make([]scored, 0, len(in))
	for _, item := range in {
		published, _ := common.ParseTimestamp(item.PublishedAt)
		all = append(all, scored{
			item:      item,
			score:     rel.score(item),
			label:     EventLabel(item),
			published: published,
		})
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].published.After(all[j].published)
	})

	kept := make([]scored, 0, len(all))
	for _, s := range all {
		if s.score >= threshold {
			kept = append(kept, s)
		}
	}
	if topK < 0 {
		topK = 0
	}
	if len(kept) > topK {
		kept = kept[:topK]
	}
	return kept
}

// Dedupe drops repeated items, keeping the first occurrence. Two items are
// the same when title, url and the hash of body (or summary) match after
// trimming and lower-casing.
func Dedupe(in []models.NewsItem) []models.NewsItem {
	seen := make(map[string]bool, len(in))
	out := make([]models.NewsItem, 0, len(in))
	for _, item := range in {
		key := DedupeKey(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// DedupeKey returns title||url||sha256(body or summary)[:12].
func DedupeKey(item models.NewsItem) string {
	title := strings.ToLower(strings.TrimSpace(item.Title))
	url := strings.ToLower(strings.TrimSpace(item.URL))
	body := strings.ToLower(strings.TrimSpace(item.BodyOrSummary()))
	bodyHash := ""
	if body != "" {
		sum := sha256.Sum256([]byte(body))
		bodyHash = hex.EncodeToString(sum[:])[:12]
	}
	return title + "||" + url + "||" + bodyHash
}

// RelevanceScore is 0.6 for a tagged ticker, up to 0.2 for word-bounded
// ticker mentions and up to 0.2 for distinct domain keywords present,
// clamped to [0, 1]. Exchange-qualified tickers are matched on their code.
func RelevanceScore(item models.NewsItem, ticker string, keywords []string) float64 {
	return newRelevance(ticker, keywords).score(item)
}

// relevance holds the per-ticker state shared by every item of a call.
type relevance struct {
	ticker   string
	mention  *regexp.Regexp
	keywords []string
}

func newRelevance(ticker string, keywords []string) relevance {
	r := relevance{ticker: common.CanonicalTicker(ticker)}
	if r.ticker != "" {
		r.mention = regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(r.ticker)) + `\b`)
	}
	for _, kw := range keywords {
		if kw = strings.ToLower(kw); kw != "" {
			r.keywords = append(r.keywords, kw)
		}
	}
	return r
}

func (r relevance) score(item models.NewsItem) float64 {
	text := strings.ToLower(item.Text())

	score := 0.0
	if r.ticker != "" {
		for _, t := range item.Tickers {
			if common.CanonicalTicker(t) == r.ticker {
				score += 0.6
				break
			}
		}
		mentions := r.mention.FindAllStringIndex(text, -1)
		score += common.StepScore(len(mentions), 0.05, 0.2)
	}

	kwHits := 0
	for _, kw := range r.keywords {
		if strings.Contains(text, kw) {
			kwHits++
		}
	}
	score += common.StepScore(kwHits, 0.05, 0.2)

	return common.ClampFloat64(score, 0, 1)
}

// EventLabel assigns the first matching event rule, or OTHER.
func EventLabel(item models.NewsItem) string {
	text := strings.ToLower(item.Text())
	for _, rule := range eventRules {
		for _, needle := range rule.needles {
			if strings.Contains(text, needle) {
				return rule.label
			}
		}
	}
	return models.EventOther
}

func items(in []scored) []models.NewsItem {
	out := make([]models.NewsItem, 0, len(in))
	for _, s := range in {
		out = append(out, s.item)
	}
	return out
}

func cards(in []scored) []models.NewsCard {
	out := make([]models.NewsCard, 0, len(in))
	for _, s := range in {
		out = append(out, models.NewsCard{
			NewsID:         s.item.ID,
			PublishedAt:    s.item.PublishedAt,
			Title:          s.item.Title,
			Source:         s.item.Source,
			RelevanceScore: s.score,
			EventLabel:     s.label,
		})
	}
	return out
}
