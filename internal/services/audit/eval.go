package audit

import (
	"sort"

	"github.com/ternarybob/tradeprep/internal/common"
	"github.com/ternarybob/tradeprep/internal/models"
)

// Suspicious event mixes in the preprocess stream.
const (
	rumorShareLimit = 0.5
	otherShareLimit = 0.8
)

// Count is a label with its number of occurrences.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ClassificationSummary aggregates classification_events.
type ClassificationSummary struct {
	TotalRuns        int      `json:"total_runs"`
	OthersRatio      float64  `json:"others_ratio"`
	TickersWithDrift []string `json:"tickers_with_drift"`
	ConfidenceAvg    float64  `json:"confidence_avg"`
	DomainCounts     []Count  `json:"domain_counts"`
}

// NewsQualitySummary aggregates news_preprocess_events.
type NewsQualitySummary struct {
	TotalRuns             int      `json:"total_runs"`
	DedupeRemovedRateAvg  float64  `json:"dedupe_removed_rate_avg"`
	RelevanceAvgScoreAvg  float64  `json:"relevance_avg_score_avg"`
	EventLabelCounts      []Count  `json:"event_label_counts"`
	SuspiciousEventMix    bool     `json:"suspicious_event_mix"`
	SuspiciousEventLabels []string `json:"suspicious_event_labels"`
}

// DomainCompliance is the schema compliance of one domain.
type DomainCompliance struct {
	DomainCategory   string  `json:"domain_category"`
	Runs             int     `json:"runs"`
	AvgMissingFields float64 `json:"avg_missing_fields"`
}

// SchemaComplianceSummary aggregates report_events, worst domains last.
type SchemaComplianceSummary struct {
	TotalReports int                `json:"total_reports"`
	Domains      []DomainCompliance `json:"domains"`
}

// SummarizeClassification reports routing drift and the Others share.
func SummarizeClassification(records []map[string]interface{}) ClassificationSummary {
	summary := ClassificationSummary{
		TotalRuns:        len(records),
		TickersWithDrift: []string{},
		DomainCounts:     []Count{},
	}
	if len(records) == 0 {
		return summary
	}

	domains := make(map[string]int)
	perTicker := make(map[string]map[string]bool)
	var confidences []float64
	others := 0

	for _, rec := range records {
		cls := asMap(rec["classification"])
		domain := asString(cls["domain_category"])
		domains[domain]++
		if domain == models.OthersDomain {
			others++
		}
		if c, ok := cls["confidence"].(float64); ok {
			confidences = append(confidences, c)
		}
		ticker := asString(rec["ticker"])
		if perTicker[ticker] == nil {
			perTicker[ticker] = make(map[string]bool)
		}
		perTicker[ticker][domain] = true
	}

	summary.OthersRatio = float64(others) / float64(len(records))
	summary.ConfidenceAvg = common.Mean(confidences)
	summary.DomainCounts = mostCommon(domains)
	for ticker, seen := range perTicker {
		if len(seen) > 1 {
			summary.TickersWithDrift = append(summary.TickersWithDrift, ticker)
		}
	}
	sort.Strings(summary.TickersWithDrift)
	return summary
}

// SummarizeNewsQuality reports dedupe and relevance averages and flags an
// event mix dominated by rumors or unlabelled items.
func SummarizeNewsQuality(records []map[string]interface{}) NewsQualitySummary {
	summary := NewsQualitySummary{
		TotalRuns:             len(records),
		EventLabelCounts:      []Count{},
		SuspiciousEventLabels: []string{},
	}

	var removedRates, avgScores []float64
	labels := make(map[string]int)

	for _, rec := range records {
		dedupe := asMap(rec["dedupe_stats"])
		before, _ := dedupe["before"].(float64)
		removed, _ := dedupe["removed"].(float64)
		if before > 0 {
			removedRates = append(removedRates, removed/before)
		}
		if avg, ok := asMap(rec["relevance_stats"])["avg_score"].(float64); ok {
			avgScores = append(avgScores, avg)
		}
		for label, n := range asMap(rec["event_stats"]) {
			if v, ok := n.(float64); ok {
				labels[label] += int(v)
			}
		}
	}

	summary.DedupeRemovedRateAvg = common.Mean(removedRates)
	summary.RelevanceAvgScoreAvg = common.Mean(avgScores)
	summary.EventLabelCounts = mostCommon(labels)

	total := 0
	for _, n := range labels {
		total += n
	}
	if total == 0 {
		total = 1
	}
	if float64(labels[models.EventRumor])/float64(total) > rumorShareLimit {
		summary.SuspiciousEventLabels = append(summary.SuspiciousEventLabels, models.EventRumor)
	}
	if float64(labels[models.EventOther])/float64(total) > otherShareLimit {
		summary.SuspiciousEventLabels = append(summary.SuspiciousEventLabels, models.EventOther)
	}
	summary.SuspiciousEventMix = len(summary.SuspiciousEventLabels) > 0
	return summary
}

// SummarizeSchemaCompliance averages missing field counts per domain.
func SummarizeSchemaCompliance(records []map[string]interface{}) SchemaComplianceSummary {
	summary := SchemaComplianceSummary{TotalReports: len(records), Domains: []DomainCompliance{}}

	type acc struct {
		runs    int
		missing int
	}
	byDomain := make(map[string]*acc)
	var order []string

	for _, rec := range records {
		report := asMap(rec["report_json"])
		domain := asString(report["domain_category"])
		if domain == "" {
			domain = "unknown"
		}
		missing := 0
		if list, ok := asMap(rec["compliance"])["missing_fields"].([]interface{}); ok {
			missing = len(list)
		}
		a, ok := byDomain[domain]
		if !ok {
			a = &acc{}
			byDomain[domain] = a
			order = append(order, domain)
		}
		a.runs++
		a.missing += missing
	}

	for _, domain := range order {
		a := byDomain[domain]
		summary.Domains = append(summary.Domains, DomainCompliance{
			DomainCategory:   domain,
			Runs:             a.runs,
			AvgMissingFields: float64(a.missing) / float64(a.runs),
		})
	}
	sort.SliceStable(summary.Domains, func(i, j int) bool {
		return summary.Domains[i].AvgMissingFields < summary.Domains[j].AvgMissingFields
	})
	return summary
}

// mostCommon orders counts descending, ties by label.
func mostCommon(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func asMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
