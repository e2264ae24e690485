package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/interfaces"
	"github.com/ternarybob/tradeprep/internal/models"
)

func header() models.AuditHeader {
	return models.AuditHeader{
		RunID:   "20251205T090000Z-JPM-abcd1234",
		Ticker:  "JPM",
		AsOf:    "2025-12-05T09:00:00Z",
		Version: models.VersionBundle{Router: "taxonomy_v1.0.0", Schema: "analysis_schema_v1.0.0"},
	}
}

func TestJSONLSink_AppendsOneLinePerRecord(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "audit")
	sink := NewJSONLSink(dir, arbor.NewLogger())

	require.NoError(t, sink.Record(interfaces.StreamNewsFetch, map[string]string{"a": "<b>"}))
	require.NoError(t, sink.Record(interfaces.StreamNewsFetch, map[string]string{"a": "c"}))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(filepath.Join(dir, "news_fetch_events.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"a":"<b>"}`, lines[0])
	assert.Equal(t, `{"a":"c"}`, lines[1])
}

func TestJSONLSink_ConcurrentAppends(t *testing.T) {
	dir := t.TempDir()
	sink := NewJSONLSink(dir, arbor.NewLogger())

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				entry := map[string]string{"writer": fmt.Sprint(w), "payload": strings.Repeat("x", 512)}
				assert.NoError(t, sink.Record(interfaces.StreamClassification, entry))
			}
		}(w)
	}
	wg.Wait()

	records, err := NewReader(dir, arbor.NewLogger()).ReadStream(interfaces.StreamClassification)
	require.NoError(t, err)
	assert.Len(t, records, writers*perWriter)
}

func TestJSONLSink_EncodeError(t *testing.T) {
	sink := NewJSONLSink(t.TempDir(), arbor.NewLogger())
	err := sink.Record(interfaces.StreamReport, map[string]interface{}{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestReader_SkipsUnparsableLines(t *testing.T) {
	dir := t.TempDir()
	content := "{\"ticker\":\"JPM\"}\nnot json\n\n[1,2]\n{\"ticker\":\"O\"}\n"
	require.NoError(t, os.WriteFile(StreamPath(dir, interfaces.StreamClassification), []byte(content), 0644))

	reader := NewReader(dir, arbor.NewLogger())
	records, err := reader.ReadStream(interfaces.StreamClassification)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "O", records[1]["ticker"])

	missing, err := reader.ReadStream("does_not_exist")
	require.NoError(t, err)
	assert.Empty(t, missing)

	files, err := reader.ListStreams()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, interfaces.StreamClassification, files[0].Stream)
}

func TestRun_RecordsEveryStream(t *testing.T) {
	sink := NewMemorySink()
	run := NewRun(sink, header(), arbor.NewLogger())

	run.NewsFetch(models.TimeWindow{Start: "2025-11-28T09:00:00Z", End: "2025-12-05T09:00:00Z"}, models.NewsCounts{Company: 3, Macro: 2})
	run.Classification(models.SecurityMaster{Ticker: "JPM"}, models.NewsContext{CompanyCount: 3, MacroCount: 2, UsedTextFields: []string{"title"}},
		models.CategoryRoutingResult{DomainCategory: "Banks", Confidence: 0.95,
			Evidence: models.NewEvidenceTrail(models.ClassificationEvidence{Rule: "ticker_in_list"})})
	run.NewsPreprocess(models.PreprocessedBundle{DedupeStats: models.DedupeStats{Before: 5, After: 3, Removed: 2}, EventStats: map[string]int{"EARNINGS": 1}})
	run.Report("analyst", models.StructuredReport{Ticker: "JPM", DomainCategory: "Banks", Confidence: 0.5, MissingFields: []string{"required_metric:CET1"}})

	for _, stream := range interfaces.AuditStreams {
		recs := sink.Maps(stream)
		require.Len(t, recs, 1, stream)
		assert.Equal(t, "JPM", recs[0]["ticker"])
		assert.Equal(t, header().RunID, recs[0]["run_id"])
		assert.Equal(t, "taxonomy_v1.0.0", recs[0]["version"].(map[string]interface{})["router"])
	}

	report := sink.Maps(interfaces.StreamReport)[0]
	assert.Equal(t, "analyst", report["agent_name"])
	compliance := report["compliance"].(map[string]interface{})
	assert.Equal(t, 0.5, compliance["confidence"])
	assert.Equal(t, []interface{}{"required_metric:CET1"}, compliance["missing_fields"])
}

type failingSink struct{}

func (failingSink) Record(string, interface{}) error { return errors.New("disk full") }
func (failingSink) Close() error                     { return nil }

func TestRun_WriteFailureDoesNotPanic(t *testing.T) {
	run := NewRun(failingSink{}, header(), arbor.NewLogger())
	assert.NotPanics(t, func() {
		run.NewsFetch(models.TimeWindow{}, models.NewsCounts{})
	})

	var nilRun *Run
	assert.NotPanics(t, func() { nilRun.NewsPreprocess(models.PreprocessedBundle{}) })
}

func TestMirrorSink_Forwards(t *testing.T) {
	mem := NewMemorySink()
	sink := NewMirrorSink(mem, arbor.NewLogger())
	require.NoError(t, sink.Record(interfaces.StreamReport, map[string]int{"n": 1}))
	assert.Len(t, mem.Records(interfaces.StreamReport), 1)
	require.NoError(t, sink.Close())
}

func decode(t *testing.T, lines ...string) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, l := range lines {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(l), &m))
		out = append(out, m)
	}
	return out
}

func TestSummarizeClassification(t *testing.T) {
	records := decode(t,
		`{"ticker":"JPM","classification":{"domain_category":"Banks","confidence":0.9}}`,
		`{"ticker":"JPM","classification":{"domain_category":"Others","confidence":0.2}}`,
		`{"ticker":"O","classification":{"domain_category":"REIT","confidence":0.7}}`,
		`{"ticker":"O","classification":{"domain_category":"REIT","confidence":0.8}}`,
	)

	s := SummarizeClassification(records)
	assert.Equal(t, 4, s.TotalRuns)
	assert.InDelta(t, 0.25, s.OthersRatio, 1e-9)
	assert.InDelta(t, 0.65, s.ConfidenceAvg, 1e-9)
	assert.Equal(t, []string{"JPM"}, s.TickersWithDrift)
	assert.Equal(t, Count{Label: "REIT", Count: 2}, s.DomainCounts[0])

	empty := SummarizeClassification(nil)
	assert.Equal(t, 0, empty.TotalRuns)
	assert.Equal(t, 0.0, empty.OthersRatio)
	assert.Empty(t, empty.TickersWithDrift)
}

func TestSummarizeNewsQuality(t *testing.T) {
	tests := []struct {
		name       string
		records    []string
		rate       float64
		suspicious []string
	}{
		{
			name: "healthy mix",
			records: []string{
				`{"dedupe_stats":{"before":10,"after":8,"removed":2},"relevance_stats":{"avg_score":0.6},"event_stats":{"EARNINGS":3,"OTHER":1}}`,
				`{"dedupe_stats":{"before":0,"after":0,"removed":0},"relevance_stats":{"avg_score":0.4},"event_stats":{}}`,
			},
			rate:       0.2,
			suspicious: []string{},
		},
		{
			name: "rumor heavy",
			records: []string{
				`{"dedupe_stats":{"before":4,"after":2,"removed":2},"relevance_stats":{"avg_score":0.3},"event_stats":{"RUMOR":3,"M&A":1}}`,
			},
			rate:       0.5,
			suspicious: []string{"RUMOR"},
		},
		{
			name: "mostly other",
			records: []string{
				`{"dedupe_stats":{"before":5,"after":5,"removed":0},"event_stats":{"OTHER":9,"MACRO":1}}`,
			},
			rate:       0,
			suspicious: []string{"OTHER"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SummarizeNewsQuality(decode(t, tt.records...))
			assert.InDelta(t, tt.rate, s.DedupeRemovedRateAvg, 1e-9)
			assert.Equal(t, tt.suspicious, s.SuspiciousEventLabels)
			assert.Equal(t, len(tt.suspicious) > 0, s.SuspiciousEventMix)
		})
	}
}

func TestSummarizeSchemaCompliance(t *testing.T) {
	records := decode(t,
		`{"report_json":{"domain_category":"Banks"},"compliance":{"missing_fields":["a","b","c"]}}`,
		`{"report_json":{"domain_category":"Banks"},"compliance":{"missing_fields":["a"]}}`,
		`{"report_json":{"domain_category":"REIT"},"compliance":{"missing_fields":[]}}`,
		`{"report_json":{},"compliance":{}}`,
	)

	s := SummarizeSchemaCompliance(records)
	assert.Equal(t, 4, s.TotalReports)
	require.Len(t, s.Domains, 3)
	assert.Equal(t, "REIT", s.Domains[0].DomainCategory)
	assert.Equal(t, "unknown", s.Domains[1].DomainCategory)
	assert.Equal(t, DomainCompliance{DomainCategory: "Banks", Runs: 2, AvgMissingFields: 2}, s.Domains[2])
}

func TestRun_NilRecordsNothing(t *testing.T) {
	var run *Run

	assert.NotPanics(t, func() {
		run.NewsFetch(models.TimeWindow{}, models.NewsCounts{Company: 1})
		run.Classification(models.SecurityMaster{}, models.NewsContext{}, models.CategoryRoutingResult{})
		run.NewsPreprocess(models.PreprocessedBundle{})
		run.Report("analyst", models.StructuredReport{})
	})
	assert.Equal(t, models.AuditHeader{}, run.Header())
	assert.Nil(t, run.WithVersion(models.VersionBundle{}))
}
