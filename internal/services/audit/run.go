package audit

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/interfaces"
	"github.com/ternarybob/tradeprep/internal/models"
)

// Run binds a sink to one pipeline run so every record carries the same
// run_id, ticker, as_of and versions. Write failures are logged, never returned.
// A nil *Run records nothing.
type Run struct {
	sink   interfaces.AuditSink
	header models.AuditHeader
	logger arbor.ILogger
}

// NewRun creates a recorder for one run.
func NewRun(sink interfaces.AuditSink, header models.AuditHeader, logger arbor.ILogger) *Run {
	return &Run{sink: sink, header: header, logger: logger}
}

// Header returns the shared record header.
func (r *Run) Header() models.AuditHeader {
	if r == nil {
		return models.AuditHeader{}
	}
	return r.header
}

// WithVersion returns a recorder whose records carry version instead.
func (r *Run) WithVersion(version models.VersionBundle) *Run {
	if r == nil {
		return nil
	}
	h := r.header
	h.Version = version
	return &Run{sink: r.sink, header: h, logger: r.logger}
}

func (r *Run) NewsFetch(window models.TimeWindow, counts models.NewsCounts) {
	if r == nil {
		return
	}
	r.record(interfaces.StreamNewsFetch, models.NewsFetchEvent{
		AuditHeader: r.header,
		Window:      window,
		Counts:      counts,
	})
}

func (r *Run) Classification(security models.SecurityMaster, ctx models.NewsContext, result models.CategoryRoutingResult) {
	if r == nil {
		return
	}
	r.record(interfaces.StreamClassification, models.ClassificationEvent{
		AuditHeader:    r.header,
		SecurityMaster: security,
		NewsContext:    ctx,
		Classification: result,
	})
}

func (r *Run) NewsPreprocess(bundle models.PreprocessedBundle) {
	if r == nil {
		return
	}
	r.record(interfaces.StreamNewsPreprocess, models.NewsPreprocessEvent{
		AuditHeader:    r.header,
		DedupeStats:    bundle.DedupeStats,
		RelevanceStats: bundle.RelevanceStats,
		EventStats:     bundle.EventStats,
	})
}

func (r *Run) Report(agent string, report models.StructuredReport) {
	if r == nil {
		return
	}
	r.record(interfaces.StreamReport, models.ReportEvent{
		AuditHeader: r.header,
		AgentName:   agent,
		ReportJSON:  report,
		Compliance:  models.Compliance{MissingFields: report.MissingFields, Confidence: report.Confidence},
	})
}

func (r *Run) record(stream string, entry interface{}) {
	if r == nil || r.sink == nil {
		return
	}
	if err := r.sink.Record(stream, entry); err != nil {
		r.logger.Warn().Err(err).Str("stream", stream).Str("run_id", r.header.RunID).Msg("Failed to record audit event")
	}
}
