package interfaces

// Audit stream names. Each stream is one JSONL file.
const (
	StreamNewsFetch      = "news_fetch_events"
	StreamClassification = "classification_events"
	StreamNewsPreprocess = "news_preprocess_events"
	StreamReport         = "report_events"
)

// AuditStreams lists every stream in pipeline order.
var AuditStreams = []string{
	StreamNewsFetch,
	StreamClassification,
	StreamNewsPreprocess,
	StreamReport,
}

// AuditSink appends structured records to named streams. Implementations
// must make each record a single atomic append and be safe for concurrent use.
type AuditSink interface {
	Record(stream string, entry interface{}) error
	Close() error
}
