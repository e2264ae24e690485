// Package audit persists pipeline events as append-only JSON Lines streams
// and summarizes them offline.
package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/interfaces"
)

// FileExt is the extension of every stream file.
const FileExt = ".jsonl"

// StreamPath returns the file backing stream under dir.
func StreamPath(dir, stream string) string {
	return filepath.Join(dir, filepath.Base(stream)+FileExt)
}

// encodeLine renders entry as one JSON line without HTML escaping.
func encodeLine(entry interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entry); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JSONLSink appends one line per record to <dir>/<stream>.jsonl. Appends to
// the same stream are serialized and each record is a single write, so
// concurrent runs never interleave within a line.
type JSONLSink struct {
	dir    string
	logger arbor.ILogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewJSONLSink creates a sink rooted at dir. The directory is created on first write.
func NewJSONLSink(dir string, logger arbor.ILogger) *JSONLSink {
	return &JSONLSink{dir: dir, logger: logger, locks: make(map[string]*sync.Mutex)}
}

// Dir returns the directory holding the stream files.
func (s *JSONLSink) Dir() string {
	return s.dir
}

func (s *JSONLSink) streamLock(stream string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[stream]
	if !ok {
		l = &sync.Mutex{}
		s.locks[stream] = l
	}
	return l
}

func (s *JSONLSink) Record(stream string, entry interface{}) error {
	line, err := encodeLine(entry)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", stream, err)
	}

	l := s.streamLock(stream)
	l.Lock()
	defer l.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create audit directory %s: %w", s.dir, err)
	}

	f, err := os.OpenFile(StreamPath(s.dir, stream), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s stream: %w", stream, err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("failed to append %s record: %w", stream, err)
	}
	return nil
}

func (s *JSONLSink) Close() error {
	return nil
}

// MemorySink keeps encoded records in memory, for tests and dry runs.
type MemorySink struct {
	mu      sync.Mutex
	records map[string][]json.RawMessage
}

func NewMemorySink() *MemorySink {
	return &MemorySink{records: make(map[string][]json.RawMessage)}
}

func (s *MemorySink) Record(stream string, entry interface{}) error {
	line, err := encodeLine(entry)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", stream, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[stream] = append(s.records[stream], json.RawMessage(bytes.TrimSpace(line)))
	return nil
}

// Records returns a copy of the encoded records of stream.
func (s *MemorySink) Records(stream string) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]json.RawMessage(nil), s.records[stream]...)
}

// Maps decodes every record of stream into a generic map.
func (s *MemorySink) Maps(stream string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, raw := range s.Records(stream) {
		var m map[string]interface{}
		if err := json.Unmarshal(raw, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func (s *MemorySink) Close() error {
	return nil
}

// MirrorSink forwards to another sink and also emits each record as a debug log line.
type MirrorSink struct {
	inner  interfaces.AuditSink
	logger arbor.ILogger
}

func NewMirrorSink(inner interfaces.AuditSink, logger arbor.ILogger) *MirrorSink {
	return &MirrorSink{inner: inner, logger: logger}
}

func (s *MirrorSink) Record(stream string, entry interface{}) error {
	if line, err := encodeLine(entry); err == nil {
		s.logger.Debug().Str("stream", stream).Msg(string(bytes.TrimSpace(line)))
	}
	return s.inner.Record(stream, entry)
}

func (s *MirrorSink) Close() error {
	return s.inner.Close()
}
