package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

const maxLineSize = 16 * 1024 * 1024

// StreamFile describes one stream file on disk.
type StreamFile struct {
	Stream  string    `json:"stream"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Reader reads audit streams back from a directory.
type Reader struct {
	dir    string
	logger arbor.ILogger
}

func NewReader(dir string, logger arbor.ILogger) *Reader {
	return &Reader{dir: dir, logger: logger}
}

// ListStreams returns the stream files in the directory, newest first.
func (r *Reader) ListStreams() ([]StreamFile, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit directory: %w", err)
	}

	var files []StreamFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), FileExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, StreamFile{
			Stream:  strings.TrimSuffix(entry.Name(), FileExt),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// ReadStream decodes every line of stream into a generic map. A missing file
// yields no records; lines that are not JSON objects are skipped.
func (r *Reader) ReadStream(stream string) ([]map[string]interface{}, error) {
	file, err := os.Open(StreamPath(r.dir, stream))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s stream: %w", stream, err)
	}
	defer file.Close()

	var records []map[string]interface{}
	skipped := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil || m == nil {
			skipped++
			continue
		}
		records = append(records, m)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s stream: %w", stream, err)
	}

	if skipped > 0 && r.logger != nil {
		r.logger.Warn().Str("stream", stream).Int("skipped", skipped).Msg("Skipped unparsable audit lines")
	}
	return records, nil
}
