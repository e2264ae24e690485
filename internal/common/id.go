package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewRunID generates a run identifier.
// Format: run_<YYYYmmddTHHMMSSZ>_<8 hex>, sortable by start time and unique across concurrent runs.
func NewRunID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("run_%s_%s", now.UTC().Format("20060102T150405Z"), suffix)
}
