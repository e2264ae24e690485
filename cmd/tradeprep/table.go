package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ternarybob/tradeprep/internal/models"
)

const maxCellWidth = 60

// renderTable writes rows as a pipe table padded by display width, so
// headlines with wide characters stay aligned.
func renderTable(w io.Writer, header []string, rows [][]string) {
	colWidths := make([]int, len(header))
	all := append([][]string{header}, rows...)
	for r, row := range all {
		for i := 0; i < len(row) && i < len(colWidths); i++ {
			all[r][i] = runewidth.Truncate(row[i], maxCellWidth, "...")
			if width := runewidth.StringWidth(all[r][i]); width > colWidths[i] {
				colWidths[i] = width
			}
		}
	}

	for i, row := range all {
		var sb strings.Builder
		sb.WriteString("|")
		for j := range colWidths {
			content := ""
			if j < len(row) {
				content = row[j]
			}
			sb.WriteString(" ")
			sb.WriteString(runewidth.FillRight(content, colWidths[j]))
			sb.WriteString(" |")
		}
		fmt.Fprintln(w, sb.String())

		if i == 0 {
			sb.Reset()
			sb.WriteString("|")
			for _, width := range colWidths {
				sb.WriteString(" " + strings.Repeat("-", width) + " |")
			}
			fmt.Fprintln(w, sb.String())
		}
	}
}

func cardRows(cards []models.NewsCard) [][]string {
	rows := make([][]string, 0, len(cards))
	for _, c := range cards {
		rows = append(rows, []string{
			c.PublishedAt,
			c.EventLabel,
			fmt.Sprintf("%.2f", c.RelevanceScore),
			c.Source,
			c.Title,
		})
	}
	return rows
}

var cardHeader = []string{"Published", "Event", "Score", "Source", "Title"}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRouting(w io.Writer, r models.CategoryRoutingResult) {
	fmt.Fprintf(w, "Domain:     %s (confidence %.2f)\n", r.DomainCategory, r.Confidence)
	fmt.Fprintf(w, "Schema:     %s\n", r.AnalysisSchemaID)
	fmt.Fprintf(w, "Asset type: %s\n", r.AssetType)
	fmt.Fprintf(w, "Taxonomy:   %s\n\n", r.Version)

	candidates := make([][]string, 0, len(r.CandidatesTopK))
	for _, c := range r.CandidatesTopK {
		candidates = append(candidates, []string{c.DomainCategory, fmt.Sprintf("%.2f", c.Score)})
	}
	renderTable(w, []string{"Candidate", "Score"}, candidates)
	fmt.Fprintln(w)

	evidence := make([][]string, 0, r.Evidence.Len())
	for _, e := range r.Evidence.All() {
		evidence = append(evidence, []string{e.Rule, e.Source, e.Field, e.MatchedText})
	}
	renderTable(w, []string{"Rule", "Source", "Field", "Matched"}, evidence)
}
