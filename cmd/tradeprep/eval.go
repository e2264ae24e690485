package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ternarybob/tradeprep/internal/interfaces"
	"github.com/ternarybob/tradeprep/internal/services/audit"
)

var evalCmd = &cobra.Command{
	Use:       "eval [classification|news|schema|all]",
	Short:     "Summarize the audit streams",
	Long:      `Reads the audit streams and reports routing drift, news quality and report schema compliance.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"classification", "news", "schema", "all"},
	RunE:      runEval,
}

var evalJSON bool

func init() {
	evalCmd.Flags().BoolVar(&evalJSON, "json", false, "Print summaries as JSON")
}

func runEval(cmd *cobra.Command, args []string) error {
	which := "all"
	if len(args) == 1 {
		which = strings.ToLower(args[0])
	}

	out := cmd.OutOrStdout()
	summaries := make(map[string]interface{})
	reader := application.AuditReader

	if which == "classification" || which == "all" {
		records, err := reader.ReadStream(interfaces.StreamClassification)
		if err != nil {
			return err
		}
		s := audit.SummarizeClassification(records)
		summaries["classification"] = s
		if !evalJSON {
			fmt.Fprintf(out, "\nClassification: %d runs, Others %.1f%%, avg confidence %.2f\n", s.TotalRuns, s.OthersRatio*100, s.ConfidenceAvg)
			if len(s.TickersWithDrift) > 0 {
				fmt.Fprintf(out, "Drift: %s\n", strings.Join(s.TickersWithDrift, ", "))
			}
			renderTable(out, []string{"Domain", "Runs"}, countRows(s.DomainCounts))
		}
	}

	if which == "news" || which == "all" {
		records, err := reader.ReadStream(interfaces.StreamNewsPreprocess)
		if err != nil {
			return err
		}
		s := audit.SummarizeNewsQuality(records)
		summaries["news"] = s
		if !evalJSON {
			fmt.Fprintf(out, "\nNews quality: %d runs, dedupe removed %.1f%%, avg relevance %.2f\n", s.TotalRuns, s.DedupeRemovedRateAvg*100, s.RelevanceAvgScoreAvg)
			if s.SuspiciousEventMix {
				fmt.Fprintf(out, "Suspicious event mix: %s\n", strings.Join(s.SuspiciousEventLabels, ", "))
			}
			renderTable(out, []string{"Event", "Count"}, countRows(s.EventLabelCounts))
		}
	}

	if which == "schema" || which == "all" {
		records, err := reader.ReadStream(interfaces.StreamReport)
		if err != nil {
			return err
		}
		s := audit.SummarizeSchemaCompliance(records)
		summaries["schema"] = s
		if !evalJSON {
			fmt.Fprintf(out, "\nSchema compliance: %d reports\n", s.TotalReports)
			rows := make([][]string, 0, len(s.Domains))
			for _, d := range s.Domains {
				rows = append(rows, []string{d.DomainCategory, fmt.Sprint(d.Runs), fmt.Sprintf("%.2f", d.AvgMissingFields)})
			}
			renderTable(out, []string{"Domain", "Reports", "Avg missing"}, rows)
		}
	}

	if len(summaries) == 0 {
		return fmt.Errorf("unknown evaluation %q", which)
	}
	if evalJSON {
		return printJSON(out, summaries)
	}
	return nil
}

func countRows(counts []audit.Count) [][]string {
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.Label, fmt.Sprint(c.Count)})
	}
	return rows
}
