package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ternarybob/tradeprep/internal/models"
)

var enforceCmd = &cobra.Command{
	Use:   "enforce",
	Short: "Wrap an analyst report into its analysis schema",
	Long: `Reads a free-text report and wraps it into the structured report of the
run's analysis schema, listing missing metrics and unanswered questions and
scoring confidence. Pass --run with the output of "run --json", or --ticker to
run the pipeline first. The result is recorded in report_events.`,
	RunE: runEnforce,
}

var (
	enforceRunFile string
	enforceTicker  string
	enforceReport  string
	enforceAgent   string
	enforceExtra   string
)

func init() {
	enforceCmd.Flags().StringVar(&enforceRunFile, "run", "", "Run result JSON written by \"run --json\"")
	enforceCmd.Flags().StringVar(&enforceTicker, "ticker", "", "Ticker to run the pipeline for when --run is not given")
	enforceCmd.Flags().StringVar(&enforceReport, "report", "", "Report file (markdown or text), - for stdin")
	enforceCmd.Flags().StringVar(&enforceAgent, "agent", "analyst", "Agent name recorded with the report")
	enforceCmd.Flags().StringVar(&enforceExtra, "extra", "", "JSON object of extra fields that override report fields")
	_ = enforceCmd.MarkFlagRequired("report")
}

func runEnforce(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var result models.RunResult
	switch {
	case enforceRunFile != "":
		var err error
		if result, err = loadRunResult(enforceRunFile); err != nil {
			return err
		}
	case enforceTicker != "":
		result = application.Pipeline.Run(ctx, enforceTicker, "")
	default:
		return fmt.Errorf("either --run or --ticker is required")
	}

	raw, err := readReport(cmd, enforceReport)
	if err != nil {
		return err
	}

	var extra map[string]interface{}
	if strings.TrimSpace(enforceExtra) != "" {
		if err := json.Unmarshal([]byte(enforceExtra), &extra); err != nil {
			return fmt.Errorf("invalid --extra: %w", err)
		}
	}

	evidence := make([]map[string]interface{}, 0, result.Classification.Evidence.Len())
	for _, e := range result.Classification.Evidence.All() {
		evidence = append(evidence, map[string]interface{}{
			"source":       e.Source,
			"field":        e.Field,
			"rule":         e.Rule,
			"matched_text": e.MatchedText,
		})
	}

	report := application.Pipeline.EnforceReport(ctx, result, enforceAgent, raw, evidence, extra)
	return printJSON(cmd.OutOrStdout(), report)
}

func readReport(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read report from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read report %s: %w", path, err)
	}
	return string(data), nil
}
