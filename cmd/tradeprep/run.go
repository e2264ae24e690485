package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ternarybob/tradeprep/internal/models"
)

var runCmd = &cobra.Command{
	Use:   "run [ticker...]",
	Short: "Run the pipeline for one or more tickers",
	Long: `Looks up each ticker, fetches company and macro news for the window ending
at the trade date, routes the ticker to a domain category and builds the
preprocessed news bundle. Every stage is recorded in the audit streams.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPipeline,
}

var (
	runTradeDate string
	runJSON      bool
)

func init() {
	runCmd.Flags().StringVar(&runTradeDate, "trade-date", "", "Trade date (YYYY-MM-DD or ISO-8601, defaults to now)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the full run result as JSON")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var results []models.RunResult
	for _, ticker := range args {
		results = append(results, application.Pipeline.Run(ctx, ticker, runTradeDate))
	}

	if runJSON {
		if len(results) == 1 {
			return printJSON(out, results[0])
		}
		return printJSON(out, results)
	}

	for _, r := range results {
		fmt.Fprintf(out, "\n%s  %s  run=%s\n", r.Ticker, r.SecurityMaster.Name, r.RunID)
		fmt.Fprintf(out, "Window:     %s .. %s\n", r.Window.Start, r.Window.End)
		printRouting(out, r.Classification)

		fmt.Fprintf(out, "\nCompany news (%d kept)\n", len(r.News.CompanyNewsCards))
		renderTable(out, cardHeader, cardRows(r.News.CompanyNewsCards))
		fmt.Fprintf(out, "\nMacro news (%d kept)\n", len(r.News.MacroNewsCards))
		renderTable(out, cardHeader, cardRows(r.News.MacroNewsCards))

		fmt.Fprintf(out, "\nDedupe: %d -> %d (removed %d), avg relevance %.2f\n",
			r.News.DedupeStats.Before, r.News.DedupeStats.After, r.News.DedupeStats.Removed, r.News.RelevanceStats.AvgScore)
		if len(r.Schema.RequiredMetrics) > 0 {
			fmt.Fprintf(out, "Required metrics: %s\n", strings.Join(r.Schema.RequiredMetrics, ", "))
		}
	}

	logger.Info().Int("runs", len(results)).Str("audit_dir", config.Audit.Dir).Msg("Pipeline runs recorded")
	return nil
}

// loadRunResult reads a run result written by "run --json".
func loadRunResult(path string) (models.RunResult, error) {
	var result models.RunResult
	data, err := os.ReadFile(path)
	if err != nil {
		return result, fmt.Errorf("failed to read run result %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("failed to parse run result %s: %w", path, err)
	}
	return result, nil
}
