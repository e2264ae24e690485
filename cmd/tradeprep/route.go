package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/tradeprep/internal/common"
	"github.com/ternarybob/tradeprep/internal/models"
)

var routeCmd = &cobra.Command{
	Use:   "route [ticker]",
	Short: "Classify a ticker into a domain category",
	Long: `Routes a ticker using the taxonomy: deterministic overrides first, then
weighted ticker-list, keyword, topic and company-name scoring. Nothing is
written to the audit streams.`,
	Args: cobra.ExactArgs(1),
	RunE: runRoute,
}

var (
	routeWithNews bool
	routeJSON     bool
	routeText     []string
)

func init() {
	routeCmd.Flags().BoolVar(&routeWithNews, "with-news", false, "Fetch company and macro news and use it as routing context")
	routeCmd.Flags().StringArrayVar(&routeText, "text", nil, "Extra news text to use as routing context (repeatable)")
	routeCmd.Flags().BoolVar(&routeJSON, "json", false, "Print the routing result as JSON")
}

func runRoute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ticker := common.CanonicalTicker(args[0])
	security := application.SecurityMaster.Get(ctx, ticker)

	var items []models.NewsItem
	if routeWithNews {
		end := time.Now().UTC()
		start := end.AddDate(0, 0, -config.News.WindowDays)
		items = append(items, application.NewsProvider.GetCompanyNews(ctx, ticker, start, end, config.News.CompanyLimit)...)
		items = append(items, application.NewsProvider.GetMacroNews(ctx, start, end, config.News.MacroTopics, config.News.MacroLimit)...)
	}
	texts := append(models.NewsTexts(items), routeText...)

	result := application.Router.Route(ticker, security, texts, items)
	if routeJSON {
		return printJSON(cmd.OutOrStdout(), result)
	}
	printRouting(cmd.OutOrStdout(), result)
	return nil
}
