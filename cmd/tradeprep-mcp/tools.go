package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createRouteCategoryTool returns the route_category tool definition
func createRouteCategoryTool() mcp.Tool {
	return mcp.NewTool("route_category",
		mcp.WithDescription("Classify a ticker into a domain category and analysis schema using deterministic taxonomy rules"),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Ticker symbol, optionally with exchange suffix (JPM, BHP.AU)"),
		),
		mcp.WithArray("news_texts",
			mcp.WithStringItems(),
			mcp.Description("Optional news titles/summaries/bodies used as routing context"),
		),
	)
}

// createPreprocessNewsTool returns the preprocess_news tool definition
func createPreprocessNewsTool() mcp.Tool {
	return mcp.NewTool("preprocess_news",
		mcp.WithDescription("Deduplicate, score, label and truncate company and macro news into compact news cards"),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Ticker the news is about"),
		),
		mcp.WithString("domain_category",
			mcp.Description("Domain category for relevance keywords (default: routed from the ticker)"),
		),
		mcp.WithString("company_news",
			mcp.Description("Company news payload: JSON list of records, Alpha Vantage feed JSON, or plain text"),
		),
		mcp.WithString("macro_news",
			mcp.Description("Macro news payload in the same formats as company_news"),
		),
	)
}

// createRunPipelineTool returns the run_pipeline tool definition
func createRunPipelineTool() mcp.Tool {
	return mcp.NewTool("run_pipeline",
		mcp.WithDescription("Run security lookup, news fetch, routing and preprocessing for a ticker and record the audit trail"),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Ticker symbol"),
		),
		mcp.WithString("trade_date",
			mcp.Description("Trade date YYYY-MM-DD (default: now)"),
		),
	)
}

// createEnforceReportSchemaTool returns the enforce_report_schema tool definition
func createEnforceReportSchemaTool() mcp.Tool {
	return mcp.NewTool("enforce_report_schema",
		mcp.WithDescription("Wrap an analyst's free-text report into its analysis schema and score compliance"),
		mcp.WithString("raw_text_report",
			mcp.Required(),
			mcp.Description("The analyst report (markdown or text)"),
		),
		mcp.WithString("agent_name",
			mcp.Description("Agent that wrote the report (default: analyst)"),
		),
		mcp.WithString("run_result",
			mcp.Description("Run result JSON returned by run_pipeline"),
		),
		mcp.WithString("ticker",
			mcp.Description("Ticker to run the pipeline for when run_result is not given"),
		),
		mcp.WithString("extra_fields",
			mcp.Description("JSON object of fields that override report fields"),
		),
	)
}
