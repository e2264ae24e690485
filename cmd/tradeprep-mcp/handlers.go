package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/app"
	"github.com/ternarybob/tradeprep/internal/common"
	"github.com/ternarybob/tradeprep/internal/models"
	"github.com/ternarybob/tradeprep/internal/services/news"
	"github.com/ternarybob/tradeprep/internal/services/pipeline"
	"github.com/ternarybob/tradeprep/internal/services/preprocess"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(format string, args ...interface{}) *mcp.CallToolResult {
	result := textResult(fmt.Sprintf(format, args...))
	result.IsError = true
	return result
}

func jsonResult(v interface{}) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error: failed to encode result: %v", err)
	}
	return textResult(string(data))
}

// handleRouteCategory implements the route_category tool
func handleRouteCategory(a *app.App, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		if err != nil || strings.TrimSpace(ticker) == "" {
			return errorResult("Error: ticker parameter is required"), nil
		}
		ticker = common.CanonicalTicker(ticker)
		texts := request.GetStringSlice("news_texts", nil)

		security := a.SecurityMaster.Get(ctx, ticker)
		result := a.Router.Route(ticker, security, texts, nil)

		run := a.Pipeline.StageRun(ticker)
		run.Classification(security, models.NewsContext{
			CompanyCount:   len(texts),
			UsedTextFields: pipeline.UsedTextFields,
		}, result)

		logger.Debug().Str("ticker", ticker).Str("run_id", run.Header().RunID).Str("domain", result.DomainCategory).Msg("route_category served")
		return jsonResult(result), nil
	}
}

// handlePreprocessNews implements the preprocess_news tool
func handlePreprocessNews(a *app.App, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		if err != nil || strings.TrimSpace(ticker) == "" {
			return errorResult("Error: ticker parameter is required"), nil
		}
		ticker = common.CanonicalTicker(ticker)

		defaults := news.Defaults{Ticker: ticker}
		company := news.Normalize(news.DecodePayload(request.GetString("company_news", "")), defaults)
		macro := news.Normalize(news.DecodePayload(request.GetString("macro_news", "")), news.Defaults{})

		domain := request.GetString("domain_category", "")
		if domain == "" {
			all := append(append([]models.NewsItem{}, company...), macro...)
			domain = a.Router.Route(ticker, a.SecurityMaster.Get(ctx, ticker), models.NewsTexts(all), all).DomainCategory
		}

		cfg := preprocess.FromConfig(a.Config.Preprocess, a.Taxonomy)
		bundle := preprocess.Preprocess(ticker, domain, company, macro, cfg)

		run := a.Pipeline.StageRun(ticker)
		run.NewsPreprocess(bundle)

		logger.Debug().Str("ticker", ticker).Str("run_id", run.Header().RunID).Str("domain", domain).Int("kept", bundle.DedupeStats.After).Msg("preprocess_news served")
		return jsonResult(bundle), nil
	}
}

// handleRunPipeline implements the run_pipeline tool
func handleRunPipeline(a *app.App, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		if err != nil || strings.TrimSpace(ticker) == "" {
			return errorResult("Error: ticker parameter is required"), nil
		}
		result := a.Pipeline.Run(ctx, ticker, request.GetString("trade_date", ""))
		return jsonResult(result), nil
	}
}

// handleEnforceReportSchema implements the enforce_report_schema tool
func handleEnforceReportSchema(a *app.App, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := request.RequireString("raw_text_report")
		if err != nil {
			return errorResult("Error: raw_text_report parameter is required"), nil
		}

		var result models.RunResult
		if runJSON := request.GetString("run_result", ""); runJSON != "" {
			if err := json.Unmarshal([]byte(runJSON), &result); err != nil {
				return errorResult("Error: invalid run_result: %v", err), nil
			}
		} else if ticker := request.GetString("ticker", ""); ticker != "" {
			result = a.Pipeline.Run(ctx, ticker, "")
		} else {
			return errorResult("Error: run_result or ticker is required"), nil
		}

		var extra map[string]interface{}
		if extraJSON := request.GetString("extra_fields", ""); extraJSON != "" {
			if err := json.Unmarshal([]byte(extraJSON), &extra); err != nil {
				return errorResult("Error: invalid extra_fields: %v", err), nil
			}
		}

		report := a.Pipeline.EnforceReport(ctx, result, request.GetString("agent_name", "analyst"), raw, nil, extra)
		logger.Debug().Str("ticker", result.Ticker).Int("missing_fields", len(report.MissingFields)).Msg("enforce_report_schema served")
		return jsonResult(report), nil
	}
}
