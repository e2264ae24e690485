package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/tradeprep/internal/app"
	"github.com/ternarybob/tradeprep/internal/common"
)

func main() {
	// Load configuration
	configPath := os.Getenv("TRADEPREP_CONFIG")
	if _, err := os.Stat(configPath); configPath == "" || err != nil {
		configPath = ""
		if _, err := os.Stat(common.AppName + ".toml"); err == nil {
			configPath = common.AppName + ".toml"
		}
	}

	// Phase 1: Load config without KV replacement (storage not initialized yet)
	config, err := common.LoadFromFile(nil, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize minimal logger for MCP server (console only, no file output)
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn") // Minimal logging to avoid cluttering MCP stdio

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	// Create MCP server
	mcpServer := server.NewMCPServer(
		common.AppName,
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createRouteCategoryTool(), handleRouteCategory(application, logger))
	mcpServer.AddTool(createPreprocessNewsTool(), handlePreprocessNews(application, logger))
	mcpServer.AddTool(createRunPipelineTool(), handleRunPipeline(application, logger))
	mcpServer.AddTool(createEnforceReportSchemaTool(), handleEnforceReportSchema(application, logger))

	// Start server (blocks on stdio)
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
