package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/app"
	"github.com/ternarybob/tradeprep/internal/common"
)

var (
	// Command-line flags
	configFiles []string
	quiet       bool

	// Global state
	config      *common.Config
	logger      arbor.ILogger
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "tradeprep",
	Short: "Pre-analysis pipeline for equity research agents",
	Long: `tradeprep resolves security metadata, fetches and preprocesses news,
routes a ticker to its domain category and analysis schema, enforces report
schemas and keeps an append-only audit trail of every run.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (can be repeated, later files override earlier ones)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the startup banner")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(enforceCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup runs the startup sequence for every command except version:
// load config, initialize logger, print banner, build the application.
func setup(cmd *cobra.Command, args []string) error {
	if cmd == versionCmd {
		return nil
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat(common.AppName + ".toml"); err == nil {
			configFiles = append(configFiles, common.AppName+".toml")
		} else if _, err := os.Stat("deployments/local/" + common.AppName + ".toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/"+common.AppName+".toml")
		}
	}

	// KV replacement happens in app.New() once storage is open.
	var err error
	config, err = common.LoadFromFiles(nil, configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration %v: %w", configFiles, err)
	}

	logger = common.InitLogger(config)
	if !quiet {
		common.PrintBanner(common.GetVersion())
	}

	logger.Debug().
		Strs("config_files", configFiles).
		Str("log_level", config.Logging.Level).
		Strs("news_vendors", config.News.Vendors).
		Bool("badger_enabled", config.Storage.Badger.Enabled).
		Msg("Resolved configuration")

	application, err = app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if application == nil {
		return nil
	}
	return application.Close()
}
