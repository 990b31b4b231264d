// EquityLens — US equity research: DCF valuation, fundamental metrics,
// forensic screens, and news sentiment.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/equitylens/equitylens/api"
	"github.com/equitylens/equitylens/internal/config"
	"github.com/equitylens/equitylens/internal/datasource"
	"github.com/equitylens/equitylens/internal/logging"
	"github.com/equitylens/equitylens/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "equitylens",
	Short: "EquityLens — US equity research and DCF valuation",
	Long: `EquityLens
A research dashboard for US equities: multi-scenario DCF valuation,
reverse DCF, sensitivity grids, fundamental metrics, forensic screens,
factor regressions, and news sentiment.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(valueCmd)
	rootCmd.AddCommand(reverseCmd)
	rootCmd.AddCommand(sensitivityCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(forensicCmd)
	rootCmd.AddCommand(factorsCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// newLogger builds the zap logger from config plus the --log-level override.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	override, _ := cmd.Flags().GetString("log-level")
	return logging.New(cfg.Logging, override)
}

// newAggregator wires the default data sources from config.
func newAggregator() *datasource.Aggregator {
	return datasource.NewAggregatorWithLimits(cfg.Data.FMPKey,
		time.Duration(cfg.Data.CacheTTL)*time.Second, cfg.Data.RatePerSecond)
}

// commandContext returns a context bounded by the configured request
// timeout, with headroom for multi-fetch commands.
func commandContext() (context.Context, context.CancelFunc) {
	timeout := 60 * time.Second
	if cfg.Data.RequestTimeoutSec > 0 {
		timeout = 4 * time.Duration(cfg.Data.RequestTimeoutSec) * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("EquityLens %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}

		srv, err := api.NewServer(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		if noUI, _ := cmd.Flags().GetBool("no-ui"); noUI {
			srv.SetServeUI(false)
		}

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 EquityLens API server listening on http://%s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "port override (default from config)")
	serveCmd.Flags().Bool("no-ui", false, "serve the JSON API only, without the dashboard")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  EquityLens — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatus())
		fmt.Printf("  Time (ET):     %s\n", utils.FormatDateTimeET(utils.NowEastern()))
		fmt.Println()

		// Config summary
		fmt.Println("  Configuration:")
		fmt.Printf("    Default Scenario:  %s\n", cfg.Valuation.DefaultScenario)
		fmt.Printf("    Sensitivity Steps: %d\n", cfg.Valuation.SensitivitySteps)
		fmt.Printf("    API Server:        %s:%d\n", cfg.API.Host, cfg.API.Port)
		persistence := "disabled"
		if cfg.Database.URL != "" {
			persistence = "enabled (Postgres)"
		}
		fmt.Printf("    Persistence:       %s\n", persistence)
		fmt.Println()

		// API keys status
		fmt.Println("  API Keys:")
		keys := config.CheckAPIKeys(cfg)
		for _, k := range keys {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
