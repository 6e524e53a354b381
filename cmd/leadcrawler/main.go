package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/leadcrawler/internal/campaign"
	"github.com/TobiSchelling/leadcrawler/internal/config"
	"github.com/TobiSchelling/leadcrawler/internal/database"
	"github.com/TobiSchelling/leadcrawler/internal/metrics"
	"github.com/TobiSchelling/leadcrawler/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "leadcrawler",
	Short:   "Find, score and contact small-business leads",
	Long:    "leadcrawler searches for small-business sites, audits them for missing automation, and runs a paced cold-outreach campaign against the best leads.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger, err = newLogger(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(leadsCmd)
	rootCmd.AddCommand(campaignCmd)
	rootCmd.AddCommand(serveCmd)
}

// newLogger builds the root logger: JSON by default, human-readable when
// format is "console".
func newLogger(l config.Logging, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if l.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	if l.Level != "" {
		level, err := zap.ParseAtomicLevel(l.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = level
	}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zc.Build()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("leadcrawler", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/leadcrawler/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set your sender accounts, then export the search API key and account passwords.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		today := database.GetToday()
		run, err := db.GetRunStats(today)
		if err != nil {
			return fmt.Errorf("getting today's run: %w", err)
		}
		outreach, err := db.OutreachTotals()
		if err != nil {
			return fmt.Errorf("getting outreach totals: %w", err)
		}

		fmt.Printf("Today: %s\n\n", today)
		fmt.Println("Leads:")
		fmt.Printf("  Domains seen: %s\n", humanize.Comma(int64(stats.DomainsSeen)))
		fmt.Printf("  Leads: %s\n", humanize.Comma(int64(stats.Leads)))
		fmt.Printf("  Today: %d of %d target\n", run.LeadsFound, cfg.Search.DailyLeadTarget)
		fmt.Printf("  Days with runs: %d\n", stats.RunDays)
		fmt.Printf("  Queries logged: %s\n", humanize.Comma(int64(stats.QueriesLogged)))
		fmt.Println("\nCampaign:")
		fmt.Printf("  Domains contacted: %s\n", humanize.Comma(int64(stats.Contacted)))
		fmt.Printf("  Messages sent: %s fresh, %s follow-ups\n",
			humanize.Comma(int64(outreach.Fresh)), humanize.Comma(int64(outreach.Followups)))
		fmt.Printf("  Replied: %d\n", stats.Replied)
		fmt.Printf("  Bounced: %d\n", stats.Bounced)

		if info, err := os.Stat(db.Path()); err == nil {
			fmt.Printf("\nDatabase: %s (%s)\n", db.Path(), humanize.Bytes(uint64(info.Size())))
		}
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		catalog, err := campaign.DefaultCatalog()
		if err != nil {
			return err
		}
		m := metrics.New()
		m.RegisterStore(db, logger)

		srv, err := server.New(db, catalog, m, logger)
		if err != nil {
			return err
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(srv, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "leadcrawler.db")
	return database.Open(dbPath, logger)
}
