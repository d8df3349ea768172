// Package cmd provides the CLI commands for motor-tariff.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"motor-tariff/adapters/pubsub"
	"motor-tariff/db"
	"motor-tariff/db/ingestion"
	"motor-tariff/internal/config"
	"motor-tariff/internal/logging"
)

// Version is the CLI and server version
const Version = "1.0.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "motor-tariff",
	Short: "Price mandatory vehicle insurance from published tariff tables",
	Long: `motor-tariff prices compulsory motor insurance for internal and border
vehicles from versioned, immutable tariff tables.

Examples:
  motor-tariff quote --type internal --vehicle-code 01 --category 01 --months 12
  motor-tariff quote --type border --border-type tourist --months 6 --format json
  motor-tariff tariff import --internal internal.csv --border border.csv --version 4 --activate
  motor-tariff serve`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	config.Set(cfg)

	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// openPricingStore connects to the configured database. The returned func closes the pool.
func openPricingStore(ctx context.Context) (*db.PricingStore, func(), error) {
	cfg := config.Get()
	if cfg.Database.DSN == "" {
		return nil, nil, fmt.Errorf("database.dsn is not configured (set TARIFF_DATABASE_DSN)")
	}
	pool, err := db.NewPool(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return db.NewPricingStore(pool), pool.Close, nil
}

// announcer returns a redis publisher when redis is configured, else nil
func announcer() (ingestion.Announcer, func()) {
	cfg := config.Get()
	if cfg.Redis.Addr == "" {
		return nil, func() {}
	}
	rdb := pubsub.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	return pubsub.NewPublisher(rdb, cfg.Redis.Channel), func() { _ = rdb.Close() }
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "motor-tariff version %s\n", Version)
	},
}

// configCmd prints the effective configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *config.Get()
		if cfg.Database.DSN != "" {
			cfg.Database.DSN = "<redacted>"
		}
		if cfg.Redis.Password != "" {
			cfg.Redis.Password = "<redacted>"
		}
		return printJSON(cmd.OutOrStdout(), cfg)
	},
}
