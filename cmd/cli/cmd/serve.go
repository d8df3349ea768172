package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"motor-tariff/internal/app"
	"motor-tariff/internal/config"
)

var (
	serveAddr   string
	serveTariff string
)

// serveCmd runs the HTTP quote server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the quote API server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		if serveAddr != "" {
			cfg.HTTP.Addr = serveAddr
		}
		if serveTariff != "" {
			cfg.Tariff.File = serveTariff
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.Run(ctx, cfg, Version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveTariff, "tariff", "", "HCL tariff file served when no database is configured")
}
