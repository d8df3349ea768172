// Package main - Entry point for the motor tariff quote server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"motor-tariff/internal/app"
	"motor-tariff/internal/config"
	"motor-tariff/internal/logging"
)

const version = "1.0.0"

func main() {
	cfgPath := flag.String("config", "", "Path to a JSON config file")
	addr := flag.String("addr", "", "Server address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, version); err != nil {
		logging.Error("server stopped", zap.Error(err))
		logging.Sync()
		os.Exit(1)
	}
}
