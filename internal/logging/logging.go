// Package logging - Structured logging for the tariff service.
// Components take a named child of the global zap logger; tariff tables are
// always logged with the same field set so a version can be traced from import
// through publication to the quotes priced against it.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"motor-tariff/core/tariff"
)

// Logger is the global logger. It is never nil.
var Logger = zap.NewNop()

// Config contains logging configuration
type Config struct {
	// Level is the minimum log level
	Level string `json:"level"`

	// Format is json or console
	Format string `json:"format"`

	// Output is stdout, stderr or a file path
	Output string `json:"output"`

	// Development adds stack traces to errors
	Development bool `json:"development"`
}

// DefaultConfig logs info and above as JSON to stderr
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Output: "stderr"}
}

// Build creates a logger from cfg without installing it
func Build(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch cfg.Format {
	case "console":
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	case "json", "":
		enc = zapcore.NewJSONEncoder(ec)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	ws, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(zapcore.NewCore(enc, ws, level), opts...), nil
}

func openOutput(out string) (zapcore.WriteSyncer, error) {
	switch out {
	case "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr", "":
		return zapcore.Lock(os.Stderr), nil
	}
	f, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return zapcore.AddSync(f), nil
}

// Initialize builds a logger from cfg and installs it globally
func Initialize(cfg Config) error {
	l, err := Build(cfg)
	if err != nil {
		return err
	}
	Replace(l)
	return nil
}

// Replace swaps the global logger and returns a func restoring the previous one.
// Tests use it with zaptest/observer cores.
func Replace(l *zap.Logger) func() {
	prev := Logger
	Logger = l
	return func() { Logger = prev }
}

// Named returns a child logger for a component
func Named(component string) *zap.Logger {
	return Logger.Named(component)
}

// Table returns the fields identifying a tariff table
func Table(t *tariff.Table) []zap.Field {
	if t == nil {
		return []zap.Field{zap.Skip()}
	}
	return []zap.Field{
		zap.String("table_id", string(t.ID)),
		zap.Int("table_version", t.Version),
		zap.String("table_hash", t.ContentHash.Short()),
	}
}

// Error logs at error level on the global logger
func Error(msg string, fields ...zap.Field) {
	Logger.Error(msg, fields...)
}

// Sync flushes the global logger
func Sync() {
	_ = Logger.Sync()
}

func init() {
	if l, err := Build(DefaultConfig()); err == nil {
		Logger = l
	}
}
