package config

import (
	"os"
	"path/filepath"
	"testing"

	"motor-tariff/internal/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Fees.ElectronicCard != 150 || cfg.Fees.PremiumService != 50 || cfg.Fees.RescueService != 30 {
		t.Errorf("unexpected default fees: %+v", cfg.Fees)
	}
	if len(cfg.Tariff.InternalMonths) != 5 || len(cfg.Tariff.BorderMonths) != 3 {
		t.Errorf("unexpected default months: %+v", cfg.Tariff)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.HTTP.Addr = ":9090"
	cfg.Tariff.InternalMonths = []int{3, 6, 12}
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TARIFF_FEE_RESCUE_SERVICE", "45")
	t.Setenv("TARIFF_REDIS_ADDR", "localhost:6379")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.HTTP.Addr != ":9090" || len(loaded.Tariff.InternalMonths) != 3 {
		t.Errorf("file values not applied: %+v", loaded)
	}
	if loaded.Fees.RescueService != 45 || loaded.Redis.Addr != "localhost:6379" {
		t.Errorf("env overrides not applied: %+v", loaded)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("Addr = %s", cfg.HTTP.Addr)
	}
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	env := map[string]string{"TARIFF_FEE_ELECTRONIC_CARD": "lots"}
	err := Default().ApplyEnv(func(k string) string { return env[k] })
	if !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("expected config error, got %v", err)
	}

	cfg := Default()
	env = map[string]string{"TARIFF_BORDER_MONTHS": "3, 6, 12", "TARIFF_INTERNAL_MONTHS": "1,12"}
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatal(err)
	}
	if len(cfg.Tariff.BorderMonths) != 3 || len(cfg.Tariff.InternalMonths) != 2 {
		t.Errorf("months not parsed: %+v", cfg.Tariff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"negative fee", func(c *Config) { c.Fees.PremiumService = -1 }},
		{"zero internal month", func(c *Config) { c.Tariff.InternalMonths = []int{0, 12} }},
		{"untabulated border month", func(c *Config) { c.Tariff.BorderMonths = []int{1} }},
		{"no addr", func(c *Config) { c.HTTP.Addr = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mod(cfg)
			if err := cfg.Validate(); !errors.IsType(err, errors.TypeConfig) {
				t.Errorf("expected config error, got %v", err)
			}
		})
	}
}

func TestInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestApplyEnvCORSOrigins(t *testing.T) {
	cfg := Default()
	env := map[string]string{"TARIFF_CORS_ORIGINS": "https://app.example.sy, ,http://localhost:3000"}
	if err := cfg.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatal(err)
	}
	want := []string{"https://app.example.sy", "http://localhost:3000"}
	if len(cfg.HTTP.CORSOrigins) != len(want) {
		t.Fatalf("origins = %v", cfg.HTTP.CORSOrigins)
	}
	for i := range want {
		if cfg.HTTP.CORSOrigins[i] != want[i] {
			t.Errorf("origin %d = %q, want %q", i, cfg.HTTP.CORSOrigins[i], want[i])
		}
	}
}
