package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Fetcher.RetryBudget != 100 {
		t.Errorf("expected retry budget 100, got %d", cfg.Fetcher.RetryBudget)
	}
	if cfg.Fetcher.RetryDelay != 5*time.Second {
		t.Errorf("expected 5s retry delay, got %s", cfg.Fetcher.RetryDelay)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero retry budget", func(c *Config) { c.Fetcher.RetryBudget = 0 }},
		{"negative retry delay", func(c *Config) { c.Fetcher.RetryDelay = -time.Second }},
		{"zero timeout", func(c *Config) { c.Fetcher.RequestTimeout = 0 }},
		{"zero body cap", func(c *Config) { c.Fetcher.MaxBodySize = 0 }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "postgres" }},
		{"mongo without uri", func(c *Config) { c.Storage.Backend = "mongo"; c.Storage.MongoURI = "" }},
		{"badger without path", func(c *Config) { c.Storage.Backend = "badger"; c.Storage.BadgerPath = "" }},
		{"export dir without separator", func(c *Config) { c.Export.Dir = "./exported_news" }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestValidateAcceptsSeparatorDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Export.Dir = "exported_news" + string(os.PathSeparator)
	if err := Validate(cfg); err != nil {
		t.Errorf("separator-terminated export dir should validate: %v", err)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load without config file should fall back to defaults: %v", err)
	}
	if cfg.Fetcher.RetryBudget != 100 {
		t.Errorf("expected default retry budget, got %d", cfg.Fetcher.RetryBudget)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BRNEWS_STORAGE_BACKEND", "memory")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("env override ignored, got %q", cfg.Storage.Backend)
	}
}

func TestDefaultRegionsTable(t *testing.T) {
	g1 := DefaultG1()
	if len(g1.Regions) != 28 {
		t.Errorf("expected 27 states plus the national feed, got %d", len(g1.Regions))
	}
	if _, ok := g1.Regions["brasil"]; !ok {
		t.Error("national feed missing from region table")
	}
	if _, ok := g1.Regions["sp"]; !ok {
		t.Error("sp missing from region table")
	}
}
