package config

import (
	"fmt"
	"os"
	"strings"
)

// Validate checks the configuration for invalid values. Configuration
// faults are caller errors and fail loudly here instead of degrading at
// runtime.
func Validate(cfg *Config) error {
	if cfg.Fetcher.RetryBudget < 1 {
		return fmt.Errorf("fetcher.retry_budget must be >= 1, got %d", cfg.Fetcher.RetryBudget)
	}
	if cfg.Fetcher.RetryDelay < 0 {
		return fmt.Errorf("fetcher.retry_delay must be >= 0")
	}
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	switch cfg.Storage.Backend {
	case "mongo", "badger", "memory":
	default:
		return fmt.Errorf("storage.backend must be one of mongo, badger, memory; got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == "mongo" && cfg.Storage.MongoURI == "" {
		return fmt.Errorf("storage.mongo_uri must not be empty for the mongo backend")
	}
	if cfg.Storage.Backend == "badger" && cfg.Storage.BadgerPath == "" {
		return fmt.Errorf("storage.badger_path must not be empty for the badger backend")
	}

	if cfg.Export.Dir != "" && !strings.HasSuffix(cfg.Export.Dir, string(os.PathSeparator)) {
		return fmt.Errorf("export.dir must end with %q, got %q", string(os.PathSeparator), cfg.Export.Dir)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", cfg.Logging.Level)
	}

	return nil
}
