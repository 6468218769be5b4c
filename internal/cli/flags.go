package cli

import (
	"fmt"

	"github.com/ppiankov/covgate/internal/model"
	"github.com/spf13/viper"
)

var (
	catalogDriver  string
	catalogPath    string
	catalogRequire string
)

func init() {
	defaults := model.DefaultConfig()

	// Catalog flags are shared by run, resolve and catalog check
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&catalogDriver, "catalog-driver", defaults.Catalog.Driver, "catalog source driver (yaml, sqlite)")
	flags.StringVar(&catalogPath, "catalog", defaults.Catalog.Path, "catalog file or SQLite DSN")
	flags.StringVar(&catalogRequire, "catalog-require", defaults.Catalog.Require, "semver constraint the catalog version must satisfy")

	_ = viper.BindPFlag("catalog.driver", flags.Lookup("catalog-driver"))
	_ = viper.BindPFlag("catalog.path", flags.Lookup("catalog"))
	_ = viper.BindPFlag("catalog.require", flags.Lookup("catalog-require"))
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *model.Config) error {
	if cfg.Catalog.Path == "" {
		return fmt.Errorf("config: catalog.path is empty")
	}
	if cfg.Engine.Workers < 1 {
		return fmt.Errorf("config: engine.workers must be at least 1, got %d", cfg.Engine.Workers)
	}
	if cfg.Engine.EvidenceCap < 1 {
		return fmt.Errorf("config: engine.evidence_cap must be at least 1, got %d", cfg.Engine.EvidenceCap)
	}
	return nil
}
