/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/suparena/mfgstore/registry"
)

// Supported storage backends.
const (
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
)

// Config carries everything the application reads from its environment.
type Config struct {
	Backend     string `env:"MFGSTORE_BACKEND" envDefault:"postgres"`
	PostgresDSN string `env:"MFGSTORE_POSTGRES_DSN"`

	AWSAccessKey string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion    string `env:"AWS_REGION" envDefault:"us-east-1"`

	InsightAPIKey string `env:"GEMINI_API_KEY"`
	InsightModel  string `env:"MFGSTORE_INSIGHT_MODEL"`

	LogFile    string `env:"MFGSTORE_LOG_FILE" envDefault:"mfgstore.log"`
	LogConsole bool   `env:"MFGSTORE_LOG_CONSOLE" envDefault:"false"`

	// OverridesFile points at an optional YAML file remapping entity tables.
	OverridesFile string `env:"MFGSTORE_TABLE_OVERRIDES"`
}

// Load reads configuration: an optional .env file first (missing is fine),
// then the process environment, then the optional table-overrides YAML,
// which is applied straight to the entity registry.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		// Default .env in the working directory, if present.
		_ = godotenv.Load()
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.OverridesFile != "" {
		if err := ApplyTableOverrides(cfg.OverridesFile); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("MFGSTORE_POSTGRES_DSN is required for the postgres backend")
		}
	case BackendDynamoDB:
		if c.AWSAccessKey == "" || c.AWSSecretKey == "" {
			return fmt.Errorf("AWS credentials are required for the dynamodb backend")
		}
	default:
		return fmt.Errorf("unknown backend %q (expected %s or %s)", c.Backend, BackendPostgres, BackendDynamoDB)
	}
	return nil
}

// tableOverride remaps one entity's remote addressing. Empty fields keep the
// registered value.
type tableOverride struct {
	Table     string `yaml:"table"`
	KeyColumn string `yaml:"key_column"`
	Channel   string `yaml:"channel"`
	OrderBy   string `yaml:"order_by"`
}

type overridesDoc struct {
	// Tables is keyed by the currently registered table name.
	Tables map[string]tableOverride `yaml:"tables"`
}

// ApplyTableOverrides loads the YAML file and rewrites the matching registry
// entries. Unknown table names are an error, as a silently ignored override
// is worse than a loud one.
func ApplyTableOverrides(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read table overrides %s: %w", path, err)
	}

	var doc overridesDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse table overrides %s: %w", path, err)
	}

	for name, ov := range doc.Tables {
		applied := registry.SetTableOverride(name, func(tm registry.TableMap) registry.TableMap {
			if ov.Table != "" {
				tm.Table = ov.Table
			}
			if ov.KeyColumn != "" {
				tm.KeyColumn = ov.KeyColumn
			}
			if ov.Channel != "" {
				tm.Channel = ov.Channel
			}
			if ov.OrderBy != "" {
				tm.OrderBy = ov.OrderBy
			}
			return tm
		})
		if !applied {
			return fmt.Errorf("table override %q matches no registered entity", name)
		}
	}
	return nil
}
