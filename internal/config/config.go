// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Source  SourceConfig  `mapstructure:"source"`
	Storage StorageConfig `mapstructure:"storage"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Summary SummaryConfig `mapstructure:"summary"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Report  ReportConfig  `mapstructure:"report"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// SourceConfig selects where rotated access logs are pulled from.
type SourceConfig struct {
	Provider string            `mapstructure:"provider"`
	Local    LocalSourceConfig `mapstructure:"local"`
	// Template names the rotated files, with {date} standing in for the
	// log date, e.g. "access.log.{date}.gz".
	Template string `mapstructure:"template"`
	// MaxDays bounds how far back the sync looks for missed files.
	MaxDays int `mapstructure:"max_days"`
}

// LocalSourceConfig points at a local log drop directory.
type LocalSourceConfig struct {
	Dir string `mapstructure:"dir"`
}

// StorageConfig selects the blob store and its key layout.
type StorageConfig struct {
	Provider     string             `mapstructure:"provider"`
	GCS          GCSStorageConfig   `mapstructure:"gcs"`
	Local        LocalStorageConfig `mapstructure:"local"`
	RawPrefix    string             `mapstructure:"raw_prefix"`
	ParsedPrefix string             `mapstructure:"parsed_prefix"`
	ReportPrefix string             `mapstructure:"report_prefix"`
}

// GCSStorageConfig holds the GCS bucket settings.
type GCSStorageConfig struct {
	Bucket string `mapstructure:"bucket"`
}

// LocalStorageConfig holds the filesystem blob store settings.
type LocalStorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// CatalogConfig points at the bot signature catalog document, either a local
// file path or a key in the configured blob store.
type CatalogConfig struct {
	Provider string `mapstructure:"provider"`
	Path     string `mapstructure:"path"`
}

// SummaryConfig selects where daily summaries are persisted.
type SummaryConfig struct {
	Provider string         `mapstructure:"provider"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig controls access to the relational summary store.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
}

// ReportConfig governs report windows and path rankings.
type ReportConfig struct {
	DaysBack            int  `mapstructure:"days_back"`
	TopPaths            int  `mapstructure:"top_paths"`
	IncludeUnclassified bool `mapstructure:"include_unclassified"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BOTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("source.provider", "local")
	v.SetDefault("source.template", "access.log.{date}.gz")
	v.SetDefault("source.max_days", 30)
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("storage.raw_prefix", "raw")
	v.SetDefault("storage.parsed_prefix", "parsed")
	v.SetDefault("storage.report_prefix", "reports")
	v.SetDefault("catalog.provider", "file")
	v.SetDefault("catalog.path", "bots.json")
	v.SetDefault("summary.provider", "blob")
	v.SetDefault("summary.postgres.table", "daily_summaries")
	v.SetDefault("pubsub.provider", "memory")
	v.SetDefault("report.days_back", 30)
	v.SetDefault("report.top_paths", 20)
	v.SetDefault("report.include_unclassified", false)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.Source.Provider {
	case "local":
		if c.Source.Local.Dir == "" {
			return fmt.Errorf("source.local.dir is required for the local provider")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown source.provider %q", c.Source.Provider)
	}
	if !strings.Contains(c.Source.Template, "{date}") {
		return fmt.Errorf("source.template must contain {date}")
	}
	if c.Source.MaxDays <= 0 {
		return fmt.Errorf("source.max_days must be > 0")
	}
	switch c.Storage.Provider {
	case "gcs":
		if c.Storage.GCS.Bucket == "" {
			return fmt.Errorf("storage.gcs.bucket is required for the gcs provider")
		}
	case "local":
		if c.Storage.Local.BaseDir == "" {
			return fmt.Errorf("storage.local.base_dir is required for the local provider")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage.provider %q", c.Storage.Provider)
	}
	switch c.Catalog.Provider {
	case "file", "blob":
	default:
		return fmt.Errorf("unknown catalog.provider %q", c.Catalog.Provider)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}
	switch c.Summary.Provider {
	case "blob":
	case "postgres":
		if c.Summary.Postgres.DSN == "" {
			return fmt.Errorf("summary.postgres.dsn is required for the postgres provider")
		}
	default:
		return fmt.Errorf("unknown summary.provider %q", c.Summary.Provider)
	}
	switch c.PubSub.Provider {
	case "pubsub":
		if c.PubSub.ProjectID == "" {
			return fmt.Errorf("pubsub.project_id is required for the pubsub provider")
		}
	case "memory", "noop":
	default:
		return fmt.Errorf("unknown pubsub.provider %q", c.PubSub.Provider)
	}
	if c.Report.DaysBack <= 0 {
		return fmt.Errorf("report.days_back must be > 0")
	}
	if c.Report.TopPaths <= 0 {
		return fmt.Errorf("report.top_paths must be > 0")
	}
	return nil
}
