package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultStoreName = "MedicineDatabase"
	defaultStoreDir  = "data"
	defaultHTTPPort  = "8080"
	defaultSecret    = "dev_secret"
	defaultTicketTTL = "12h"
	defaultExportDir = "exports"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds application configuration values.
type Config struct {
	Store   StoreConfig   `toml:"store"`
	HTTP    HTTPConfig    `toml:"http"`
	Logging LoggingConfig `toml:"logging"`
	Gate    GateConfig    `toml:"gate"`
	Export  ExportConfig  `toml:"export"`
}

type StoreConfig struct {
	Driver string `toml:"driver"`
	Name   string `toml:"name"`
	Dir    string `toml:"dir"`
	DSN    string `toml:"dsn"`
}

type HTTPConfig struct {
	Port string `toml:"port"`
}

type LoggingConfig struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

// GateConfig configures the cosmetic form gate. It is a UI convenience and
// protects nothing.
type GateConfig struct {
	PassphraseHash string `toml:"passphrase_hash"`
	Secret         string `toml:"secret"`
	TicketTTL      string `toml:"ticket_ttl"`
}

// TTL parses TicketTTL; Load has already validated it.
func (g GateConfig) TTL() time.Duration {
	d, err := time.ParseDuration(g.TicketTTL)
	if err != nil {
		return 12 * time.Hour
	}
	return d
}

type ExportConfig struct {
	Driver    string `toml:"driver"`
	Format    string `toml:"format"`
	Dir       string `toml:"dir"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	PathStyle bool   `toml:"path_style"`
	// Static credentials; empty falls back to the default AWS chain.
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver: "sqlite",
			Name:   defaultStoreName,
			Dir:    defaultStoreDir,
		},
		HTTP: HTTPConfig{Port: defaultHTTPPort},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Gate: GateConfig{
			Secret:    defaultSecret,
			TicketTTL: defaultTicketTTL,
		},
		Export: ExportConfig{
			Driver: "fs",
			Format: "json",
			Dir:    defaultExportDir,
		},
	}
}

// Load reads configuration from an optional TOML file, then from .env and
// the process environment, which take precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"MEDSHELF_STORE_DRIVER":                &cfg.Store.Driver,
		"MEDSHELF_STORE_NAME":                  &cfg.Store.Name,
		"MEDSHELF_STORE_DIR":                   &cfg.Store.Dir,
		"DATABASE_DSN":                         &cfg.Store.DSN,
		"HTTP_PORT":                            &cfg.HTTP.Port,
		"MEDSHELF_LOG_LEVEL":                   &cfg.Logging.Level,
		"MEDSHELF_LOG_FORMAT":                  &cfg.Logging.Format,
		"MEDSHELF_LOG_FILE":                    &cfg.Logging.File,
		"MEDSHELF_GATE_HASH":                   &cfg.Gate.PassphraseHash,
		"SECRET":                               &cfg.Gate.Secret,
		"MEDSHELF_GATE_TICKET_TTL":             &cfg.Gate.TicketTTL,
		"MEDSHELF_EXPORT_DRIVER":               &cfg.Export.Driver,
		"MEDSHELF_EXPORT_FORMAT":               &cfg.Export.Format,
		"MEDSHELF_EXPORT_DIR":                  &cfg.Export.Dir,
		"MEDSHELF_EXPORT_S3_BUCKET":            &cfg.Export.Bucket,
		"MEDSHELF_EXPORT_S3_REGION":            &cfg.Export.Region,
		"MEDSHELF_EXPORT_S3_ENDPOINT":          &cfg.Export.Endpoint,
		"MEDSHELF_EXPORT_S3_ACCESS_KEY_ID":     &cfg.Export.AccessKeyID,
		"MEDSHELF_EXPORT_S3_SECRET_ACCESS_KEY": &cfg.Export.SecretAccessKey,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"MEDSHELF_LOG_MAX_SIZE_MB": &cfg.Logging.MaxSizeMB,
		"MEDSHELF_LOG_MAX_FILES":   &cfg.Logging.MaxFiles,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, key, v)
		}
		*dst = n
	}

	if v, ok := lookup("MEDSHELF_EXPORT_S3_PATH_STYLE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: MEDSHELF_EXPORT_S3_PATH_STYLE=%q", ErrInvalidConfig, v)
		}
		cfg.Export.PathStyle = b
	}
	return nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Store.Name) == "" && c.Store.DSN == "" {
			return fmt.Errorf("%w: store name is required", ErrInvalidConfig)
		}
	case "pgx":
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: DATABASE_DSN is required for the pgx driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.Store.Driver)
	}

	if _, err := strconv.Atoi(c.HTTP.Port); err != nil {
		return fmt.Errorf("%w: HTTP_PORT %q is not numeric", ErrInvalidConfig, c.HTTP.Port)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Logging.Format)
	}

	if d, err := time.ParseDuration(c.Gate.TicketTTL); err != nil || d <= 0 {
		return fmt.Errorf("%w: gate ticket ttl %q", ErrInvalidConfig, c.Gate.TicketTTL)
	}
	if c.Gate.Secret == "" {
		return fmt.Errorf("%w: gate secret is required", ErrInvalidConfig)
	}

	switch c.Export.Driver {
	case "fs":
	case "s3":
		if c.Export.Bucket == "" {
			return fmt.Errorf("%w: export bucket is required for the s3 driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown export driver %q", ErrInvalidConfig, c.Export.Driver)
	}
	switch c.Export.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("%w: export format %q", ErrInvalidConfig, c.Export.Format)
	}
	return nil
}
