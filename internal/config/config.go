// Package config loads racetrack settings from defaults, a YAML file,
// RACETRACK_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "RACETRACK_"

// Default values.
const (
	DefaultDatabasePath = "racetrack.db"
	DefaultDriver       = "sqlite3"
	DefaultFormat       = "csv"
	DefaultDocumentName = "racetrack"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultOutput       = "text"
)

// configFiles are looked up in the working directory when no file is given.
var configFiles = []string{"racetrack.yaml", "racetrack.yml"}

// Config holds every setting.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Transfer TransferConfig `koanf:"transfer"`
	Log      LogConfig      `koanf:"log"`
	// Output is the command output format, text or json.
	Output string `koanf:"output"`
}

// DatabaseConfig selects the SQLite database.
type DatabaseConfig struct {
	Path string `koanf:"path"`
	// Driver is sqlite3 (cgo) or sqlite (pure Go).
	Driver string `koanf:"driver"`
}

// TransferConfig holds export and import settings.
type TransferConfig struct {
	Format          string `koanf:"format"`
	DocumentName    string `koanf:"document_name"`
	AllowIncomplete bool   `koanf:"allow_incomplete"`
	Parallelism     int    `koanf:"parallelism"`
	MaxPasses       int    `koanf:"max_passes"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"db":               "database.path",
	"driver":           "database.driver",
	"format":           "transfer.format",
	"document-name":    "transfer.document_name",
	"allow-incomplete": "transfer.allow_incomplete",
	"parallelism":      "transfer.parallelism",
	"max-passes":       "transfer.max_passes",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"output":           "output",
}

func defaults() map[string]any {
	return map[string]any{
		"database.path":             DefaultDatabasePath,
		"database.driver":           DefaultDriver,
		"transfer.format":           DefaultFormat,
		"transfer.document_name":    DefaultDocumentName,
		"transfer.allow_incomplete": false,
		"transfer.parallelism":      1,
		"transfer.max_passes":       0,
		"log.level":                 DefaultLogLevel,
		"log.format":                DefaultLogFormat,
		"output":                    DefaultOutput,
	}
}

// Load builds the configuration. cfgFile names an explicit YAML file;
// when empty, racetrack.yaml or racetrack.yml in the working directory is
// used if present. Only flags that were set on the command line override
// other sources. Load returns the path of the file it read, if any.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("load defaults: %w", err)
	}

	used, err := findConfigFile(cfgFile)
	if err != nil {
		return nil, "", err
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("read config file %s: %w", used, err)
		}
	}

	// RACETRACK_TRANSFER_DOCUMENT_NAME -> transfer.document_name
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, "", fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, used, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + rest
}

func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	for _, name := range configFiles {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	check := func(name, value string, allowed ...string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("invalid %s %q: must be one of %s", name, value, strings.Join(allowed, ", ")))
		}
	}
	check("database.driver", c.Database.Driver, "sqlite3", "sqlite")
	check("transfer.format", strings.ToLower(c.Transfer.Format), "csv", "xml", "yaml")
	check("log.level", strings.ToLower(c.Log.Level), "debug", "info", "warn", "error")
	check("log.format", c.Log.Format, "text", "json")
	check("output", c.Output, "text", "json")
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Transfer.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("invalid transfer.parallelism %d: must be at least 1", c.Transfer.Parallelism))
	}
	if c.Transfer.MaxPasses < 0 {
		errs = append(errs, fmt.Errorf("invalid transfer.max_passes %d: must not be negative", c.Transfer.MaxPasses))
	}
	return errors.Join(errs...)
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
