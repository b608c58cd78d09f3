// Package config loads notes server settings from flags, the environment
// and an optional .env file, in that order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
)

var (
	environments = []string{"development", "staging", "production"}
	logLevels    = []string{"debug", "info", "warn", "error"}
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Storage   StorageConfig
	Server    ServerConfig
	Ledger    LedgerConfig
	Notes     NotesConfig
	Inference InferenceConfig
	Wallet    WalletConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig holds key-value store configuration.
type StorageConfig struct {
	DataPath string
	InMemory bool // DataPath is ignored when set
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration // 0 keeps SSE streams open
	IdleTimeout  time.Duration
	CORSOrigins  []string
	Advertise    bool // Announce the server on the local network via mDNS
}

// LedgerConfig holds transaction ledger configuration.
type LedgerConfig struct {
	Cap int // Records kept per account
}

// NotesConfig holds note repository configuration.
type NotesConfig struct {
	SeedSamples bool // Write the sample public notes when the feed is empty
}

// InferenceConfig holds chat completion API configuration.
type InferenceConfig struct {
	APIKey  string // Chat is disabled without it
	BaseURL string
	Timeout time.Duration
	RPS     float64
	Burst   int
}

// WalletConfig holds wallet provider and connector configuration.
type WalletConfig struct {
	RPCURL            string // Wallet actions fail with NOT_CONFIGURED without it
	AppName           string
	KeysURL           string
	ChainIDs          []uint64
	DefaultAllowance  string // ETH
	DefaultPeriodDays int
}

// LoadConfig loads configuration from the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load resolves every setting from args, then the environment, then the
// .env file named by -env-file, then its default.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	settings := cfg.settings()

	fs := flag.NewFlagSet("notes-server", flag.ContinueOnError)
	flags := make(map[string]*string, len(settings))
	for _, s := range settings {
		if s.flag != "" {
			flags[s.env] = fs.String(s.flag, "", fmt.Sprintf("%s (env %s, default %q)", s.usage, s.env, s.def))
		}
	}
	envFile := fs.String("env-file", ".env", "Path to .env file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// A missing .env file is normal.
	if err := loadEnvFile(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", *envFile, err)
	}

	for _, s := range settings {
		raw := s.def
		if v := os.Getenv(s.env); v != "" {
			raw = v
		}
		if f := flags[s.env]; f != nil && *f != "" {
			raw = *f
		}
		if err := s.bind(raw); err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(s.env), raw, err)
		}
	}

	if !cfg.Storage.InMemory {
		path, err := ResolveDataPath(cfg.Storage.DataPath)
		if err != nil {
			return nil, fmt.Errorf("invalid data path: %w", err)
		}
		cfg.Storage.DataPath = path
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(slices.Contains(environments, c.App.Environment),
		"invalid environment %q (want one of %s)", c.App.Environment, strings.Join(environments, ", "))
	check(slices.Contains(logLevels, strings.ToLower(c.Logger.Level)),
		"invalid log level %q (want one of %s)", c.Logger.Level, strings.Join(logLevels, ", "))
	check(c.Storage.InMemory || c.Storage.DataPath != "", "data path is empty")
	check(c.Ledger.Cap > 0, "ledger cap must be positive, got %d", c.Ledger.Cap)
	check(c.Server.ReadTimeout >= 0 && c.Server.WriteTimeout >= 0 && c.Server.IdleTimeout >= 0,
		"server timeouts cannot be negative")
	check(c.Inference.Timeout > 0, "inference timeout must be positive")
	check(c.Wallet.DefaultPeriodDays > 0, "spend limit period must be at least one day, got %d", c.Wallet.DefaultPeriodDays)
	check(len(c.Wallet.ChainIDs) > 0, "at least one wallet chain id is required")

	return errors.Join(errs...)
}
