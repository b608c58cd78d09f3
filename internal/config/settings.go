package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// setting binds one configuration value to its flag and environment key.
// Settings without a flag are environment only.
type setting struct {
	flag  string
	env   string
	def   string
	usage string
	bind  func(raw string) error
}

func (c *Config) settings() []setting {
	return []setting{
		{"env", "ENV", "development", "Environment (development, staging, production)", text(&c.App.Environment)},
		{"log-level", "LOG_LEVEL", "info", "Log level (debug, info, warn, error)", text(&c.Logger.Level)},
		{"data-path", "DATA_PATH", "", "Directory for the key-value store", text(&c.Storage.DataPath)},
		{"in-memory", "STORAGE_IN_MEMORY", "false", "Keep all data in memory", boolean(&c.Storage.InMemory)},

		{"port", "SERVER_PORT", "8080", "Server port", text(&c.Server.Port)},
		{"read-timeout", "SERVER_READ_TIMEOUT", "15s", "HTTP read timeout", duration(&c.Server.ReadTimeout)},
		{"write-timeout", "SERVER_WRITE_TIMEOUT", "0s", "HTTP write timeout", duration(&c.Server.WriteTimeout)},
		{"idle-timeout", "SERVER_IDLE_TIMEOUT", "60s", "HTTP idle timeout", duration(&c.Server.IdleTimeout)},
		{"cors-origins", "CORS_ORIGINS", "*", "Comma separated allowed origins", list(&c.Server.CORSOrigins)},
		{"advertise", "SERVER_ADVERTISE", "false", "Advertise the server via mDNS", boolean(&c.Server.Advertise)},

		{"ledger-cap", "LEDGER_CAP", "50", "Transactions kept per account", integer(&c.Ledger.Cap)},
		{"seed-samples", "SEED_SAMPLES", "true", "Seed sample public notes", boolean(&c.Notes.SeedSamples)},

		{"inference-api-key", "GROQ_API_KEY", "", "Chat completion API key", text(&c.Inference.APIKey)},
		{"inference-base-url", "INFERENCE_BASE_URL", "https://api.groq.com/openai/v1", "Chat completion API base URL", text(&c.Inference.BaseURL)},
		{"inference-timeout", "INFERENCE_TIMEOUT", "60s", "Chat completion timeout", duration(&c.Inference.Timeout)},
		{"", "INFERENCE_RPS", "1", "Chat requests per second per client", float(&c.Inference.RPS)},
		{"", "INFERENCE_BURST", "5", "Chat request burst per client", integer(&c.Inference.Burst)},

		{"wallet-rpc-url", "WALLET_RPC_URL", "", "Wallet JSON-RPC endpoint", text(&c.Wallet.RPCURL)},
		{"", "WALLET_APP_NAME", "My Sub Account Demo", "App name shown by the wallet", text(&c.Wallet.AppName)},
		{"", "WALLET_KEYS_URL", "https://keys-dev.coinbase.com/connect", "Wallet keys popup URL", text(&c.Wallet.KeysURL)},
		{"", "WALLET_CHAIN_IDS", "84532,8453", "Supported chain ids", chainIDs(&c.Wallet.ChainIDs)},
		{"spend-limit", "SPEND_LIMIT", "0.01", "Default spend limit allowance in ETH", text(&c.Wallet.DefaultAllowance)},
		{"spend-limit-days", "SPEND_LIMIT_DAYS", "1", "Default spend limit period in days", integer(&c.Wallet.DefaultPeriodDays)},
	}
}

func text(dst *string) func(string) error {
	return func(raw string) error {
		*dst = strings.TrimSpace(raw)
		return nil
	}
}

// boolean accepts true, 1 and yes in any case; anything else is false.
func boolean(dst *bool) func(string) error {
	return func(raw string) error {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true", "1", "yes":
			*dst = true
		default:
			*dst = false
		}
		return nil
	}
}

func integer(dst *int) func(string) error {
	return func(raw string) (err error) {
		*dst, err = strconv.Atoi(strings.TrimSpace(raw))
		return err
	}
}

func float(dst *float64) func(string) error {
	return func(raw string) (err error) {
		*dst, err = strconv.ParseFloat(strings.TrimSpace(raw), 64)
		return err
	}
}

func duration(dst *time.Duration) func(string) error {
	return func(raw string) (err error) {
		*dst, err = time.ParseDuration(strings.TrimSpace(raw))
		return err
	}
}

func list(dst *[]string) func(string) error {
	return func(raw string) error {
		*dst = splitList(raw)
		return nil
	}
}

func chainIDs(dst *[]uint64) func(string) error {
	return func(raw string) error {
		parts := splitList(raw)
		ids := make([]uint64, 0, len(parts))
		for _, p := range parts {
			id, err := strconv.ParseUint(p, 10, 64)
			if err != nil {
				return fmt.Errorf("chain id %q: %w", p, err)
			}
			ids = append(ids, id)
		}
		*dst = ids
		return nil
	}
}

func splitList(value string) []string {
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ResolveDataPath expands path to an absolute store directory. An empty path
// selects ~/SubAccountNotes/data.
func ResolveDataPath(path string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return expandPath(path, filepath.Join(home, "SubAccountNotes", "data"))
}

// expandPath expands a leading ~/ and makes path absolute. An empty path
// yields fallback unchanged.
func expandPath(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locate home directory: %w", err)
		}
		path = filepath.Join(home, rest)
	}
	return filepath.Abs(path)
}

// loadEnvFile sets KEY=value pairs from path for keys not already in the
// environment. Blank lines and # comments are skipped; values may be quoted.
func loadEnvFile(path string) error {
	f, err := os.Open(path) //#nosec G304 -- path comes from the operator
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("line %d: expected KEY=value", n)
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, strings.Trim(strings.TrimSpace(value), `"'`)); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
	}
	return scanner.Err()
}
