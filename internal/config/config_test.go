package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:       AppConfig{Environment: "development"},
		Logger:    LoggerConfig{Level: "info"},
		Storage:   StorageConfig{DataPath: "/some/path"},
		Ledger:    LedgerConfig{Cap: 50},
		Inference: InferenceConfig{Timeout: time.Minute},
		Wallet:    WalletConfig{DefaultPeriodDays: 1, ChainIDs: []uint64{84532}},
	}
}

// noEnvFile points Load at a path that does not exist.
func noEnvFile(t *testing.T) string {
	return "-env-file=" + filepath.Join(t.TempDir(), "missing.env")
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true}, // case insensitive
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data path", func(c *Config) { c.Storage.DataPath = "" }},
		{"zero ledger cap", func(c *Config) { c.Ledger.Cap = 0 }},
		{"negative ledger cap", func(c *Config) { c.Ledger.Cap = -1 }},
		{"negative read timeout", func(c *Config) { c.Server.ReadTimeout = -time.Second }},
		{"zero inference timeout", func(c *Config) { c.Inference.Timeout = 0 }},
		{"zero spend limit period", func(c *Config) { c.Wallet.DefaultPeriodDays = 0 }},
		{"no chain ids", func(c *Config) { c.Wallet.ChainIDs = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Ledger.Cap = 0
	cfg.Wallet.ChainIDs = nil

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger cap")
	assert.Contains(t, err.Error(), "chain id")
}

func TestValidate_InMemoryAllowsEmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.DataPath = ""
	cfg.Storage.InMemory = true
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("DATA_PATH", "")
	t.Setenv("SERVER_ADVERTISE", "")

	cfg, err := Load([]string{noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, filepath.Join(home, "SubAccountNotes", "data"), cfg.Storage.DataPath)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, time.Duration(0), cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Server.Advertise)
	assert.Equal(t, 50, cfg.Ledger.Cap)
	assert.True(t, cfg.Notes.SeedSamples)
	assert.Empty(t, cfg.Inference.APIKey)
	assert.Equal(t, time.Minute, cfg.Inference.Timeout)
	assert.Equal(t, []uint64{84532, 8453}, cfg.Wallet.ChainIDs)
	assert.Equal(t, "0.01", cfg.Wallet.DefaultAllowance)
	assert.Equal(t, 1, cfg.Wallet.DefaultPeriodDays)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LEDGER_CAP", "10")
	t.Setenv("SERVER_PORT", "9000")

	cfg, err := Load([]string{noEnvFile(t), "-in-memory=true", "-log-level=debug", "-ledger-cap=20", "-advertise=true"})
	require.NoError(t, err)

	assert.True(t, cfg.Server.Advertise)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 20, cfg.Ledger.Cap)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.Storage.InMemory)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "# local settings\nexport CORS_ORIGINS=\"http://localhost:3000, https://demo.example\"\nSEED_SAMPLES=no\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

	// loadEnvFile only fills unset variables; register cleanup for them.
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("SEED_SAMPLES", "")

	cfg, err := Load([]string{"-env-file=" + envPath, "-data-path=" + dir})
	require.NoError(t, err)

	assert.Equal(t, []string{"http://localhost:3000", "https://demo.example"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Notes.SeedSamples)
	assert.Equal(t, dir, cfg.Storage.DataPath)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("bad duration", func(t *testing.T) {
		_, err := Load([]string{noEnvFile(t), "-in-memory=true", "-read-timeout=soon"})
		assert.Error(t, err)
	})

	t.Run("bad chain id", func(t *testing.T) {
		t.Setenv("WALLET_CHAIN_IDS", "base")
		_, err := Load([]string{noEnvFile(t), "-in-memory=true"})
		assert.Error(t, err)
	})

	t.Run("bad ledger cap", func(t *testing.T) {
		_, err := Load([]string{noEnvFile(t), "-in-memory=true", "-ledger-cap=many"})
		assert.ErrorContains(t, err, "ledger_cap")
	})

	t.Run("malformed env file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("JUST_A_KEY\n"), 0o600))
		_, err := Load([]string{"-env-file=" + path, "-in-memory=true"})
		assert.ErrorContains(t, err, "line 1")
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, err := Load([]string{"-library-path=/books"})
		assert.Error(t, err)
	})
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/notes", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "notes"), got)

	got, err = expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("/a/b/../c", "")
	require.NoError(t, err)
	assert.Equal(t, "/a/c", got)
}

func TestResolveDataPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ResolveDataPath("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "SubAccountNotes", "data"), got)

	got, err = ResolveDataPath("~/elsewhere")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "elsewhere"), got)
}
