package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.BatchConcurrency)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, ProviderLocal, cfg.LLMProvider)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eden.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
batch_concurrency: 5
fetch_timeout: 3s
allowed_origins: ["https://app.eden.test"]
`), 0o600))

	t.Setenv("BATCH_CONCURRENCY", "4")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.BatchConcurrency, "env overrides the file")
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.Equal(t, []string{"https://app.eden.test"}, cfg.AllowedOrigins)
	assert.Equal(t, path, cfg.FilePath)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.StoreBackend = "redis" }},
		{"unknown provider", func(c *Config) { c.LLMProvider = "bard" }},
		{"zero concurrency", func(c *Config) { c.BatchConcurrency = 0 }},
		{"anthropic without key", func(c *Config) { c.LLMProvider = ProviderAnthropic }},
		{"production without jwt secret", func(c *Config) { c.Environment = "production" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eden.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	w, err := NewWatcher(cfg, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan *Config, 1)
	w.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})

	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o600))

	select {
	case c := <-changed:
		assert.Equal(t, "warn", c.LogLevel)
		assert.Equal(t, "warn", w.Current().LogLevel)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}
}

func TestNewWatcherRequiresFile(t *testing.T) {
	_, err := NewWatcher(Default(), zap.NewNop())
	assert.Error(t, err)
}
