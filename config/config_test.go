package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/iwls/spectrum"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, spectrum.Band24, cfg.SpectrumBand())
	assert.Equal(t, time.Second, cfg.WatchInterval)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "iwls.yaml")
	data := []byte(`
interface: wlan1
backend: iw
band: all
watch_interval: 5s
upload:
  endpoint: https://example.com/ingest
  api_key: secret
  loop: office
mqtt:
  broker: tcp://localhost:1883
log:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "wlan1", cfg.Interface)
	assert.Equal(t, BackendIW, cfg.Backend)
	assert.Equal(t, spectrum.BandAll, cfg.SpectrumBand())
	assert.Equal(t, 5*time.Second, cfg.WatchInterval)
	assert.Equal(t, "office", cfg.Upload.Loop)
	assert.Equal(t, "iwls/surveys", cfg.MQTT.Topic)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched sections keep their defaults
	assert.Equal(t, 5, cfg.Probe.PingCount)
}

func TestLoadLeavesValidationToCaller(t *testing.T) {
	t.Setenv("IWLS_BAND", "5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "5", cfg.Band)
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalid))

	cfg.Band = BandAll
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"backend", func(c *Config) { c.Backend = "nl80211" }},
		{"band", func(c *Config) { c.Band = "5" }},
		{"interval", func(c *Config) { c.WatchInterval = time.Millisecond }},
		{"endpoint without key", func(c *Config) { c.Upload.Endpoint = "https://example.com" }},
		{"endpoint url", func(c *Config) {
			c.Upload.Endpoint = "not a url"
			c.Upload.APIKey = "k"
			c.Upload.Loop = "l"
		}},
		{"qos", func(c *Config) { c.MQTT.QoS = 3 }},
		{"metrics addr", func(c *Config) { c.MetricsAddr = "nope" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"IWLS_INTERFACE": "wlp2s0",
		"IWLS_BAND":      "all",
		"ENDPOINT_URL":   "https://example.com/ingest",
		"API_KEY":        "k",
		"LOOP":           "home",
	}
	cfg := Default()
	cfg.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "wlp2s0", cfg.Interface)
	assert.Equal(t, BandAll, cfg.Band)
	assert.Equal(t, "home", cfg.Upload.Loop)
	assert.Equal(t, BackendWPA, cfg.Backend)
	assert.NoError(t, cfg.Validate())
}
