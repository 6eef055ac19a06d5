package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(newViper())
	require.NoError(t, err)

	assert.Equal(t, "/tmp/bruteforce_alert.log", cfg.AlertFilePath)
	assert.Equal(t, 5, cfg.Threshold)
	assert.Equal(t, time.Second, cfg.IdleInterval)
	assert.Equal(t, SourceJournal, cfg.Source.Type)
	assert.Equal(t, "journalctl", cfg.Source.JournalCommand)
	assert.Empty(t, cfg.AlertJSONPath)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("ALERT_FILE_PATH", "/var/run/alerts.log")
	t.Setenv("ATTEMPT_THRESHOLD", "7")
	t.Setenv("SSHRADAR_SOURCE_TYPE", "FILE")
	t.Setenv("SSHRADAR_DETECTION_IDLE_INTERVAL", "250ms")

	cfg, err := LoadConfig(newViper())
	require.NoError(t, err)

	assert.Equal(t, "/var/run/alerts.log", cfg.AlertFilePath)
	assert.Equal(t, 7, cfg.Threshold)
	assert.Equal(t, SourceFile, cfg.Source.Type)
	assert.Equal(t, 250*time.Millisecond, cfg.IdleInterval)
}

func TestLoadConfigPrefixedAliases(t *testing.T) {
	t.Setenv("SSHRADAR_DETECTION_THRESHOLD", "3")

	cfg, err := LoadConfig(newViper())
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Threshold)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			AlertFilePath: "/tmp/a.log",
			Threshold:     5,
			IdleInterval:  time.Second,
			Source:        SourceConfig{Type: SourceJournal},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty alert path", func(c *Config) { c.AlertFilePath = "" }, "alert.file_path"},
		{"zero threshold", func(c *Config) { c.Threshold = 0 }, "detection.threshold"},
		{"negative threshold", func(c *Config) { c.Threshold = -2 }, "detection.threshold"},
		{"zero idle interval", func(c *Config) { c.IdleInterval = 0 }, "detection.idle_interval"},
		{"unknown source", func(c *Config) { c.Source.Type = "kafka" }, "source.type"},
		{"file source without path", func(c *Config) { c.Source.Type = SourceFile }, "source.file.path"},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			var verr *ConfigValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestLoadConfigRejectsBadThreshold(t *testing.T) {
	t.Setenv("ATTEMPT_THRESHOLD", "0")

	_, err := LoadConfig(newViper())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadDotEnv(t *testing.T) {
	const key = "SSHRADAR_TEST_DOTENV_THRESHOLD"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=9\n"), 0o600))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "9", os.Getenv(key))
}

func TestReadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
alert:
  file_path: /srv/alerts.log
detection:
  threshold: 12
source:
  type: demo
  demo:
    rate: 50
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	v := newViper()
	require.NoError(t, ReadConfigFile(v, path))
	cfg, err := LoadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "/srv/alerts.log", cfg.AlertFilePath)
	assert.Equal(t, 12, cfg.Threshold)
	assert.Equal(t, SourceDemo, cfg.Source.Type)
	assert.Equal(t, 50, cfg.Source.DemoRate)
}

type thresholdRecorder struct{ values []int }

func (r *thresholdRecorder) SetThreshold(n int) { r.values = append(r.values, n) }

func TestWatchThresholdWithoutConfigFile(t *testing.T) {
	rec := &thresholdRecorder{}
	WatchThreshold(newViper(), rec)
	assert.Empty(t, rec.values)
}
