package app

import (
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	DefaultAlertFilePath = "/tmp/bruteforce_alert.log"
	DefaultThreshold     = 5
	DefaultIdleInterval  = time.Second

	SourceJournal = "journal"
	SourceFile    = "file"
	SourceDemo    = "demo"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	AlertFilePath string
	AlertJSONPath string
	Threshold     int
	IdleInterval  time.Duration

	Source   SourceConfig
	Metrics  MetricsConfig
	Notifier NotifierConfig
	Logging  LoggingConfig
}

type SourceConfig struct {
	Type           string
	FilePath       string
	FilePoll       bool
	JournalCommand string
	JournalUnits   []string
	BufferSize     int
	DemoRate       int
}

type MetricsConfig struct {
	Enabled bool
	Addr    string
}

type NotifierConfig struct {
	Command string
}

type LoggingConfig struct {
	Level   string
	Console bool
}

// SetDefaults registers every key sshradar reads, with its default.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("alert.file_path", DefaultAlertFilePath)
	v.SetDefault("alert.json_path", "")
	v.SetDefault("detection.threshold", DefaultThreshold)
	v.SetDefault("detection.idle_interval", DefaultIdleInterval)
	v.SetDefault("source.type", SourceJournal)
	v.SetDefault("source.file.path", "/var/log/auth.log")
	v.SetDefault("source.file.poll", false)
	v.SetDefault("source.journal.command", "journalctl")
	v.SetDefault("source.journal.units", []string{})
	v.SetDefault("source.buffer_size", 1000)
	v.SetDefault("source.demo.rate", 20)
	v.SetDefault("output.metrics.enabled", false)
	v.SetDefault("output.metrics.addr", ":9090")
	v.SetDefault("notifier.command", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
}

// BindEnv maps the two documented variables and exposes every other key as
// SSHRADAR_<KEY>, e.g. SSHRADAR_SOURCE_TYPE.
func BindEnv(v *viper.Viper) {
	_ = v.BindEnv("alert.file_path", "ALERT_FILE_PATH", "SSHRADAR_ALERT_FILE_PATH")
	_ = v.BindEnv("detection.threshold", "ATTEMPT_THRESHOLD", "SSHRADAR_DETECTION_THRESHOLD")

	v.SetEnvPrefix("SSHRADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadDotEnv loads KEY=value files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return errors.Wrapf(err, "load %s", f)
		}
	}
	return nil
}

// ReadConfigFile reads cfgFile, or searches the standard locations when it
// is empty. Not finding a config file in the search path is fine.
func ReadConfigFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/sshradar")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "read config file")
	}
	log.Debug().Str("file", v.ConfigFileUsed()).Msg("Loaded config file")
	return nil
}

func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		AlertFilePath: v.GetString("alert.file_path"),
		AlertJSONPath: v.GetString("alert.json_path"),
		Threshold:     v.GetInt("detection.threshold"),
		IdleInterval:  v.GetDuration("detection.idle_interval"),
		Source: SourceConfig{
			Type:           strings.ToLower(v.GetString("source.type")),
			FilePath:       v.GetString("source.file.path"),
			FilePoll:       v.GetBool("source.file.poll"),
			JournalCommand: v.GetString("source.journal.command"),
			JournalUnits:   v.GetStringSlice("source.journal.units"),
			BufferSize:     v.GetInt("source.buffer_size"),
			DemoRate:       v.GetInt("source.demo.rate"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("output.metrics.enabled"),
			Addr:    v.GetString("output.metrics.addr"),
		},
		Notifier: NotifierConfig{
			Command: v.GetString("notifier.command"),
		},
		Logging: LoggingConfig{
			Level:   v.GetString("logging.level"),
			Console: v.GetBool("logging.console"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.AlertFilePath == "" {
		return &ConfigValidationError{Field: "alert.file_path", Value: c.AlertFilePath, Reason: "must not be empty"}
	}
	if c.Threshold < 1 {
		return &ConfigValidationError{Field: "detection.threshold", Value: c.Threshold, Reason: "must be a positive integer"}
	}
	if c.IdleInterval <= 0 {
		return &ConfigValidationError{Field: "detection.idle_interval", Value: c.IdleInterval, Reason: "must be positive"}
	}
	switch c.Source.Type {
	case SourceJournal, SourceDemo:
	case SourceFile:
		if c.Source.FilePath == "" {
			return &ConfigValidationError{Field: "source.file.path", Value: c.Source.FilePath, Reason: "required for file source"}
		}
	default:
		return &ConfigValidationError{Field: "source.type", Value: c.Source.Type, Reason: "must be journal, file or demo"}
	}
	return nil
}

type ConfigValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s = %v - %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// ThresholdSetter is implemented by Engine.
type ThresholdSetter interface {
	SetThreshold(n int)
}

// WatchThreshold re-reads the config file on change and applies a new
// detection.threshold to target. Invalid values are rejected and the current
// threshold is kept. Only meaningful when a config file was loaded.
func WatchThreshold(v *viper.Viper, target ThresholdSetter) {
	if v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info().Str("file", e.Name).Str("op", e.Op.String()).Msg("Config file changed, reloading threshold")

		threshold := v.GetInt("detection.threshold")
		if threshold < 1 {
			log.Error().Int("threshold", threshold).Msg("Invalid threshold in reloaded config, keeping current")
			return
		}
		target.SetThreshold(threshold)
	})
	v.WatchConfig()
	log.Info().Str("config", v.ConfigFileUsed()).Msg("Watching config file for threshold changes")
}
