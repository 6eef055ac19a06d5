package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xoelrdgz/sshradar/internal/adapters/detection"
	"github.com/xoelrdgz/sshradar/internal/adapters/input"
	"github.com/xoelrdgz/sshradar/internal/adapters/output"
	"github.com/xoelrdgz/sshradar/internal/app"
	"github.com/xoelrdgz/sshradar/internal/ports"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Watch the system log for SSH brute-force attempts",
	Long: `Follow the system log from its current end and append the address of
every host that reaches the failed-password threshold to the alert file.
Existing log history is never scanned.

Examples:
  sshradar detect
  sshradar detect --threshold 3 --alert-file /var/lib/sshradar/alerts.log
  sshradar detect --source file --log /var/log/auth.log
  sshradar detect --source demo --metrics`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, map[string]string{
			"alert-file":   "alert.file_path",
			"threshold":    "detection.threshold",
			"source":       "source.type",
			"log":          "source.file.path",
			"metrics":      "output.metrics.enabled",
			"metrics-addr": "output.metrics.addr",
			"json-log":     "alert.json_path",
		})
	},
	RunE: runDetect,
}

func init() {
	f := detectCmd.Flags()
	f.String("alert-file", "", "alert file the addresses are appended to")
	f.Int("threshold", 0, "failed attempts per address before alerting")
	f.String("source", "", "event source: journal, file or demo")
	f.StringP("log", "l", "", "auth log to follow with --source file")
	f.Bool("metrics", false, "serve Prometheus metrics and /ready")
	f.String("metrics-addr", "", "metrics listen address")
	f.String("json-log", "", "also write alerts as JSON lines to this file")
}

func runDetect(cmd *cobra.Command, args []string) error {
	setupLogging()

	if cmd.Flags().Changed("log") && !cmd.Flags().Changed("source") {
		viper.Set("source.type", app.SourceFile)
	}

	cfg, err := app.LoadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, start, err := buildSource(cfg)
	if err != nil {
		return err
	}

	sink, err := buildSink(cfg)
	if err != nil {
		source.Close()
		return err
	}

	engine := app.NewEngine(source, detection.NewFailedPasswordMatcher(), sink, app.EngineConfig{
		Threshold:    cfg.Threshold,
		IdleInterval: cfg.IdleInterval,
	})

	if cfg.Metrics.Enabled {
		promMetrics := output.NewPrometheusMetrics("sshradar", engine.InternalMetrics())
		engine.AddAlertSubscriber(promMetrics)
		engine.AddProcessingObserver(promMetrics)

		metricsConfig := output.DefaultMetricsConfig()
		metricsConfig.Addr = cfg.Metrics.Addr
		if err := promMetrics.StartServer(metricsConfig, output.NewHealthChecker(engine)); err != nil {
			log.Warn().Err(err).Msg("Failed to start metrics server")
		} else {
			log.Debug().Str("addr", metricsConfig.Addr).Msg("Metrics server started")
		}
		defer promMetrics.StopServer()
	}

	app.WatchThreshold(viper.GetViper(), engine)

	log.Info().
		Str("source", cfg.Source.Type).
		Int("threshold", cfg.Threshold).
		Msg("sshradar started")

	if start != nil {
		go start(ctx)
	}
	return engine.Run(ctx)
}

// buildSource returns the configured event source and, for the demo source,
// the producer to run alongside the engine.
func buildSource(cfg app.Config) (ports.EventSource, func(context.Context), error) {
	switch cfg.Source.Type {
	case app.SourceJournal:
		return input.NewJournalSource(input.JournalSourceConfig{
			Command:    cfg.Source.JournalCommand,
			Units:      cfg.Source.JournalUnits,
			BufferSize: cfg.Source.BufferSize,
		}), nil, nil

	case app.SourceFile:
		return input.NewFileSource(input.FileSourceConfig{
			Path:       cfg.Source.FilePath,
			BufferSize: cfg.Source.BufferSize,
			Poll:       cfg.Source.FilePoll,
		}, input.NewSyslogParser()), nil, nil

	case app.SourceDemo:
		source := input.NewMemorySource()
		demo := input.DefaultDemoConfig()
		if cfg.Source.DemoRate > 0 {
			demo.Rate = cfg.Source.DemoRate
		}
		gen := input.NewDemoGenerator(source, demo)
		log.Info().Int("rate", demo.Rate).Msg("Demo mode: generating synthetic sshd traffic")
		return source, gen.Run, nil
	}
	return nil, nil, errors.Wrapf(app.ErrInvalidConfig, "unknown source type %q", cfg.Source.Type)
}

func buildSink(cfg app.Config) (ports.AlertSink, error) {
	fileSink, err := output.NewFileSink(output.FileSinkConfig{Path: cfg.AlertFilePath})
	if err != nil {
		return nil, err
	}
	log.Info().Str("alert_file", fileSink.Path()).Msg("Alert feed ready")
	if cfg.AlertJSONPath == "" {
		return fileSink, nil
	}

	jsonSink, err := output.NewJSONSink(output.JSONSinkConfig{FilePath: cfg.AlertJSONPath})
	if err != nil {
		fileSink.Close()
		return nil, errors.Wrap(err, "create JSON alert log")
	}
	return output.NewMultiSink(fileSink, jsonSink), nil
}
