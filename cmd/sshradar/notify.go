package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xoelrdgz/sshradar/internal/notifier"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Show a notification for every new alert",
	Long: `Watch the alert file written by 'sshradar detect' and render a
notification naming the address on its last line whenever it changes. The
notification is printed to the terminal and, with --command, also handed to
a desktop notifier as "<command> <title> <message>".

Examples:
  sshradar notify
  sshradar notify --command notify-send
  sshradar notify --alert-file /var/lib/sshradar/alerts.log --command "notify-send -u critical"`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, map[string]string{
			"alert-file": "alert.file_path",
			"command":    "notifier.command",
		})
	},
	RunE: runNotify,
}

func init() {
	f := notifyCmd.Flags()
	f.String("alert-file", "", "alert file to watch")
	f.String("command", "", "desktop notifier command, e.g. notify-send")
}

func runNotify(cmd *cobra.Command, args []string) error {
	setupLogging()

	renderers := notifier.MultiRenderer{notifier.NewConsoleRenderer(os.Stdout)}
	if line := viper.GetString("notifier.command"); line != "" {
		r, err := notifier.ParseCommand(line)
		if err != nil {
			return err
		}
		renderers = append(renderers, r)
	}

	watcher, err := notifier.NewWatcher(viper.GetString("alert.file_path"), renderers)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("file", watcher.Path()).Int("renderers", len(renderers)).Msg("sshradar notifier started")
	return watcher.Run(ctx)
}
