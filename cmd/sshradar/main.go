package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xoelrdgz/sshradar/internal/app"
)

var (
	cfgFile  string
	logLevel string

	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "sshradar",
	Short: "SSH brute-force detection from the system log",
	Long: `sshradar follows the system log for failed SSH password attempts and
appends the source address to an alert file once an address reaches the
attempt threshold. A separate notifier process watches that file and shows a
desktop or terminal notification for every new alert.

Configuration:
  ALERT_FILE_PATH     alert file (default /tmp/bruteforce_alert.log)
  ATTEMPT_THRESHOLD   attempts per address before alerting (default 5)
  SSHRADAR_<KEY>      any other config key, e.g. SSHRADAR_SOURCE_TYPE=file`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sshradar %s\n", Version)
		fmt.Printf("Commit:  %s\n", Commit)
		fmt.Printf("Built:   %s\n", BuildTime)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if err := app.LoadDotEnv(); err != nil {
		log.Warn().Err(err).Msg("Error loading .env file")
	}

	v := viper.GetViper()
	app.SetDefaults(v)
	if err := app.ReadConfigFile(v, cfgFile); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}
	app.BindEnv(v)
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	switch strings.ToLower(viper.GetString("logging.level")) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if viper.GetBool("logging.console") {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// bindFlags binds a command's flags to config keys. Called from PreRunE so
// commands sharing a key do not overwrite each other's binding.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
