// Command fmclient is the radio playback client. It polls the shared radio
// database for the desired music and pending alerts, plays streams through an
// external player, and speaks alerts through a configurable TTS backend.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// Flag values that override the corresponding config fields when set.
var (
	flagConfig          string
	flagDSN             string
	flagStatePath       string
	flagMusicID         int64
	flagMetricsAddr     string
	flagLogLevel        string
	flagNoTTS           bool
	flagNoDurationProbe bool
)

var rootCmd = &cobra.Command{
	Use:           "fmclient",
	Short:         "Radio playback client driven by a shared database",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flagConfig, "config", "config.yaml", "path to the YAML configuration file")
	f.StringVar(&flagDSN, "dsn", "", "database connection string (overrides config)")
	f.StringVar(&flagStatePath, "state", "", "client state file path (overrides config)")
	f.Int64Var(&flagMusicID, "music-id", 0, "pin playback to one music row (overrides config)")
	f.StringVar(&flagMetricsAddr, "metrics-addr", "", "metrics/health listen address (overrides config)")
	f.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	f.BoolVar(&flagNoTTS, "no-tts", false, "disable all speech output")
	f.BoolVar(&flagNoDurationProbe, "no-duration-detect", false, "disable media duration probing")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fmclient: %v\n", err)
		os.Exit(1)
	}
}
