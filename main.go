// package main is the entry point for the WebRTC autoroller
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	configcmd "github.com/webrtc/autoroller/cmd/config"
	rollcmd "github.com/webrtc/autoroller/cmd/roll"
	"github.com/webrtc/autoroller/internal/config"
	"github.com/webrtc/autoroller/internal/roll"
)

func main() {
	var configFile string
	var checkout string
	var logLevel string
	var logFormat string
	var verbose bool

	rootCmd := rollcmd.NewRollCmd(&configFile, &checkout, config.LoadOrDefault)
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		if verbose {
			logLevel = "debug"
		}
		setupLogger(logLevel, logFormat)
	}

	// Add global flags
	rootCmd.PersistentFlags().StringVar(&checkout, "chromium-checkout", "", "Chromium checkout directory (defaults to the current directory)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultFile, "Configuration file path, relative to the checkout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "error", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&logFormat, "log-format", "f", "text", "Log format (text, json)")

	rootCmd.AddCommand(configcmd.NewConfigCmd(&configFile, &checkout, config.ReadConfig, config.SaveConfig))

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Roll failed", "error", err)
		os.Exit(roll.ExitCode(err))
	}
}

func setupLogger(level, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelError
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}

	slog.SetDefault(slog.New(handler))
}
