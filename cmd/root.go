// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	buildcmd "github.com/Rom-Forge/Forge/cmd/build"
	"github.com/Rom-Forge/Forge/cmd/doctor"
	"github.com/Rom-Forge/Forge/cmd/history"
	"github.com/Rom-Forge/Forge/cmd/search"
	"github.com/Rom-Forge/Forge/cmd/version"
	"github.com/Rom-Forge/Forge/pkg/config"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time via ldflags
	// -ldflags "-X github.com/Rom-Forge/Forge/cmd.Version=x.y.z"
	Version string

	logLevel    string
	useTUI      bool
	serverURL   string
	debugLogger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "Custom ROM build wizard and monitor",
	Long: `Forge - custom ROM build wizard and monitor

A CLI that guides you through assembling a custom Android ROM build
(device tree, kernel, vendor blobs, build variant) against a remote
builder service, then follows the build's progress and logs live.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize directories before any command runs
		if err := config.InitDirs(); err != nil {
			return err
		}

		// Load config files now that directories exist
		if err := config.LoadConfig(); err != nil {
			return err
		}

		// Update flag values from Viper (respects config file and env vars)
		useTUI = config.GetUseTUI()
		logLevel = config.GetLogLevel()

		// Handle disabled logging first
		if logLevel == "disabled" {
			log.SetOutput(io.Discard)
			return nil
		}

		// Configure log level (flag > env > config file > default)
		var level log.Level
		switch logLevel {
		case "debug":
			level = log.DebugLevel
		case "info":
			level = log.InfoLevel
		case "warn":
			level = log.WarnLevel
		case "error":
			level = log.ErrorLevel
		default:
			level = log.DebugLevel
		}

		// Always log to file in JSON format: the TUI owns the terminal, so
		// diagnostics (including swallowed poll failures) go to disk.
		logFile := filepath.Join(config.GlobalPaths.DataDir, "debug.log")
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}

		debugLogger = log.NewWithOptions(f, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "2006-01-02T15:04:05.000Z07:00",
			Level:           level,
			ReportCaller:    true,
			Formatter:       log.JSONFormatter,
		})
		log.SetDefault(debugLogger)

		return nil
	},
}

// Execute runs the root command, printing failures with the theme's error
// styling. Only genuinely unrecoverable errors land here.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		theme := config.CurrentTheme
		errorStyle := theme.ErrorStyle()
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("Error:"), err.Error())
		os.Exit(1)
	}
}

func init() {
	// Configure logging - will be redirected to file in PersistentPreRunE
	log.SetReportTimestamp(false)
	log.SetLevel(log.InfoLevel)

	// Initialize Viper configuration
	config.InitViper()

	// Add global flags
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "debug", "Log level: disabled, debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&useTUI, "use-tui", true, "Enable terminal UI mode")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server-url", config.DefaultServerURL, "Builder service base URL")

	// Bind flags to Viper for config file and environment variable support
	config.BindFlags(rootCmd.PersistentFlags())

	// Add subcommands using factory functions
	rootCmd.AddCommand(buildcmd.NewBuildCmd())
	rootCmd.AddCommand(doctor.NewDoctorCmd())
	rootCmd.AddCommand(history.NewHistoryCmd())
	rootCmd.AddCommand(search.NewSearchCmd())
	rootCmd.AddCommand(version.NewVersionCmd(Version))

	// Set custom help and usage functions
	rootCmd.SetHelpFunc(styledHelpFunc)
	rootCmd.SetUsageFunc(styledUsageFunc)
	rootCmd.SilenceUsage = true  // Don't show usage on errors
	rootCmd.SilenceErrors = true // We'll handle error printing ourselves
}

// GetDebugLogger returns the file-based debug logger if available, otherwise returns the default logger
func GetDebugLogger() *log.Logger {
	if debugLogger != nil {
		return debugLogger
	}
	return log.Default()
}
