// Package cli provides the command-line interface for medilink.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/medilink-console/internal/client"
	"github.com/raphaelgruber/medilink-console/internal/config"
	"github.com/raphaelgruber/medilink-console/internal/metrics"
	"github.com/raphaelgruber/medilink-console/internal/session"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	showStats bool
	plain     bool

	// Global config and API client
	cfg       config.Config
	logger    *slog.Logger
	closeLog  func() error
	collector *metrics.Collector
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "medilink",
	Short: "Emergency incident console for the MediLink API",
	Long: `Medilink is an incident console for the MediLink emergency API.

It turns free-text emergency descriptions into coordinated actions:
biometric patient lookup, hospital allocation, medical-history sharing
and plain-language jargon translation.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel, usesTUI(cmd))
		slog.SetDefault(logger)

		collector = metrics.NewCollector()
		apiClient = client.New(cfg.APIBaseURL, cfg.APITimeout, collector, logger)
		logger.Debug("api client ready", "url", apiClient.BaseURL())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if showStats && collector != nil {
			fmt.Println()
			printStats(os.Stdout, collector.Snapshot())
		}
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// SIGINT and SIGTERM cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&showStats, "stats", false, "print API call statistics when done")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "line output even on a terminal")

	// Add subcommands
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(hospitalsCmd)
	rootCmd.AddCommand(patientsCmd)
	rootCmd.AddCommand(identifyCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(allocateCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("medilink %s\n", Version)
	},
}

// interactive reports whether the full-screen console can be used.
func interactive() bool {
	return !plain && term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// usesTUI reports whether cmd takes over the terminal, in which case logs
// must not go to stderr.
func usesTUI(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "console", "demo":
		return interactive()
	}
	return false
}

// sessionOptions maps the loaded config onto session options.
func sessionOptions(c config.Config, l *slog.Logger) session.Options {
	return session.Options{
		Pacing:        session.DefaultPacing().Scaled(c.PacingScale),
		SettleDelay:   c.SettleDelay,
		ToastTTL:      c.ToastTTL,
		CallTimeout:   c.CallTimeout,
		DemoPatientID: c.DemoPatientID,
		Logger:        l,
	}
}

// newSession creates a session against the configured API and loads the
// hospital directory. A failed directory load is logged, not fatal.
func newSession(ctx context.Context) *session.Session {
	sess := session.New(apiClient, sessionOptions(cfg, logger))
	if err := sess.Refresh(ctx); err != nil {
		logger.Warn("directory refresh failed", "error", client.ErrorMessage(err))
	}
	return sess
}
