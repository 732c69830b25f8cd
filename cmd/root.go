package cmd

import (
	"agent-browser/config"
	"agent-browser/engine/chromium"
	"agent-browser/session"
	"agent-browser/stealth"
	"agent-browser/utils"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg       *config.Config
	catalogue *stealth.Catalogue
)

var rootCmd = &cobra.Command{
	Use:           "agent-browser",
	Short:         "Drive Chrome with anti-fingerprinting init scripts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			loaded.LogFormat = logFormat
		}

		logger, err := utils.NewLogger(loaded.LogLevel, loaded.LogFormat)
		if err != nil {
			return err
		}
		utils.SetLogger(logger)

		cfg = loaded
		catalogue = stealth.DefaultCatalogue(cfg.StealthProfile())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		utils.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "console or json")

	rootCmd.AddCommand(newProbeCmd(), newOpenCmd(), newDevicesCmd())
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// newSession builds an unlaunched session sharing the process-wide catalogue.
func newSession() *session.Manager {
	logger := utils.L()
	launcher := chromium.NewLauncher(cfg.Chromium(), logger)
	return session.New(launcher, catalogue, session.WithLogger(logger))
}

func loggerFor(name string) *zap.Logger {
	return utils.L().Named(name)
}
