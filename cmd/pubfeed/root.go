// ABOUTME: Root Cobra command and global flags
// ABOUTME: Loads .env and YAML configuration and sets up the stderr logger

package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/pubfeed/internal/config"
)

var (
	cfgPath  string
	logLevel string
	verbose  bool
	quiet    bool
	cfg      *config.Config
	logger   *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pubfeed",
	Short: "Publication feed generator for Zotero libraries",
	Long: `
██████╗ ██╗   ██╗██████╗ ███████╗███████╗███████╗██████╗
██╔══██╗██║   ██║██╔══██╗██╔════╝██╔════╝██╔════╝██╔══██╗
██████╔╝██║   ██║██████╔╝█████╗  █████╗  █████╗  ██║  ██║
██╔═══╝ ██║   ██║██╔══██╗██╔══╝  ██╔══╝  ██╔══╝  ██║  ██║
██║     ╚██████╔╝██████╔╝██║     ███████╗███████╗██████╔╝
╚═╝      ╚═════╝ ╚═════╝ ╚═╝     ╚══════╝╚══════╝╚═════╝

Publication feeds for humans and AI agents.

Fetch a Zotero group or user library, normalize every record and
publish one RSS or Atom feed per collection and display mode.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(logLevel)
		if err != nil {
			return err
		}

		if cmd.Annotations["config"] == "none" {
			return nil
		}

		// .env is optional; real environment variables win
		_ = godotenv.Load()

		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if !levelFlagged(cmd) && cfg.LogLevel != "" {
			if logger, err = newLogger(cfg.LogLevel); err != nil {
				return err
			}
		}
		logger.Debug("config loaded", "path", cfgPath, "library", cfg.API.Library,
			"collections", len(cfg.Collections))
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "",
		"configuration file path (default: "+config.DefaultConfigFile+", optional when configured from the environment)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (default: log_level or info)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "shorthand for --log-level=debug")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "shorthand for --log-level=error")
}

// newLogger builds the stderr logger; --verbose and --quiet win over level.
func newLogger(level string) (*log.Logger, error) {
	lvl := log.InfoLevel
	switch {
	case verbose:
		lvl = log.DebugLevel
	case quiet:
		lvl = log.ErrorLevel
	case level != "":
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		lvl = parsed
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "pubfeed",
		Level:           lvl,
	}), nil
}

func levelFlagged(cmd *cobra.Command) bool {
	flags := cmd.Flags()
	return flags.Changed("log-level") || flags.Changed("verbose") || flags.Changed("quiet")
}
