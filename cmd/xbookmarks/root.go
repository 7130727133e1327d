package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xbookmarks/pkg/config"
	"xbookmarks/pkg/logger"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	cdpURL     string
	outputDir  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xbookmarks",
	Short: "Export your X bookmarks to JSON",
	Long: `xbookmarks exports a logged-in user's X bookmarks to a JSON file.

It attaches to a browser you are already using (started with remote
debugging enabled), watches its traffic for the session credentials the
X frontend sends, and then pages through the private Bookmarks API with
those credentials. No password ever touches this tool.

Start your browser with remote debugging first, for example:
  chromium --remote-debugging-port=9222

Then log into X in that browser and run an export.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.xbookmarks.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cdpURL, "cdp-url", "", "browser remote debugging URL")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory for export files")
}

// loadConfig merges flags over env and file configuration and initializes
// the logger.
func loadConfig(extra map[string]interface{}) (*config.Config, error) {
	flags := map[string]interface{}{
		"cdp-url":   cdpURL,
		"output":    outputDir,
		"log-level": logLevel,
	}
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
