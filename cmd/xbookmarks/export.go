package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"xbookmarks/pkg/export"
	"xbookmarks/pkg/logger"
)

var (
	// Export command flags
	maxPages      int
	rateLimit     int
	openBookmarks bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run a one-shot bookmark export",
	Long: `Attach to the browser, wait for the session credentials to appear in
its traffic, and export every bookmark to a timestamped JSON file.

The X frontend only issues a Bookmarks request when the bookmarks page
loads, so the export opens that page in a new tab unless told otherwise.
If the session data never shows up, make sure you are logged into X in
the debugged browser.`,
	Example: `  # Export with default settings
  xbookmarks export

  # Export to a specific directory, capping pagination
  xbookmarks export --output ./backups --max-pages 10

  # Attach to a browser on a non-default debugging port
  xbookmarks export --cdp-url http://127.0.0.1:9333`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum timeline pages to fetch (0 = no cap)")
	exportCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "page requests per minute (0 = unpaced)")
	exportCmd.Flags().BoolVar(&openBookmarks, "open-bookmarks", true, "open the bookmarks page in a new tab after attaching")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{
		"max-pages": maxPages,
	})
	if err != nil {
		return err
	}
	if rateLimit > 0 {
		cfg.Export.RequestsPerMinute = rateLimit
	}
	cfg.Browser.OpenBookmarks = openBookmarks

	log := logger.GetLogger()

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Mirror progress to the terminal.
	subID, events := p.broker.Subscribe()
	defer p.broker.Unsubscribe(subID)
	go func() {
		for ev := range events {
			fmt.Println(ev.Message)
		}
	}()

	if err := p.browser.Connect(ctx); err != nil {
		return err
	}
	defer p.browser.Close()

	result, err := export.NewGated(p.gate, p.exporter).Run(ctx)
	if err != nil {
		return err
	}

	log.InfoWithFields("export finished", map[string]interface{}{
		"filename": result.Filename,
		"records":  result.Records,
	})
	fmt.Printf("Exported %d bookmarks to %s\n", result.Records, result.Filename)
	return nil
}
