package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/archsight/diagast/internal/log"
	"github.com/archsight/diagast/pkg/cache"
	"github.com/archsight/diagast/pkg/extractor"
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Convert every diagram under a directory",
	Long: `Walks a directory tree, converts every supported diagram file
(.drawio, .xml, .svg, .puml, .plantuml, .uml, .wsd, .iuml) and writes
.ast.json outputs mirroring the source layout. Files are converted
concurrently; failures are reported per file without aborting the run.
Unchanged files are served from the conversion cache when enabled.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if info, err := os.Stat(dir); err != nil {
			return fmt.Errorf("stat directory: %w", err)
		} else if !info.IsDir() {
			return fmt.Errorf("not a directory: %s", dir)
		}

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		outDir, _ := cmd.Flags().GetString("output")
		if outDir == "" {
			outDir = cfg.OutputDir
		}
		workers, _ := cmd.Flags().GetInt("workers")
		if workers == 0 {
			workers = cfg.Workers
		}

		var store *cache.Store
		if cfg.CacheEnabled {
			store, err = cache.New(cfg.CacheMaxEntries)
			if err != nil {
				return fmt.Errorf("creating cache: %w", err)
			}
			if err := store.LoadFile(cfg.CachePath); err != nil {
				log.Default().Warn("cache snapshot unreadable, starting cold", "path", cfg.CachePath, "error", err)
			}
		}

		spinner := log.NewProgressSpinner(fmt.Sprintf("Converting diagrams in %s", dir))
		spinner.Start()
		summary, err := extractor.NewRegistry().Batch(dir, outDir, workers, store)
		spinner.Stop()
		if err != nil {
			return err
		}

		if store != nil {
			if err := store.SaveFile(cfg.CachePath); err != nil {
				log.Default().Warn("saving cache snapshot failed", "path", cfg.CachePath, "error", err)
			}
		}

		for _, res := range summary.Results {
			switch res.Status {
			case "error":
				fmt.Printf("  FAIL %s: %s\n", res.File, res.Error)
			case "declined":
				fmt.Printf("  skip %s (no diagram content)\n", res.File)
			}
		}
		fmt.Printf("Converted %d, cached %d, skipped %d, failed %d (outputs in %s)\n",
			summary.Converted, summary.Cached, summary.Declined, summary.Failed, outDir)

		if summary.Failed > 0 && summary.Converted+summary.Cached == 0 {
			return fmt.Errorf("no diagrams could be converted")
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringP("output", "o", "", "Output directory; default from config")
	batchCmd.Flags().IntP("workers", "w", 0, "Worker count; 0 means one per CPU")
}
