package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/archsight/diagast/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize diagast configuration interactively",
	Long: `Guides you through setting up diagast configuration step by step.
Creates a config file with output, worker, cache and format settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func runInit() error {
	cfg := config.DefaultConfig()

	// === SECTION 1: Conversion defaults ===
	outputDir := cfg.OutputDir
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Output directory for .ast.json files").
				Placeholder(cfg.OutputDir).
				Value(&outputDir),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	var defaultFormat string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default source format").
				Description("Auto-detect routes by extension and content sniffing").
				Options(
					huh.NewOption("Auto-detect", ""),
					huh.NewOption("Draw.io", "drawio"),
					huh.NewOption("SVG", "svg"),
					huh.NewOption("PlantUML", "plantuml"),
				).
				Value(&defaultFormat),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	workersStr := "0"
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Batch workers (0 = one per CPU)").
				Placeholder("0").
				Value(&workersStr).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 0 {
						return fmt.Errorf("enter a non-negative number")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 2: Cache ===
	cacheEnabled := true
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Conversion cache").
				Description("Skip re-extraction of unchanged diagram files?").
				Affirmative("Enable").
				Negative("Disable").
				Value(&cacheEnabled),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 3: Config location ===
	var saveLocationChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Global (~/.diagast/config.yaml)", "global"),
					huh.NewOption("Project (./.diagast/config.yaml)", "project"),
				).
				Value(&saveLocationChoice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	var configPath string
	if saveLocationChoice == "global" {
		configPath = config.GlobalPath()
	} else {
		configPath = ".diagast/config.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	// === Build config struct ===
	cfg.OutputDir = outputDir
	cfg.DefaultFormat = defaultFormat
	cfg.Workers, _ = strconv.Atoi(workersStr)
	cfg.CacheEnabled = cacheEnabled

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Show config preview
	fmt.Println("\n=== Configuration Preview ===")
	fmt.Printf("Config path: %s\n", configPath)
	fmt.Printf("Output dir: %s\n", cfg.OutputDir)
	if cfg.DefaultFormat == "" {
		fmt.Println("Format: auto-detect")
	} else {
		fmt.Printf("Format: %s\n", cfg.DefaultFormat)
	}
	fmt.Printf("Workers: %d\n", cfg.Workers)
	fmt.Printf("Cache: %v (%s)\n", cfg.CacheEnabled, cfg.CachePath)
	fmt.Println("================================")

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Configuration saved to: %s\n", configPath)
	return nil
}

func init() {
	RootCmd.AddCommand(initCmd)
}
