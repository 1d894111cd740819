package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/spectra"
	"github.com/jward/spectra/internal/config"
	"github.com/jward/spectra/recipes"
)

var (
	flagDB      string
	flagFormat  string
	flagConfig  string
	flagVerbose bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// stdout receives command results.
var stdout io.Writer = os.Stdout

// logger is built in PersistentPreRunE from --verbose.
var logger = zap.NewNop()

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "spectra",
	Short:         "Derive visual products from multispectral satellite scenes",
	Long:          "Spectra catalogs the band files of a scene in SQLite and renders true-color, false-color, NDVI, temperature, and atmospheric products with Risor recipes.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		l, err := buildLogger(flagVerbose)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .spectra/index.db inside the scene directory)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: spectra.yaml inside the scene directory, if present)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(queryCmd)
}

// buildLogger returns a production JSON logger on stderr, at debug level
// when verbose is set.
func buildLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Catalog the band files of a scene",
	Long:  "Hashes the band files named by the band layout, reads changed ones through GDAL, and records their grids and statistics in the SQLite catalog.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

var (
	flagProducts   string
	flagOut        string
	flagForce      bool
	flagMaxSize    int
	flagRecipesDir string
	flagWorkers    int
)

var renderCmd = &cobra.Command{
	Use:   "render [dir]",
	Short: "Index a scene and render its products",
	Long:  "Indexes the scene, then runs each product recipe and writes a PNG figure per product and a Float32 GeoTIFF per scalar product. Products whose recipe and bands are unchanged are skipped.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVar(&flagProducts, "products", "", "comma-separated product filter (e.g. rgb,ndvi)")
	renderCmd.Flags().StringVar(&flagOut, "out", "", "output directory (default: .spectra/products inside the scene directory)")
	renderCmd.Flags().BoolVar(&flagForce, "force", false, "re-render products even when they are current")
	renderCmd.Flags().IntVar(&flagMaxSize, "max-size", 0, "cap the long edge of rendered images in pixels (default 1000)")
	renderCmd.Flags().StringVar(&flagRecipesDir, "recipes-dir", "", "load recipes from disk path instead of embedded")
	renderCmd.Flags().IntVar(&flagWorkers, "workers", 0, "worker pool size (default: number of CPUs)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	sceneDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("index", err)
	}
	engine, err := openEngine(cmd, sceneDir)
	if err != nil {
		return outputError("index", err)
	}
	defer engine.Close()

	indexed, err := engine.IndexScene(cmd.Context(), sceneDir)
	if err != nil {
		return outputError("index", err)
	}
	q := engine.Query()
	scene, err := q.Scene(indexed.ID)
	if err != nil {
		return outputError("index", err)
	}
	if scene == nil {
		return outputError("index", fmt.Errorf("%w: %s", spectra.ErrSceneNotIndexed, sceneDir))
	}
	bands, err := q.Bands(scene.ID)
	if err != nil {
		return outputError("index", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s\n", sceneDir, time.Since(start).Round(time.Millisecond))
	return outputResult(CLIResult{
		Command: "index",
		Results: CLISceneDetail{Scene: sceneToCLI(scene), Bands: bandsToCLI(bands)},
	})
}

func runRender(cmd *cobra.Command, args []string) error {
	start := time.Now()

	sceneDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("render", err)
	}
	engine, err := openEngine(cmd, sceneDir)
	if err != nil {
		return outputError("render", err)
	}
	defer engine.Close()

	scene, products, err := engine.Process(cmd.Context(), sceneDir)
	if err != nil {
		if scene == nil {
			return outputError("render", err)
		}
		// Report what did render alongside the failures.
		errorHandled = true
		_ = outputResult(CLIResult{Command: "render", Results: productsToCLI(products), Error: err.Error()})
		if flagFormat == "text" {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		return err
	}

	fmt.Fprintf(os.Stderr, "Rendered %d product(s) for %s in %s\n",
		len(products), sceneDir, time.Since(start).Round(time.Millisecond))
	return outputResult(CLIResult{
		Command: "render",
		Results: productsToCLI(products),
	})
}

// openEngine creates the scene's database directory and an Engine
// configured from the config file with command-line flags on top.
func openEngine(cmd *cobra.Command, sceneDir string) (*spectra.Engine, error) {
	cfg, err := loadConfig(sceneDir)
	if err != nil {
		return nil, err
	}

	dbPath := resolveDBPath(sceneDir)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	opts, recipesDir := engineOptions(cmd, cfg)
	engine, err := spectra.New(dbPath, recipesDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return engine, nil
}

// engineOptions merges cfg with the render flags that were set explicitly.
// It returns the options and the on-disk recipes directory, empty when the
// embedded recipes are used.
func engineOptions(cmd *cobra.Command, cfg *config.Config) ([]spectra.Option, string) {
	opts := []spectra.Option{
		spectra.WithLogger(logger),
		spectra.WithLayout(cfg.BandLayout()),
	}

	products := cfg.Products
	outDir := cfg.OutputDir
	maxSize := cfg.MaxSize
	workers := cfg.Workers
	flags := cmd.Flags()
	if flags.Lookup("products") != nil && flagProducts != "" {
		products = splitList(flagProducts)
	}
	if flags.Changed("out") {
		outDir = flagOut
	}
	if flags.Changed("max-size") {
		maxSize = flagMaxSize
	}
	if flags.Changed("workers") {
		workers = flagWorkers
	}
	if flags.Changed("force") {
		opts = append(opts, spectra.WithForce(flagForce))
	}

	if len(products) > 0 {
		opts = append(opts, spectra.WithProducts(products...))
	}
	if outDir != "" {
		opts = append(opts, spectra.WithOutputDir(outDir))
	}
	if maxSize > 0 {
		opts = append(opts, spectra.WithMaxSize(maxSize))
	}
	if workers > 0 {
		opts = append(opts, spectra.WithWorkers(workers))
	}

	recipesDir := ""
	if flags.Lookup("recipes-dir") != nil {
		recipesDir = flagRecipesDir
	}
	if recipesDir == "" {
		opts = append(opts, spectra.WithRecipesFS(recipes.FS))
	}
	return opts, recipesDir
}

// loadConfig reads --config, or the scene's spectra.yaml when present.
func loadConfig(sceneDir string) (*config.Config, error) {
	if flagConfig != "" {
		return config.Load(flagConfig, false)
	}
	return config.Load(filepath.Join(sceneDir, config.FileName), true)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// resolveTargetDir returns the absolute path of the scene directory.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(sceneDir string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(sceneDir, flagDB)
	}
	return filepath.Join(sceneDir, ".spectra", "index.db")
}
