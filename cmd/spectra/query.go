package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/spectra"
	"github.com/jward/spectra/recipes"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the scene catalog",
	Long:  "Read scenes, bands, and products from a scene's catalog. Each subcommand takes the scene directory, defaulting to the current directory.",
}

func init() {
	queryCmd.AddCommand(scenesCmd)
	queryCmd.AddCommand(bandsCmd)
	queryCmd.AddCommand(productsCmd)
	queryCmd.AddCommand(staleCmd)

	staleCmd.Flags().StringVar(&flagRecipesDir, "recipes-dir", "", "compare against recipes on disk instead of embedded")
}

var scenesCmd = &cobra.Command{
	Use:   "scenes [dir]",
	Short: "List every scene in the catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, err := openCatalog(args)
		if err != nil {
			return outputError("scenes", err)
		}
		defer engine.Close()

		scenes, err := engine.Query().Scenes()
		if err != nil {
			return outputError("scenes", err)
		}
		out := make([]CLIScene, len(scenes))
		for i, sc := range scenes {
			out[i] = sceneToCLI(sc)
		}
		return outputResult(CLIResult{Command: "scenes", Results: out})
	},
}

var bandsCmd = &cobra.Command{
	Use:   "bands [dir]",
	Short: "List a scene's bands with their statistics",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, scene, err := openScene(args)
		if err != nil {
			return outputError("bands", err)
		}
		defer engine.Close()

		bands, err := engine.Query().Bands(scene.ID)
		if err != nil {
			return outputError("bands", err)
		}
		return outputResult(CLIResult{Command: "bands", Results: bandsToCLI(bands)})
	},
}

var productsCmd = &cobra.Command{
	Use:   "products [dir]",
	Short: "List a scene's rendered products and their input bands",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, scene, err := openScene(args)
		if err != nil {
			return outputError("products", err)
		}
		defer engine.Close()

		q := engine.Query()
		products, err := q.Products(scene.ID)
		if err != nil {
			return outputError("products", err)
		}
		out := productsToCLI(products)
		for i, p := range products {
			inputs, err := q.ProductInputs(p.ID)
			if err != nil {
				return outputError("products", err)
			}
			for _, b := range inputs {
				out[i].Inputs = append(out[i].Inputs, b.Role)
			}
		}
		return outputResult(CLIResult{Command: "products", Results: out})
	},
}

var staleCmd = &cobra.Command{
	Use:   "stale [dir]",
	Short: "List products that the next render would redraw",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, scene, err := openScene(args)
		if err != nil {
			return outputError("stale", err)
		}
		defer engine.Close()

		stale, err := engine.StaleProducts(scene.Path)
		if err != nil {
			return outputError("stale", err)
		}
		return outputResult(CLIResult{Command: "stale", Results: productsToCLI(stale)})
	},
}

// --- Helpers ---

// openCatalog opens an Engine over an existing catalog without creating
// one. Recipes come from --recipes-dir when set, otherwise the embedded set.
func openCatalog(args []string) (*spectra.Engine, string, error) {
	sceneDir, err := resolveTargetDir(args)
	if err != nil {
		return nil, "", err
	}
	dbPath := resolveDBPath(sceneDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, "", fmt.Errorf("database not found: %s (run 'spectra index' first)", dbPath)
	}
	opts := []spectra.Option{spectra.WithLogger(logger)}
	if flagRecipesDir == "" {
		opts = append(opts, spectra.WithRecipesFS(recipes.FS))
	}
	engine, err := spectra.New(dbPath, flagRecipesDir, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("opening catalog: %w", err)
	}
	return engine, sceneDir, nil
}

// openScene opens the catalog and looks up the scene in the target dir.
func openScene(args []string) (*spectra.Engine, *spectra.Scene, error) {
	engine, sceneDir, err := openCatalog(args)
	if err != nil {
		return nil, nil, err
	}
	scene, err := engine.Query().SceneByPath(sceneDir)
	if err != nil {
		engine.Close()
		return nil, nil, err
	}
	if scene == nil {
		engine.Close()
		return nil, nil, fmt.Errorf("%w: %s", spectra.ErrSceneNotIndexed, sceneDir)
	}
	return engine, scene, nil
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}
