package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pizzas-pos/internal/app"
	"pizzas-pos/internal/catalog"
)

var seedCmd = &cobra.Command{
	Use:   "seed [catalog-file]",
	Short: "Load products from a catalog file into the store",
	Long: `Seed upserts the pizzas and drinks of a YAML catalog file by name. Running
it twice with the same file changes nothing. Without an argument the file
configured under catalog.file is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd, "seed")
	if err != nil {
		return err
	}

	file := cfg.Catalog.File
	if len(args) == 1 {
		file = args[0]
	}
	products, err := catalog.LoadFile(file)
	if err != nil {
		return err
	}

	// the memory backend seeds itself; only the catalog file is wanted here
	cfg.Catalog.File = ""
	store, release, err := app.OpenStore(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer release()

	res, err := catalog.New(store, log).Seed(cmd.Context(), products)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s: %d added, %d updated\n", file, res.Added, res.Updated)
	return nil
}
