package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pizzas-pos/internal/database"
	"pizzas-pos/internal/database/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd, "migrate")
	if err != nil {
		return err
	}

	db, err := database.New(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	ran, err := db.RunMigrations(cmd.Context(), migrations.FS)
	if err != nil {
		return err
	}
	if len(ran) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
		return nil
	}
	for _, name := range ran {
		fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", name)
	}
	return nil
}
