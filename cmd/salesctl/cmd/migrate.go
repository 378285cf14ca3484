package cmd

import (
	"fmt"

	"github.com/diewo77/sales-portal/internal/db"
	"github.com/spf13/cobra"
)

var sqlMigrations bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Run gorm AutoMigrate for every model, or the embedded SQL migrations
with --sql (postgres only).`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&sqlMigrations, "sql", false, "run the embedded SQL migrations instead of AutoMigrate")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if sqlMigrations || e.cfg.App.SQLMigrations {
		if e.cfg.Database.Driver != "postgres" {
			return fmt.Errorf("SQL migrations need postgres, driver is %q", e.cfg.Database.Driver)
		}
		if err := db.RunSQLMigrations(e.cfg.Database.URL()); err != nil {
			return err
		}
	} else if err := db.Migrate(e.db); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migrations completed")
	return nil
}
