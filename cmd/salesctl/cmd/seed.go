package cmd

import (
	"fmt"

	"github.com/diewo77/sales-portal/internal/db"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo users, client, products and prices",
	Long: `Seed is idempotent: running it twice leaves the database unchanged.

It creates admin@example.com (staff), rep1@example.com with representative
REP001, client C001, products SKU-001 and SKU-002 and their prices in the
default price table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()
		if err := db.Seed(cmd.Context(), e.db, e.cfg.Pricing.DefaultTable); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "seed completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
