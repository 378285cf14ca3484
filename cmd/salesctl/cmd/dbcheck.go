package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/diewo77/sales-portal/internal/db"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var dbcheckCmd = &cobra.Command{
	Use:   "dbcheck",
	Short: "Ping the database and print row counts per table",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()
		return dbcheck(cmd.Context(), e.db, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(dbcheckCmd)
}

func dbcheck(ctx context.Context, conn *gorm.DB, out io.Writer) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	fmt.Fprintf(out, "database %s: ok\n", conn.Dialector.Name())

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tROWS")
	for _, m := range db.Models() {
		stmt := &gorm.Statement{DB: conn}
		if err := stmt.Parse(m); err != nil {
			return err
		}
		var n int64
		if err := conn.WithContext(ctx).Model(m).Count(&n).Error; err != nil {
			fmt.Fprintf(tw, "%s\terror: %v\n", stmt.Schema.Table, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\n", stmt.Schema.Table, n)
	}
	return tw.Flush()
}
