package cmd

import (
	"fmt"
	"os"

	"github.com/diewo77/sales-portal/internal/services"
	"github.com/spf13/cobra"
)

var (
	importFile  string
	importTable string
)

var importCmd = &cobra.Command{
	Use:   "import-products",
	Short: "Upsert products by SKU from a CSV file",
	Long: `Read a delimited file (; , tab or |, sniffed from the header) and
upsert its products by SKU.

Headers are matched without accents or case: ref/sku/codigo/referencia for
the SKU, produto/descricao/desc/nome for the description and preco/valor for
the price. Prices are only written when --table is given; the table is
created when missing. Rows without a SKU are skipped.`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importFile, "file", "", "CSV file to import")
	importCmd.Flags().StringVar(&importTable, "table", "", "price table receiving the price column")
	_ = importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(importFile)
	if err != nil {
		return err
	}
	defer f.Close()

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	res, err := services.ImportProducts(cmd.Context(), e.db, f, importTable)
	if err != nil {
		return fmt.Errorf("import %s: %w", importFile, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rows: %d, created: %d, updated: %d, skipped: %d\n",
		res.Total, res.Created, res.Updated, res.Skipped)
	return nil
}
