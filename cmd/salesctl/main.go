// Command salesctl administers the sales portal database: migrations, seed
// data, product imports and one-off job runs.
package main

import (
	"os"

	"github.com/diewo77/sales-portal/cmd/salesctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
