package services

import (
	"context"
	"strings"
	"testing"

	"github.com/diewo77/sales-portal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"Preço":           "preco",
		" Descrição ":     "descricao",
		"Código":          "codigo",
		"Preço Unit.":     "preco_unit_",
		"REF":             "ref",
		"\ufeffSKU":       "sku",
		"familia/linha":   "familia_linha",
		"Referência-Base": "referencia_base",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeHeader(in), "header %q", in)
	}
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ';', SniffDelimiter("ref;produto;preco"))
	assert.Equal(t, ',', SniffDelimiter("ref,produto,preco"))
	assert.Equal(t, '\t', SniffDelimiter("ref\tproduto\tpreco"))
	assert.Equal(t, '|', SniffDelimiter("ref|produto|preco"))
	assert.Equal(t, ',', SniffDelimiter("single"))
}

func TestParseImportPrice(t *testing.T) {
	for in, want := range map[string]string{
		"10":       "10",
		"10.50":    "10.5",
		"1.234,56": "1234.56",
		"0,5":      "0.5",
		"3.14159":  "3.14",
	} {
		got, err := ParseImportPrice(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(d(want)), "%s: got %s want %s", in, got, want)
	}
	_, err := ParseImportPrice("abc")
	assert.Error(t, err)
	_, err = ParseImportPrice("")
	assert.Error(t, err)
}

func TestImportProducts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&models.Product{SKU: "A-1", Description: "Old", Active: true}).Error)

	csv := "\ufeffREF;Descrição;Preço\n" +
		"A-1;Widget;1.234,56\n" +
		"B-2;Gadget;10,00\n" +
		";No sku;1,00\n" +
		"C-3;;\n"

	res, err := ImportProducts(ctx, db, strings.NewReader(csv), "Imported")
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Total: 4, Created: 2, Updated: 1, Skipped: 1}, *res)

	var a models.Product
	require.NoError(t, db.Where("sku = ?", "A-1").First(&a).Error)
	assert.Equal(t, "Widget", a.Description)

	var c models.Product
	require.NoError(t, db.Where("sku = ?", "C-3").First(&c).Error)
	assert.Equal(t, "C-3", c.Description, "description falls back to the sku")
	assert.True(t, c.Active)

	var table models.PriceTable
	require.NoError(t, db.Where("name = ?", "Imported").First(&table).Error)
	assert.True(t, table.Active)

	var prices []models.Price
	require.NoError(t, db.Where("price_table_id = ?", table.ID).Order("id").Find(&prices).Error)
	require.Len(t, prices, 2)
	assert.True(t, prices[0].Amount.Equal(d("1234.56")))

	// A second run updates prices instead of duplicating them.
	res, err = ImportProducts(ctx, db, strings.NewReader("sku,produto,valor\nB-2,Gadget,12.00\n"), "Imported")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	var b models.Product
	require.NoError(t, db.Where("sku = ?", "B-2").First(&b).Error)
	var bp models.Price
	require.NoError(t, db.Where("product_id = ? AND price_table_id = ?", b.ID, table.ID).First(&bp).Error)
	assert.True(t, bp.Amount.Equal(d("12")))
}

func TestImportProducts_WithoutTable(t *testing.T) {
	db := setupTestDB(t)
	res, err := ImportProducts(context.Background(), db, strings.NewReader("codigo|nome\nX|Thing\n"), "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	var n int64
	db.Model(&models.PriceTable{}).Count(&n)
	assert.Zero(t, n)
}
