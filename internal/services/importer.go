package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/diewo77/sales-portal/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

var (
	skuColumns         = []string{"ref", "sku", "codigo", "referencia"}
	descriptionColumns = []string{"produto", "descricao", "desc", "nome"}
	priceColumns       = []string{"preco", "valor"}
)

// ImportResult counts the rows handled by ImportProducts.
type ImportResult struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// NormalizeHeader strips accents, lowercases and maps separators to "_",
// so "Preço Unit." becomes "preco_unit_".
func NormalizeHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(out, "\ufeff")))
	return strings.NewReplacer(" ", "_", ".", "_", "-", "_", "/", "_", `\`, "_").Replace(out)
}

// SniffDelimiter picks the most frequent of ; , tab and | in the header line.
func SniffDelimiter(header string) rune {
	best, bestCount := ',', 0
	for _, d := range []rune{';', ',', '\t', '|'} {
		if n := strings.Count(header, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// ParseImportPrice reads prices written either as "1.234,56" or "1234.56".
func ParseImportPrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.New("empty price")
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Round(2), nil
}

// ImportProducts upserts products by SKU from a delimited file. When
// tableName is set, the price column is written to that table, which is
// created active if missing. Rows without a SKU are skipped.
func ImportProducts(ctx context.Context, db *gorm.DB, r io.Reader, tableName string) (*ImportResult, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	headerLine := string(first)
	if i := bytes.IndexByte(first, '\n'); i >= 0 {
		headerLine = string(first[:i])
	}

	reader := csv.NewReader(br)
	reader.Comma = SniffDelimiter(headerLine)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[NormalizeHeader(h)] = i
	}
	get := func(rec []string, names []string) string {
		for _, n := range names {
			if i, ok := cols[n]; ok && i < len(rec) {
				if v := strings.TrimSpace(rec[i]); v != "" {
					return v
				}
			}
		}
		return ""
	}

	res := &ImportResult{}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table *models.PriceTable
		if tableName != "" {
			t := models.PriceTable{Name: tableName, Active: true}
			if err := tx.Where("name = ?", tableName).FirstOrCreate(&t).Error; err != nil {
				return fmt.Errorf("price table %q: %w", tableName, err)
			}
			table = &t
		}

		for {
			rec, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("line %d: %w", res.Total+2, err)
			}
			res.Total++

			sku := get(rec, skuColumns)
			if sku == "" {
				res.Skipped++
				continue
			}
			desc := get(rec, descriptionColumns)
			if desc == "" {
				desc = sku
			}

			var product models.Product
			err = tx.Where("sku = ?", sku).First(&product).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				product = models.Product{SKU: sku, Description: desc, Active: true}
				if err := tx.Create(&product).Error; err != nil {
					return fmt.Errorf("create %s: %w", sku, err)
				}
				res.Created++
			case err != nil:
				return err
			default:
				if err := tx.Model(&product).Update("description", desc).Error; err != nil {
					return fmt.Errorf("update %s: %w", sku, err)
				}
				res.Updated++
			}

			if table == nil {
				continue
			}
			raw := get(rec, priceColumns)
			if raw == "" {
				continue
			}
			amount, err := ParseImportPrice(raw)
			if err != nil {
				return fmt.Errorf("price of %s: %w", sku, err)
			}
			price := models.Price{ProductID: product.ID, PriceTableID: table.ID}
			err = tx.Where("product_id = ? AND price_table_id = ?", product.ID, table.ID).
				Assign(map[string]any{"amount": amount}).
				FirstOrCreate(&price).Error
			if err != nil {
				return fmt.Errorf("price of %s: %w", sku, err)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
