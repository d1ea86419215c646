package receipt

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"scansave/internal/locale"
)

// WriteCSV exports the records as delimited text: one localized header row,
// then one row per line item (not per record).
func WriteCSV(w io.Writer, records []Record, lang string) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(locale.CSVHeaders(lang)); err != nil {
		return fmt.Errorf("writing header row: %w", err)
	}

	for _, rec := range records {
		for _, item := range rec.Items {
			row := []string{
				rec.ID,
				rec.StoreName,
				rec.Date,
				locale.CategoryLabel(lang, rec.Category),
				formatAmount(rec.Subtotal),
				formatAmount(rec.Tax),
				formatAmount(rec.Total),
				rec.Currency,
				item.Description,
				formatAmount(item.Price),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing item row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
