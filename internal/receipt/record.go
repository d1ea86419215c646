package receipt

import (
	"time"

	"scansave/internal/extraction"
)

// Record is a ledger entry built from an extracted receipt. Records are
// immutable once inserted; the only mutation is deletion.
type Record struct {
	ID        string                `json:"id"`
	StoreName string                `json:"storeName"`
	Date      string                `json:"date"` // YYYY-MM-DD
	Items     []extraction.LineItem `json:"items"`
	Subtotal  float64               `json:"subtotal"`
	Tax       float64               `json:"tax"`
	Total     float64               `json:"total"`
	Category  extraction.Category   `json:"category"`
	Currency  string                `json:"currency"`
	Insight   string                `json:"insight,omitempty"`
	ImageFile string                `json:"imageFile,omitempty"` // retained capture, relative to the image store
	ImageType string                `json:"imageType,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
}

// fromExtraction builds a record from validated extraction output. The ID
// is assigned by the ledger at insert time, never here.
func fromExtraction(data *extraction.ReceiptData) Record {
	return Record{
		StoreName: data.StoreName,
		Date:      data.Date,
		Items:     data.Items,
		Subtotal:  data.Subtotal,
		Tax:       data.Tax,
		Total:     data.Total,
		Category:  data.Category,
		Currency:  data.Currency,
	}
}
