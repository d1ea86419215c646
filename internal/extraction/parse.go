package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// rawReceipt mirrors ReceiptData with pointer fields so that missing keys
// can be told apart from zero values.
type rawReceipt struct {
	StoreName *string    `json:"storeName"`
	Date      *string    `json:"date"`
	Items     []LineItem `json:"items"`
	Subtotal  float64    `json:"subtotal"`
	Tax       float64    `json:"tax"`
	Total     *float64   `json:"total"`
	Category  string     `json:"category"`
	Currency  *string    `json:"currency"`
}

// parseReceiptJSON validates and repairs the model's response text.
// A category outside the closed set is coerced to CategoryOther rather than
// rejected; every other required field must be present.
func parseReceiptJSON(text string) (*ReceiptData, error) {
	text = stripFences(text)

	// Keep only the outermost JSON object in case the model wrapped it in
	// prose despite instructions.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrInvalidResponse)
	}
	text = text[start : end+1]

	var raw rawReceipt
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling: %v", ErrInvalidResponse, err)
	}

	var missing []string
	if raw.StoreName == nil || strings.TrimSpace(*raw.StoreName) == "" {
		missing = append(missing, "storeName")
	}
	if raw.Date == nil {
		missing = append(missing, "date")
	}
	if raw.Items == nil {
		missing = append(missing, "items")
	}
	if raw.Total == nil {
		missing = append(missing, "total")
	}
	if raw.Currency == nil || strings.TrimSpace(*raw.Currency) == "" {
		missing = append(missing, "currency")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing fields: %s", ErrInvalidResponse, strings.Join(missing, ", "))
	}

	data := &ReceiptData{
		StoreName: strings.TrimSpace(*raw.StoreName),
		Date:      normalizeDate(*raw.Date),
		Items:     raw.Items,
		Subtotal:  clampAmount(raw.Subtotal),
		Tax:       clampAmount(raw.Tax),
		Total:     clampAmount(*raw.Total),
		Category:  Category(raw.Category),
		Currency:  strings.TrimSpace(*raw.Currency),
	}
	if !ValidCategory(data.Category) {
		data.Category = CategoryOther
	}
	for i := range data.Items {
		data.Items[i].Description = strings.TrimSpace(data.Items[i].Description)
		data.Items[i].Price = clampAmount(data.Items[i].Price)
	}

	return data, nil
}

// stripFences removes markdown code fences the model sometimes adds despite
// being told not to.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```json")
			s = strings.TrimPrefix(s, "```")
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// normalizeDate converts common receipt date formats to YYYY-MM-DD,
// defaulting to today when the value cannot be parsed.
func normalizeDate(date string) string {
	date = strings.TrimSpace(date)
	formats := []string{
		"2006-01-02",
		"2006/01/02",
		"01/02/2006",
		"02-01-2006",
		"02.01.2006",
	}
	for _, format := range formats {
		if d, err := time.Parse(format, date); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return time.Now().Format("2006-01-02")
}

func clampAmount(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
