package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const extractPrompt = "Analyze this receipt image. Extract all relevant information and provide it in the requested JSON format. " +
	"If a value like tax or subtotal is not explicitly present, calculate it or set it to 0. Select the most fitting category key."

// receiptSchema constrains the extraction response to the record shape.
// The category property carries the closed enumeration so the model cannot
// invent new keys.
var receiptSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"storeName": {Type: genai.TypeString, Description: "The name of the store or vendor."},
		"date":      {Type: genai.TypeString, Description: "The date of the transaction in YYYY-MM-DD format."},
		"items": {
			Type:        genai.TypeArray,
			Description: "A list of all items purchased.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"description": {Type: genai.TypeString, Description: "The name or description of the item."},
					"price":       {Type: genai.TypeNumber, Description: "The price of the item."},
				},
				Required: []string{"description", "price"},
			},
		},
		"subtotal": {Type: genai.TypeNumber, Description: "The subtotal amount before tax, if available. Otherwise calculate it."},
		"tax":      {Type: genai.TypeNumber, Description: "The total tax amount, if available. Otherwise set to 0."},
		"total":    {Type: genai.TypeNumber, Description: "The final total amount paid."},
		"category": {
			Type:        genai.TypeString,
			Description: "The most appropriate spending category key for this receipt: " + strings.Join(categoryStrings(), ", ") + ".",
			Enum:        categoryStrings(),
		},
		"currency": {Type: genai.TypeString, Description: "The currency symbol or ISO 4217 code found on the receipt. Default to 'USD' if not found."},
	},
	Required: []string{"storeName", "date", "items", "total", "category", "currency"},
}

// Gemini implements the Extractor interface using Google Gemini with a
// schema-constrained JSON response.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a new Gemini Extractor instance
func NewGemini(client *genai.Client, modelName string) *Gemini {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &Gemini{client: client, model: modelName}
}

// ExtractReceipt analyzes a receipt image and extracts a structured record
func (g *Gemini) ExtractReceipt(ctx context.Context, imageData []byte, contentType string) (*ReceiptData, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	payload, mimeType, _, err := prepareImage(imageData, contentType)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: payload}},
			{Text: extractPrompt},
		},
	}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   receiptSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("%w: empty response from gemini", ErrInvalidResponse)
	}

	data, err := parseReceiptJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}
	return data, nil
}

// Close closes the Gemini extractor (the client is shared and owned by the caller)
func (g *Gemini) Close() error {
	return nil
}
