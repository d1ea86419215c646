package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ollamaPrompt enforces the record shape by instruction, since Ollama has
// no response-schema support. The result still goes through the same
// validation path as the Gemini extractor.
func ollamaPrompt() string {
	return `You are analyzing a purchase receipt. Read all text in the image and return ONLY valid JSON in this exact format:
{
  "storeName": "Store Name",
  "date": "YYYY-MM-DD",
  "items": [{"description": "Item name", "price": 0.00}],
  "subtotal": 0.00,
  "tax": 0.00,
  "total": 0.00,
  "category": "one category key",
  "currency": "USD"
}

Rules:
- List every purchased line item with its price
- The date must be in YYYY-MM-DD format
- If tax or subtotal is not printed, calculate it or use 0
- The category must be exactly one of: ` + strings.Join(categoryStrings(), ", ") + `
- The currency is the symbol or ISO 4217 code on the receipt; default to "USD"
- Do not include any text before or after the JSON
- Do not use markdown code blocks`
}

// Ollama implements the Extractor interface using a local Ollama vision
// model (e.g. llava, qwen2-vl).
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates a new Ollama Extractor instance
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}

	return &Ollama{
		baseURL: baseURL,
		model:   modelName,
		client: &http.Client{
			// Vision models on local hardware can be slow
			Timeout: 120 * time.Second,
		},
	}, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Images   []string        `json:"images,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// ExtractReceipt analyzes a receipt image and extracts a structured record
func (o *Ollama) ExtractReceipt(ctx context.Context, imageData []byte, contentType string) (*ReceiptData, error) {
	ctx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	payload, _, _, err := prepareImage(imageData, contentType)
	if err != nil {
		return nil, err
	}

	reqBody := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Messages: []ollamaMessage{
			{
				Role:    "system",
				Content: "You are an expert at reading and extracting information from receipts and invoices. You must carefully read all text in images and extract accurate information.",
			},
			{
				Role:    "user",
				Content: ollamaPrompt(),
			},
		},
		Images: []string{base64.StdEncoding.EncodeToString(payload)},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	data, err := parseReceiptJSON(chatResp.Message.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}
	return data, nil
}

// Close closes the Ollama extractor (no-op for HTTP client)
func (o *Ollama) Close() error {
	return nil
}
