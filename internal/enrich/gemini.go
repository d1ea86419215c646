// Package enrich holds the best-effort generative calls: per-record
// insights, the weekly trend summary, and session title inference. Every
// caller treats a failure here as "absent", never as fatal.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"scansave/internal/receipt"
)

// Gemini issues the enrichment prompts against a shared genai client.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a new enrichment generator.
func NewGemini(client *genai.Client, modelName string) *Gemini {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &Gemini{client: client, model: modelName}
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty response from gemini")
	}
	return text, nil
}

// Insight produces a short friendly comment on one record in the requested
// language.
func (g *Gemini) Insight(ctx context.Context, rec receipt.Record, lang string) (string, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshaling record: %w", err)
	}

	prompt := fmt.Sprintf("Based on the following receipt data, provide a short, friendly, and insightful comment about the spending. "+
		"Respond in the language with this code: %s. Focus on a single interesting aspect. Keep it under 25 words. "+
		"For example: \"Looks like a delicious meal at %s!\" or \"Stocking up on essentials is always a good idea.\". "+
		"Receipt data: %s", lang, rec.StoreName, payload)

	return g.generate(ctx, prompt)
}

// WeeklySummary produces the rolling trend text over the given records.
// Lines wrapped in ** mark section headings; the renderer strips them.
func (g *Gemini) WeeklySummary(ctx context.Context, records []receipt.Record, lang string) (string, error) {
	payload, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshaling records: %w", err)
	}

	prompt := fmt.Sprintf(`Here are my expenses from the last 7 days: %s.
Provide a concise analysis of my spending habits. Respond in the language with this code: %s.
The response should be a single string with newlines (\n).

Structure your response like this:
- Start with a friendly summary sentence.
- Use a heading **Spending Breakdown:** and then a short bulleted list of the top 2-3 spending categories.
- Use a heading **Smart Savings Tip:** and then provide one actionable tip for saving money based on the data.

Keep the entire response under 70 words.`, payload, lang)

	return g.generate(ctx, prompt)
}

// SessionTitle infers a short title from the start of a conversation,
// stripping any quotes the model adds.
func (g *Gemini) SessionTitle(ctx context.Context, conversation, lang string) (string, error) {
	prompt := fmt.Sprintf("Based on the following conversation start, create a very short, concise title (4 words max). "+
		"Respond only with the title text, nothing else. Respond in the language with this code: %s. "+
		"Conversation: %s", lang, conversation)

	title, err := g.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ReplaceAll(title, `"`, "")), nil
}
