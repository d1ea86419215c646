package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"scansave/internal/receipt"
)

const persona = "You are 'Savvy', a friendly and insightful financial assistant for the ScanSave app. " +
	"Respond only in the language with this code: %s. " +
	"You have access to the user's complete receipt history in JSON format. " +
	"Your primary role is to analyze this data to answer questions, identify spending trends, and offer personalized savings tips. " +
	"Be concise, friendly, and use simple formatting. Do not use markdown syntax like '##' or '***'."

const groundingDirective = " For questions about places, stores, or locations, you must use the Google Maps tool to ground your answer in real place data."

// buildInstruction assembles the model-facing system instruction: the
// persona forced to the caller's language, the full ledger as JSON when it
// is non-empty, and the location-tool directive when grounding is on.
func buildInstruction(records []receipt.Record, lang string, grounding bool) string {
	instruction := fmt.Sprintf(persona, lang)
	if len(records) > 0 {
		payload, err := json.Marshal(records)
		if err != nil {
			slog.Warn("Failed to serialize ledger for chat context", "error", err)
		} else {
			instruction += fmt.Sprintf(" Here is the user's receipt data: %s", payload)
		}
	}
	if grounding {
		instruction += groundingDirective
	}
	return instruction
}
