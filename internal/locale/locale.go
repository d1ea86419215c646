// Package locale holds the localized strings the core needs: category
// labels (searchable and exported), canned chat/pipeline messages, and CSV
// headers. Lookup falls back to English for unknown language codes.
package locale

import "scansave/internal/extraction"

const fallback = "en"

var categoryLabels = map[string]map[extraction.Category]string{
	"en": {
		extraction.CategoryFoodDining:     "Food & Dining",
		extraction.CategoryGroceries:      "Groceries",
		extraction.CategoryShopping:       "Shopping",
		extraction.CategoryTransportation: "Transportation",
		extraction.CategoryHealth:         "Health",
		extraction.CategoryEntertainment:  "Entertainment",
		extraction.CategoryUtilities:      "Utilities",
		extraction.CategoryHome:           "Home",
		extraction.CategoryOther:          "Other",
	},
	"sr": {
		extraction.CategoryFoodDining:     "Hrana i restorani",
		extraction.CategoryGroceries:      "Namirnice",
		extraction.CategoryShopping:       "Kupovina",
		extraction.CategoryTransportation: "Prevoz",
		extraction.CategoryHealth:         "Zdravlje",
		extraction.CategoryEntertainment:  "Zabava",
		extraction.CategoryUtilities:      "Režije",
		extraction.CategoryHome:           "Dom",
		extraction.CategoryOther:          "Ostalo",
	},
	"de": {
		extraction.CategoryFoodDining:     "Essen & Restaurants",
		extraction.CategoryGroceries:      "Lebensmittel",
		extraction.CategoryShopping:       "Einkaufen",
		extraction.CategoryTransportation: "Transport",
		extraction.CategoryHealth:         "Gesundheit",
		extraction.CategoryEntertainment:  "Unterhaltung",
		extraction.CategoryUtilities:      "Nebenkosten",
		extraction.CategoryHome:           "Zuhause",
		extraction.CategoryOther:          "Sonstiges",
	},
	"es": {
		extraction.CategoryFoodDining:     "Comida y restaurantes",
		extraction.CategoryGroceries:      "Supermercado",
		extraction.CategoryShopping:       "Compras",
		extraction.CategoryTransportation: "Transporte",
		extraction.CategoryHealth:         "Salud",
		extraction.CategoryEntertainment:  "Entretenimiento",
		extraction.CategoryUtilities:      "Servicios",
		extraction.CategoryHome:           "Hogar",
		extraction.CategoryOther:          "Otros",
	},
}

var messages = map[string]map[string]string{
	"en": {
		"greetingWithData":    "Hi! I'm Savvy, your financial assistant. I have your receipt history loaded — ask me anything about your spending!",
		"greetingWithoutData": "Hi! I'm Savvy, your financial assistant. Scan a few receipts and I can help you understand your spending.",
		"chatError":           "Sorry, something went wrong while answering. Please try again.",
		"extractionError":     "Could not read that receipt. Please try a clearer photo.",
		"trendNotEnoughData":  "Not enough data yet. Scan at least two receipts this week to see your trend.",
	},
	"sr": {
		"greetingWithData":    "Zdravo! Ja sam Savvy, tvoj finansijski asistent. Učitao sam istoriju tvojih računa — pitaj me bilo šta o potrošnji!",
		"greetingWithoutData": "Zdravo! Ja sam Savvy, tvoj finansijski asistent. Skeniraj nekoliko računa i pomoći ću ti da razumeš potrošnju.",
		"chatError":           "Izvini, došlo je do greške pri odgovaranju. Pokušaj ponovo.",
		"extractionError":     "Nije moguće pročitati taj račun. Pokušaj sa jasnijom fotografijom.",
		"trendNotEnoughData":  "Još nema dovoljno podataka. Skeniraj bar dva računa ove nedelje da vidiš trend.",
	},
	"de": {
		"greetingWithData":    "Hallo! Ich bin Savvy, dein Finanzassistent. Deine Belege sind geladen — frag mich alles über deine Ausgaben!",
		"greetingWithoutData": "Hallo! Ich bin Savvy, dein Finanzassistent. Scanne ein paar Belege und ich helfe dir, deine Ausgaben zu verstehen.",
		"chatError":           "Entschuldigung, beim Antworten ist etwas schiefgelaufen. Bitte versuche es erneut.",
		"extractionError":     "Dieser Beleg konnte nicht gelesen werden. Bitte versuche ein schärferes Foto.",
		"trendNotEnoughData":  "Noch nicht genug Daten. Scanne diese Woche mindestens zwei Belege, um deinen Trend zu sehen.",
	},
	"es": {
		"greetingWithData":    "¡Hola! Soy Savvy, tu asistente financiero. Tengo tu historial de recibos cargado. ¡Pregúntame lo que quieras sobre tus gastos!",
		"greetingWithoutData": "¡Hola! Soy Savvy, tu asistente financiero. Escanea algunos recibos y te ayudaré a entender tus gastos.",
		"chatError":           "Lo siento, algo salió mal al responder. Inténtalo de nuevo.",
		"extractionError":     "No se pudo leer ese recibo. Prueba con una foto más clara.",
		"trendNotEnoughData":  "Aún no hay datos suficientes. Escanea al menos dos recibos esta semana para ver tu tendencia.",
	},
}

var csvHeaders = map[string][]string{
	"en": {"ID", "Store", "Date", "Category", "Subtotal", "Tax", "Total", "Currency", "Item", "Price"},
	"sr": {"ID", "Prodavnica", "Datum", "Kategorija", "Međuzbir", "Porez", "Ukupno", "Valuta", "Artikal", "Cena"},
	"de": {"ID", "Geschäft", "Datum", "Kategorie", "Zwischensumme", "Steuer", "Gesamt", "Währung", "Artikel", "Preis"},
	"es": {"ID", "Tienda", "Fecha", "Categoría", "Subtotal", "Impuesto", "Total", "Moneda", "Artículo", "Precio"},
}

// Normalize maps an arbitrary language code onto a supported one.
func Normalize(lang string) string {
	if _, ok := messages[lang]; ok {
		return lang
	}
	return fallback
}

// CategoryLabel returns the localized display label for a category.
func CategoryLabel(lang string, c extraction.Category) string {
	labels := categoryLabels[Normalize(lang)]
	if label, ok := labels[c]; ok {
		return label
	}
	return categoryLabels[fallback][extraction.CategoryOther]
}

func message(lang, key string) string {
	return messages[Normalize(lang)][key]
}

// GreetingWithData is the one-time session greeting when the ledger holds records.
func GreetingWithData(lang string) string { return message(lang, "greetingWithData") }

// GreetingWithoutData is the one-time session greeting for an empty ledger.
func GreetingWithoutData(lang string) string { return message(lang, "greetingWithoutData") }

// ChatError is the model-role message appended when a chat send fails.
func ChatError(lang string) string { return message(lang, "chatError") }

// ExtractionError is the user-visible banner for a failed extraction run.
func ExtractionError(lang string) string { return message(lang, "extractionError") }

// TrendNotEnoughData renders the insufficient-data sentinel.
func TrendNotEnoughData(lang string) string { return message(lang, "trendNotEnoughData") }

// CSVHeaders returns the localized export header row.
func CSVHeaders(lang string) []string {
	headers := csvHeaders[Normalize(lang)]
	out := make([]string, len(headers))
	copy(out, headers)
	return out
}
