package receipt

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"scansave/internal/extraction"
	"scansave/internal/locale"
)

// Ledger is the authoritative, ordered collection of records,
// most-recent-first. It is a single-writer structure: every mutation
// synchronously writes the full snapshot through the store, and every read
// hands out copies.
type Ledger struct {
	mu      sync.Mutex
	store   Store
	records []Record
}

// NewLedger rehydrates the ledger from the last persisted snapshot. A
// missing or corrupt snapshot starts the ledger empty; it is never fatal.
func NewLedger(store Store) *Ledger {
	records, err := store.Load()
	if err != nil {
		slog.Warn("Failed to load ledger snapshot, starting empty", "error", err)
		records = nil
	}
	return &Ledger{store: store, records: records}
}

// Insert assigns the record's ID, prepends it as the new head, and persists
// the snapshot.
func (l *Ledger) Insert(rec Record, id string) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec.ID = id
	l.records = append([]Record{rec}, l.records...)
	if err := l.store.Save(l.records); err != nil {
		l.records = l.records[1:]
		return Record{}, fmt.Errorf("saving ledger snapshot: %w", err)
	}
	return rec, nil
}

// Delete removes the matching record and persists the snapshot. Deleting an
// absent id is a no-op.
func (l *Ledger) Delete(id string) (Record, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, rec := range l.records {
		if rec.ID != id {
			continue
		}
		l.records = append(l.records[:i], l.records[i+1:]...)
		if err := l.store.Save(l.records); err != nil {
			return Record{}, false, fmt.Errorf("saving ledger snapshot: %w", err)
		}
		return rec, true, nil
	}
	return Record{}, false, nil
}

// Find returns the record with the given id.
func (l *Ledger) Find(id string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, rec := range l.records {
		if rec.ID == id {
			return copyRecord(rec), true
		}
	}
	return Record{}, false
}

// All returns a snapshot copy of the ledger in order.
func (l *Ledger) All() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyRecords(l.records)
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Search filters the ledger by a case-insensitive substring match against
// the store name, the localized category label, and any line-item
// description. An empty query returns the full ledger in order.
func (l *Ledger) Search(query, lang string) []Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return l.All()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Record
	for _, rec := range l.records {
		if matchesQuery(rec, q, lang) {
			out = append(out, copyRecord(rec))
		}
	}
	return out
}

// FilterByCategory returns the subsequence matching the category, or the
// whole ledger for "all".
func (l *Ledger) FilterByCategory(category string) []Record {
	if category == "" || category == "all" {
		return l.All()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Record
	for _, rec := range l.records {
		if rec.Category == extraction.Category(category) {
			out = append(out, copyRecord(rec))
		}
	}
	return out
}

func matchesQuery(rec Record, q, lang string) bool {
	if strings.Contains(strings.ToLower(rec.StoreName), q) {
		return true
	}
	if strings.Contains(strings.ToLower(locale.CategoryLabel(lang, rec.Category)), q) {
		return true
	}
	for _, item := range rec.Items {
		if strings.Contains(strings.ToLower(item.Description), q) {
			return true
		}
	}
	return false
}

func copyRecord(rec Record) Record {
	out := rec
	out.Items = append([]extraction.LineItem(nil), rec.Items...)
	return out
}

func copyRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, rec := range records {
		out[i] = copyRecord(rec)
	}
	return out
}
