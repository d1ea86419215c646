package receipt

// Store persists the full ledger snapshot. The ledger never touches the
// storage medium directly; any backing store that can load and save the
// ordered record list will do.
type Store interface {
	// Load returns the last persisted snapshot, most-recent-first.
	// A missing snapshot is not an error; it loads as an empty list.
	Load() ([]Record, error)

	// Save durably writes the full snapshot.
	Save(records []Record) error
}
