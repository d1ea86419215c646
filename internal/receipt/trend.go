package receipt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Summarizer issues the weekly spending summary call.
type Summarizer interface {
	WeeklySummary(ctx context.Context, records []Record, lang string) (string, error)
}

// ErrNotEnoughData signals that fewer than two records fall in the trailing
// 7-day window. Callers render it with a localized message; it is never
// model output.
var ErrNotEnoughData = errors.New("not enough records in the weekly window")

// Trend recomputes the rolling weekly spending summary. Refreshes are
// explicit: the orchestrating caller invokes Refresh after a ledger
// mutation completes. Overlapping refreshes resolve last-triggered-wins
// against the retained value.
type Trend struct {
	mu         sync.Mutex
	ledger     *Ledger
	summarizer Summarizer
	clock      TimeSource
	gen        uint64
	current    string
	hasCurrent bool
}

// NewTrend creates a Trend over the ledger with the system clock.
func NewTrend(ledger *Ledger, summarizer Summarizer) *Trend {
	return NewTrendWithClock(ledger, summarizer, systemClock{})
}

// NewTrendWithClock creates a Trend with a custom clock for testing.
func NewTrendWithClock(ledger *Ledger, summarizer Summarizer, clock TimeSource) *Trend {
	return &Trend{ledger: ledger, summarizer: summarizer, clock: clock}
}

// Refresh recomputes the summary from the current weekly window. With fewer
// than two qualifying records it clears the retained value and returns
// ErrNotEnoughData without calling the model.
func (t *Trend) Refresh(ctx context.Context, lang string) (string, error) {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	recent := weeklyWindow(t.ledger.All(), t.clock.Now())
	if len(recent) < 2 {
		t.mu.Lock()
		if gen == t.gen {
			t.current = ""
			t.hasCurrent = false
		}
		t.mu.Unlock()
		return "", ErrNotEnoughData
	}

	summary, err := t.summarizer.WeeklySummary(ctx, recent, lang)
	if err != nil {
		// Retained value is left untouched; the failure is the caller's
		// to log and silently skip.
		return "", fmt.Errorf("generating weekly summary: %w", err)
	}
	summary = strings.TrimSpace(summary)

	t.mu.Lock()
	if gen == t.gen {
		t.current = summary
		t.hasCurrent = true
	}
	t.mu.Unlock()
	return summary, nil
}

// Current returns the retained summary, if any.
func (t *Trend) Current() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.hasCurrent
}

// weeklyWindow selects records dated within the trailing 7 days of now.
// Records with unparseable dates are skipped.
func weeklyWindow(records []Record, now time.Time) []Record {
	cutoff := now.AddDate(0, 0, -7)
	var out []Record
	for _, rec := range records {
		d, err := time.Parse("2006-01-02", rec.Date)
		if err != nil {
			continue
		}
		if !d.Before(cutoff.Truncate(24 * time.Hour)) {
			out = append(out, rec)
		}
	}
	return out
}
