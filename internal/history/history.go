package history

import (
	"context"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/lovedemo/seedManage/internal/domain"
)

const (
	DefaultLimit           = 50
	DefaultResultsPerEntry = 20
)

// Store persists search history. List returns entries newest first.
type Store interface {
	Name() string
	Record(ctx context.Context, entry domain.HistoryEntry) error
	List(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
	Close() error
}

// NewEntry snapshots an outcome for storage, keeping at most
// resultsPerEntry results.
func NewEntry(outcome domain.SearchOutcome, resultsPerEntry int, now time.Time) domain.HistoryEntry {
	if resultsPerEntry <= 0 {
		resultsPerEntry = DefaultResultsPerEntry
	}
	items := outcome.Items
	if len(items) > resultsPerEntry {
		items = items[:resultsPerEntry]
	}
	results := make([]domain.ResourceDescriptor, len(items))
	for i, item := range items {
		item.Trackers = append([]string{}, item.Trackers...)
		results[i] = item
	}
	return domain.HistoryEntry{
		ID:        ksuid.New().String(),
		Query:     outcome.Query,
		CreatedAt: now.UTC(),
		Mode:      outcome.Mode,
		Meta:      outcome.Meta(),
		Results:   results,
	}
}

func clampLimit(limit, max int) int {
	if max <= 0 {
		max = DefaultLimit
	}
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

// Discard drops every entry. It backs the "none" history backend.
type Discard struct{}

func (Discard) Name() string { return "none" }

func (Discard) Record(context.Context, domain.HistoryEntry) error { return nil }

func (Discard) List(context.Context, int) ([]domain.HistoryEntry, error) {
	return []domain.HistoryEntry{}, nil
}

func (Discard) Close() error { return nil }
