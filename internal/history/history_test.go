package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lovedemo/seedManage/internal/domain"
	"github.com/lovedemo/seedManage/internal/metrics"
)

func outcome(query string, n int) domain.SearchOutcome {
	items := make([]domain.ResourceDescriptor, n)
	for i := range items {
		items[i] = domain.ResourceDescriptor{
			Title:    fmt.Sprintf("%s-%d", query, i),
			Trackers: []string{"udp://tracker.example:1"},
			Source:   "sample",
		}
	}
	return domain.SearchOutcome{
		Mode:        domain.ModeSearch,
		Query:       query,
		Items:       items,
		AdapterUsed: "sample",
		ResultCount: n,
	}
}

func entryAt(query string, at time.Time) domain.HistoryEntry {
	e := NewEntry(outcome(query, 1), 0, at)
	return e
}

// memoryStore is a Store fake that can fail a set number of times.
type memoryStore struct {
	mu       sync.Mutex
	entries  []domain.HistoryEntry
	failures atomic.Int32
	err      error
	calls    atomic.Int32
	block    chan struct{}
}

func (m *memoryStore) Name() string { return "memory" }

func (m *memoryStore) Record(ctx context.Context, entry domain.HistoryEntry) error {
	m.calls.Add(1)
	if m.block != nil {
		<-m.block
	}
	if m.failures.Load() > 0 {
		m.failures.Add(-1)
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]domain.HistoryEntry{entry}, m.entries...)
	return nil
}

func (m *memoryStore) List(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.HistoryEntry(nil), m.entries...), nil
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastDispatcherRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// ---------------------------------------------------------------------------
// Entries
// ---------------------------------------------------------------------------

func TestNewEntryTruncatesAndCopies(t *testing.T) {
	src := outcome("ubuntu", 30)
	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.FixedZone("x", 3600))
	entry := NewEntry(src, 20, at)

	if entry.ID == "" || entry.Query != "ubuntu" || entry.Mode != domain.ModeSearch {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if len(entry.Results) != 20 {
		t.Fatalf("expected 20 results, got %d", len(entry.Results))
	}
	if entry.CreatedAt.Location() != time.UTC {
		t.Fatal("expected UTC timestamp")
	}
	if entry.Meta.ResultCount != 30 || entry.Meta.Adapter != "sample" {
		t.Fatalf("unexpected meta: %#v", entry.Meta)
	}
	entry.Results[0].Trackers[0] = "changed"
	if src.Items[0].Trackers[0] == "changed" {
		t.Fatal("entry aliases outcome trackers")
	}
}

func TestNewEntryIDsAreUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewEntry(outcome("q", 0), 0, now).ID
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}

// ---------------------------------------------------------------------------
// File store
// ---------------------------------------------------------------------------

func TestFileStoreNewestFirstAndCapped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	store, err := NewFileStore(path, 3)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	base := time.Now()
	for i := 0; i < 5; i++ {
		if err := store.Record(context.Background(), entryAt(fmt.Sprintf("q%d", i), base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Query != "q4" || entries[2].Query != "q2" {
		t.Fatalf("unexpected order: %s, %s", entries[0].Query, entries[2].Query)
	}

	limited, _ := store.List(context.Background(), 1)
	if len(limited) != 1 || limited[0].Query != "q4" {
		t.Fatalf("unexpected limited list: %#v", limited)
	}

	reopened, err := NewFileStore(path, 3)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	again, _ := reopened.List(context.Background(), 0)
	if len(again) != 3 || again[0].ID != entries[0].ID {
		t.Fatal("history did not survive reopen")
	}
}

func TestFileStoreEmpty(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "history.json"), 0)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	entries, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", entries)
	}
}

// ---------------------------------------------------------------------------
// SQLite store
// ---------------------------------------------------------------------------

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"), 2)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	base := time.Now()
	for i := 0; i < 3; i++ {
		if err := store.Record(context.Background(), entryAt(fmt.Sprintf("q%d", i), base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	entries, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Query != "q2" || entries[1].Query != "q1" {
		t.Fatalf("unexpected entries: %#v", entries)
	}
	if len(entries[0].Results) != 1 || entries[0].Results[0].Source != "sample" {
		t.Fatalf("results not preserved: %#v", entries[0].Results)
	}
}

// ---------------------------------------------------------------------------
// Dispatcher
// ---------------------------------------------------------------------------

func TestDispatcherWritesSubmittedOutcomes(t *testing.T) {
	store := &memoryStore{}
	d := NewDispatcher(store, WithDispatcherLogger(quietLogger()), WithResultsPerEntry(2))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	d.Submit(outcome("a", 5))
	d.Submit(outcome("b", 1))
	waitFor(t, func() bool { return store.count() == 2 })

	entries, _ := store.List(context.Background(), 0)
	if entries[0].Query != "b" || len(entries[1].Results) != 2 {
		t.Fatalf("unexpected entries: %#v", entries)
	}
}

func TestDispatcherRetriesTransientFailures(t *testing.T) {
	store := &memoryStore{err: errors.New("database is locked")}
	store.failures.Store(2)
	d := NewDispatcher(store, WithDispatcherLogger(quietLogger()), WithRetryConfig(fastDispatcherRetry()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	d.Submit(outcome("a", 1))
	waitFor(t, func() bool { return store.count() == 1 })
	if store.calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", store.calls.Load())
	}
}

func TestDispatcherGivesUpOnPermanentFailure(t *testing.T) {
	store := &memoryStore{err: errors.New("disk full")}
	store.failures.Store(1)
	d := NewDispatcher(store, WithDispatcherLogger(quietLogger()), WithRetryConfig(fastDispatcherRetry()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	d.Submit(outcome("lost", 1))
	d.Submit(outcome("kept", 1))
	waitFor(t, func() bool { return store.count() == 1 })
	entries, _ := store.List(context.Background(), 0)
	if entries[0].Query != "kept" {
		t.Fatalf("unexpected entries: %#v", entries)
	}
}

func TestDispatcherSubmitNeverBlocks(t *testing.T) {
	store := &memoryStore{block: make(chan struct{})}
	d := NewDispatcher(store, WithDispatcherLogger(quietLogger()), WithQueueSize(2))
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = d.Run(ctx) }()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			d.Submit(outcome("q", 1))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked on a stuck store")
	}
	close(store.block)
	cancel()
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	store := &memoryStore{}
	d := NewDispatcher(store, WithDispatcherLogger(quietLogger()))
	for i := 0; i < 5; i++ {
		d.Submit(outcome(fmt.Sprintf("q%d", i), 1))
	}
	d.Close()
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.count() != 5 {
		t.Fatalf("expected queued entries to be drained, got %d", store.count())
	}
	d.Submit(outcome("late", 1))
	if store.count() != 5 {
		t.Fatal("submissions after Close must be dropped")
	}
}

func TestDispatcherRecordsUntilClosedAfterParentCancel(t *testing.T) {
	store := &memoryStore{}
	d := NewDispatcher(store, WithDispatcherLogger(quietLogger()))
	parent, cancel := context.WithCancel(context.Background())
	cancel()

	stopped := make(chan struct{})
	go func() {
		_ = d.Run(context.WithoutCancel(parent))
		close(stopped)
	}()

	d.Submit(outcome("in-flight", 1))
	waitFor(t, func() bool { return store.count() == 1 })

	dropped := testutil.ToFloat64(metrics.HistoryDroppedTotal)
	d.Close()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	d.Submit(outcome("late", 1))
	if got := testutil.ToFloat64(metrics.HistoryDroppedTotal) - dropped; got != 1 {
		t.Fatalf("expected one dropped entry, got %v", got)
	}
	if store.count() != 1 {
		t.Fatalf("late entry must not be stored, got %d", store.count())
	}
}

func TestDispatcherCancelStopsAccepting(t *testing.T) {
	store := &memoryStore{}
	d := NewDispatcher(store, WithDispatcherLogger(quietLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	dropped := testutil.ToFloat64(metrics.HistoryDroppedTotal)
	d.Submit(outcome("orphan", 1))
	if got := testutil.ToFloat64(metrics.HistoryDroppedTotal) - dropped; got != 1 {
		t.Fatalf("submission after the worker stopped should count as dropped, got %v", got)
	}
	if len(d.queue) != 0 {
		t.Fatalf("entry queued with no worker: %d", len(d.queue))
	}
}

// ---------------------------------------------------------------------------
// Open
// ---------------------------------------------------------------------------

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		backend string
		want    string
	}{
		{"", "file"},
		{"file", "file"},
		{"none", "none"},
		{"SQLite", "sqlite"},
	}
	for _, tc := range cases {
		store, err := Open(context.Background(), Config{
			Backend:    tc.backend,
			File:       filepath.Join(dir, "history.json"),
			SQLitePath: filepath.Join(dir, "history.db"),
		})
		if err != nil {
			t.Fatalf("Open(%q): %v", tc.backend, err)
		}
		if store.Name() != tc.want {
			t.Fatalf("Open(%q) = %s, want %s", tc.backend, store.Name(), tc.want)
		}
		_ = store.Close()
	}

	if _, err := Open(context.Background(), Config{Backend: "tape"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
