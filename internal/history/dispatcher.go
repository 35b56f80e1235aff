package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lovedemo/seedManage/internal/domain"
	"github.com/lovedemo/seedManage/internal/metrics"
)

const (
	defaultQueueSize    = 256
	defaultDrainTimeout = 5 * time.Second
)

// Dispatcher moves finished search outcomes into a Store on a single
// background worker. Submit never blocks: when the queue is full the entry
// is dropped and counted.
type Dispatcher struct {
	store           Store
	logger          *slog.Logger
	retry           RetryConfig
	resultsPerEntry int
	now             func() time.Time
	queue           chan domain.HistoryEntry
	done            chan struct{}

	mu     sync.RWMutex
	closed bool
}

type DispatcherOption func(*Dispatcher)

func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithRetryConfig(cfg RetryConfig) DispatcherOption {
	return func(d *Dispatcher) {
		d.retry = cfg
	}
}

func WithResultsPerEntry(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.resultsPerEntry = n
		}
	}
}

func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan domain.HistoryEntry, n)
		}
	}
}

func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func NewDispatcher(store Store, opts ...DispatcherOption) *Dispatcher {
	if store == nil {
		store = Discard{}
	}
	d := &Dispatcher{
		store:           store,
		logger:          slog.Default(),
		retry:           DefaultRetryConfig(),
		resultsPerEntry: DefaultResultsPerEntry,
		now:             time.Now,
		queue:           make(chan domain.HistoryEntry, defaultQueueSize),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Store() Store {
	return d.store
}

// Submit queues outcome for storage and returns immediately. Outcomes
// submitted after Close are counted as dropped.
func (d *Dispatcher) Submit(outcome domain.SearchOutcome) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.HistoryDroppedTotal.Inc()
		return
	}
	entry := NewEntry(outcome, d.resultsPerEntry, d.now())
	select {
	case d.queue <- entry:
	default:
		metrics.HistoryDroppedTotal.Inc()
		d.logger.Warn("history queue full, dropping entry", slog.String("query", entry.Query))
	}
}

// Run writes queued entries until Close is called, then drains what is left
// within a short grace period. Cancelling ctx closes the dispatcher first, so
// no entry is accepted once the worker is gone.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.Close()
			d.drain()
			return nil
		case <-d.done:
			d.drain()
			return nil
		case entry := <-d.queue:
			d.write(ctx, entry)
		}
	}
}

// Close stops accepting entries. Run returns after writing the backlog.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.done)
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultDrainTimeout)
	defer cancel()
	for {
		select {
		case entry := <-d.queue:
			d.write(ctx, entry)
		default:
			return
		}
	}
}

func (d *Dispatcher) write(ctx context.Context, entry domain.HistoryEntry) {
	backend := d.store.Name()
	err := RetryWithBackoff(ctx, d.retry, func() error {
		return d.store.Record(ctx, entry)
	})
	if err != nil {
		metrics.HistoryWritesTotal.WithLabelValues(backend, "error").Inc()
		d.logger.Warn("history write failed",
			slog.String("backend", backend),
			slog.String("query", entry.Query),
			slog.String("error", err.Error()),
		)
		return
	}
	metrics.HistoryWritesTotal.WithLabelValues(backend, "ok").Inc()
}
