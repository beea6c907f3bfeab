// Package dataset owns the process-wide observation table: it loads it once,
// caches it, and reports readiness.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Fetcher retrieves the raw CSV document.
type Fetcher interface {
	Fetch(ctx context.Context) (io.ReadCloser, error)
}

// ErrNotLoaded is reported by CheckReadiness until the first load completes.
var ErrNotLoaded = errors.New("dataset not loaded")

// Listener is notified after every successful load.
type Listener func(ctx context.Context, table domain.Table)

// Store caches the observation table. The first call to Table triggers a
// load; concurrent callers wait for that load instead of starting their own.
type Store struct {
	fetcher   Fetcher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	listeners []Listener

	mu      sync.Mutex
	table   domain.Table
	loadErr error
	loaded  bool

	// outcome mirrors loadErr for readers that must not wait on mu while a
	// load is in flight. Nil until the first load completes.
	outcome atomic.Pointer[loadOutcome]
}

type loadOutcome struct {
	err error
}

// NewStore creates a Store. Pass a nil clock to use the real one.
func NewStore(f Fetcher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		fetcher: f,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// OnLoad registers a listener for successful loads. Not safe to call
// concurrently with Load or Table.
func (s *Store) OnLoad(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Table returns the cached table, loading it on first use. When the load
// failed the returned table is empty (with the known column set) and the
// error wraps domain.ErrDataUnavailable. The failed state is kept until the
// next explicit Load.
func (s *Store) Table(ctx context.Context) (domain.Table, error) {
	s.mu.Lock()
	if s.loaded {
		defer s.mu.Unlock()
		return s.table, s.loadErr
	}
	return s.loadAndNotify(ctx)
}

// Load fetches and parses the dataset unconditionally, replacing the cache.
// On failure the cache is replaced by an empty table and prior data is discarded.
func (s *Store) Load(ctx context.Context) (domain.Table, error) {
	s.mu.Lock()
	return s.loadAndNotify(ctx)
}

// loadAndNotify must be called with s.mu held; it releases the lock before
// notifying listeners so a slow listener does not block readers.
func (s *Store) loadAndNotify(ctx context.Context) (domain.Table, error) {
	// The load outlives the request that triggered it; the fetcher's own
	// timeout bounds it.
	ctx = context.WithoutCancel(ctx)

	ok := s.loadLocked(ctx)
	table, err := s.table, s.loadErr
	s.mu.Unlock()

	if ok {
		for _, l := range s.listeners {
			l(ctx, table)
		}
	}
	return table, err
}

// CheckReadiness returns ErrNotLoaded before the first load completes and an
// error while the cached table is the fallback of a failed load. It never
// waits for an in-flight load.
func (s *Store) CheckReadiness(_ context.Context) error {
	o := s.outcome.Load()
	switch {
	case o == nil:
		return ErrNotLoaded
	case o.err != nil:
		return fmt.Errorf("dataset degraded: %w", o.err)
	}
	return nil
}

func (s *Store) loadLocked(ctx context.Context) bool {
	start := s.clock.Now()

	table, err := s.fetchAndParse(ctx)
	elapsed := s.clock.Since(start)
	s.metrics.DatasetLoadDuration.Observe(elapsed.Seconds())
	s.loaded = true

	if err != nil {
		s.table = domain.EmptyTable()
		s.loadErr = fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
		s.metrics.DatasetLoads.WithLabelValues("error").Inc()
		s.metrics.DatasetRows.Set(0)
		s.metrics.DatasetReady.Set(0)
		s.outcome.Store(&loadOutcome{err: s.loadErr})
		s.logger.Error("dataset load failed, serving empty table", "error", err, "duration", elapsed)
		return false
	}

	table.FetchedAt = s.clock.Now().UTC()
	s.table = table
	s.loadErr = nil
	s.metrics.DatasetLoads.WithLabelValues("success").Inc()
	s.metrics.DatasetRows.Set(float64(table.Len()))
	s.metrics.DatasetReady.Set(1)
	s.outcome.Store(&loadOutcome{})

	latest := "none"
	if d, ok := table.LatestDate(); ok {
		latest = d.Format(domain.DateLayout)
	}
	s.logger.Info("dataset loaded",
		"rows", table.Len(),
		"columns", table.Columns,
		"latest_date", latest,
		"duration", elapsed,
	)
	if err := table.Require(domain.KnownColumns...); err != nil {
		s.logger.Warn("dataset schema drift", "error", err)
	}
	return true
}

func (s *Store) fetchAndParse(ctx context.Context) (domain.Table, error) {
	body, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return domain.Table{}, err
	}
	defer body.Close()

	return domain.ParseCSV(body)
}
