package dataset_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/dataset"
	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = "date,location,total_cases,new_cases,total_deaths,total_vaccinations,people_fully_vaccinated_per_hundred,gdp_per_capita,population,total_cases_per_million\n" +
	"2021-05-31,X,90,5,4,40,10,1000,1000000,90\n" +
	"2021-06-01,X,100,10,5,50,12,1000,1000000,100\n"

// --- mocks ---

type mockFetcher struct {
	mu    sync.Mutex
	docs  []string
	errs  []error
	calls atomic.Int64
	delay time.Duration
}

func (m *mockFetcher) Fetch(ctx context.Context) (io.ReadCloser, error) {
	i := int(m.calls.Add(1) - 1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	doc := testCSV
	if i < len(m.docs) {
		doc = m.docs[i]
	}
	return io.NopCloser(strings.NewReader(doc)), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fetchedAt = time.Date(2021, 6, 2, 8, 30, 0, 0, time.UTC)

func newTestStore(f dataset.Fetcher) (*dataset.Store, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewFakeClockAt(fetchedAt)
	return dataset.NewStore(f, clock, discardLogger(), metrics), metrics
}

// --- tests ---

func TestStore_Table_LoadsOnce(t *testing.T) {
	f := &mockFetcher{}
	store, metrics := newTestStore(f)

	table, err := store.Table(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, fetchedAt, table.FetchedAt)

	_, err = store.Table(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), f.calls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.DatasetLoads.WithLabelValues("success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.DatasetRows), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.DatasetReady), 0)
	require.NoError(t, store.CheckReadiness(context.Background()))
}

func TestStore_Table_ConcurrentFirstRequests(t *testing.T) {
	f := &mockFetcher{delay: 50 * time.Millisecond}
	store, _ := newTestStore(f)

	var wg sync.WaitGroup
	rows := make([]int, 16)
	for i := range rows {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table, err := store.Table(context.Background())
			assert.NoError(t, err)
			rows[i] = table.Len()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), f.calls.Load(), "only one fetch for concurrent first requests")
	for _, n := range rows {
		assert.Equal(t, 2, n)
	}
}

func TestStore_Table_FetchFailureFallsBackToEmptyTable(t *testing.T) {
	f := &mockFetcher{errs: []error{errors.New("connection refused")}}
	store, metrics := newTestStore(f)

	table, err := store.Table(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, domain.KnownColumns, table.Columns)

	// Failure is sticky; no retry on the next request.
	_, err = store.Table(context.Background())
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Equal(t, int64(1), f.calls.Load())

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.DatasetLoads.WithLabelValues("error")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.DatasetReady), 0)

	readyErr := store.CheckReadiness(context.Background())
	require.Error(t, readyErr)
	assert.Contains(t, readyErr.Error(), "dataset degraded")
}

func TestStore_Table_ParseFailureIsDataUnavailable(t *testing.T) {
	f := &mockFetcher{docs: []string{"date,location\nnot-a-date,X\n"}}
	store, _ := newTestStore(f)

	table, err := store.Table(context.Background())
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Equal(t, 0, table.Len())
}

func TestStore_Load_FailureDiscardsPriorData(t *testing.T) {
	f := &mockFetcher{errs: []error{nil, errors.New("timeout")}}
	store, _ := newTestStore(f)

	table, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	table, err = store.Load(context.Background())
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Equal(t, 0, table.Len())

	cached, err := store.Table(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, cached.Len())
}

func TestStore_Load_RecoversAfterFailure(t *testing.T) {
	f := &mockFetcher{errs: []error{errors.New("boom")}}
	store, _ := newTestStore(f)

	_, err := store.Table(context.Background())
	require.Error(t, err)

	table, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	require.NoError(t, store.CheckReadiness(context.Background()))
}

func TestStore_Table_IgnoresRequestCancellation(t *testing.T) {
	f := &mockFetcher{}
	store, _ := newTestStore(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	table, err := store.Table(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestStore_OnLoad(t *testing.T) {
	f := &mockFetcher{errs: []error{errors.New("down"), nil}}
	store, _ := newTestStore(f)

	var notified []int
	store.OnLoad(func(_ context.Context, table domain.Table) {
		notified = append(notified, table.Len())
	})

	_, _ = store.Table(context.Background())
	assert.Empty(t, notified, "failed loads are not announced")

	_, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2}, notified)
}

func TestStore_CheckReadiness_NotLoaded(t *testing.T) {
	store, _ := newTestStore(&mockFetcher{})

	err := store.CheckReadiness(context.Background())
	require.ErrorIs(t, err, dataset.ErrNotLoaded)
}

func TestStore_CheckReadiness_DoesNotWaitForInFlightLoad(t *testing.T) {
	const fetchDelay = 500 * time.Millisecond
	f := &mockFetcher{delay: fetchDelay}
	store, _ := newTestStore(f)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = store.Table(context.Background())
	}()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)

	start := time.Now()
	err := store.CheckReadiness(context.Background())
	assert.Less(t, time.Since(start), fetchDelay/2, "readiness must not block on the load")
	require.ErrorIs(t, err, dataset.ErrNotLoaded)

	<-done
	require.NoError(t, store.CheckReadiness(context.Background()))
}
