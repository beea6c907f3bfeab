package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
)

// SummaryPublisher delivers a snapshot to the downstream topic.
type SummaryPublisher interface {
	PublishSummary(ctx context.Context, snapshot domain.SummarySnapshot) error
}

const (
	maxPublishAttempts = 3
	initialBackoff     = 200 * time.Millisecond
	maxBackoff         = 5 * time.Second
)

// SnapshotPublisher publishes a summary snapshot after each successful
// dataset load. Loads only enqueue; Run does the publishing so a slow broker
// never holds up a page request. Only the most recent pending snapshot is kept.
type SnapshotPublisher struct {
	publisher SummaryPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	queue     chan domain.SummarySnapshot
}

// NewSnapshotPublisher creates a SnapshotPublisher.
func NewSnapshotPublisher(pub SummaryPublisher, logger *slog.Logger, metrics *observability.Metrics) *SnapshotPublisher {
	return &SnapshotPublisher{
		publisher: pub,
		logger:    logger,
		metrics:   metrics,
		queue:     make(chan domain.SummarySnapshot, 1),
	}
}

// NewSnapshot builds the snapshot for a freshly loaded table.
func NewSnapshot(table domain.Table) domain.SummarySnapshot {
	// Summarize reports ErrNoDataAvailable for a header-only document; the
	// zero summary it returns alongside is what gets published.
	summary, _ := domain.Summarize(table)
	return domain.SummarySnapshot{
		ID:        uuid.NewString(),
		Summary:   summary,
		Rows:      table.Len(),
		FetchedAt: table.FetchedAt,
	}
}

// OnLoad enqueues a snapshot of table, replacing any snapshot still waiting.
// It has the dataset.Listener signature.
func (p *SnapshotPublisher) OnLoad(_ context.Context, table domain.Table) {
	snap := NewSnapshot(table)
	for {
		select {
		case p.queue <- snap:
			return
		default:
		}
		select {
		case stale := <-p.queue:
			p.logger.Debug("dropping superseded snapshot", "id", stale.ID)
		default:
		}
	}
}

// Run publishes queued snapshots until the context is cancelled.
func (p *SnapshotPublisher) Run(ctx context.Context) error {
	p.logger.Info("snapshot publisher started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("snapshot publisher stopping", "reason", ctx.Err())
			return nil
		case snap := <-p.queue:
			p.publish(ctx, snap)
		}
	}
}

// publish tries a bounded number of times with exponential backoff. A
// snapshot that still fails is logged and dropped.
func (p *SnapshotPublisher) publish(ctx context.Context, snap domain.SummarySnapshot) {
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		err := p.publisher.PublishSummary(ctx, snap)
		if err == nil {
			p.metrics.SummaryPublishes.WithLabelValues("success").Inc()
			p.logger.Info("summary snapshot published",
				"id", snap.ID,
				"rows", snap.Rows,
				"last_updated", snap.Summary.LastUpdated,
			)
			return
		}

		p.metrics.SummaryPublishes.WithLabelValues("error").Inc()
		if ctx.Err() != nil {
			return
		}
		if attempt >= maxPublishAttempts {
			p.logger.Error("summary snapshot dropped", "id", snap.ID, "attempts", attempt, "error", err)
			return
		}
		p.logger.Warn("publish summary failed, retrying", "id", snap.ID, "attempt", attempt, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}
