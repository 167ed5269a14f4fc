package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
	"github.com/atvirokodosprendimai/entitygen/internal/core/ports"
)

const defaultMaxAttempts = 5

// OutboxDispatcher delivers queued generation events to a publisher. Failed
// deliveries are retried with backoff until the attempt budget is spent,
// then dead-lettered.
type OutboxDispatcher struct {
	repo        ports.OutboxRepository
	publisher   ports.EventPublisher
	interval    time.Duration
	batchSize   int
	maxAttempts int

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	delivered atomic.Int64
	failed    atomic.Int64
	dead      atomic.Int64
}

type OutboxDispatcherMetrics struct {
	Delivered int64
	Failed    int64
	Dead      int64
}

func NewOutboxDispatcher(repo ports.OutboxRepository, publisher ports.EventPublisher, interval time.Duration, batchSize int) *OutboxDispatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &OutboxDispatcher{
		repo:        repo,
		publisher:   publisher,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: defaultMaxAttempts,
	}
}

// Start launches the delivery loop. Calling Start twice is a no-op.
func (d *OutboxDispatcher) Start(parent context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	d.cancel = cancel
	d.wg.Add(1)
	go d.loop(ctx)
}

func (d *OutboxDispatcher) Close() error {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
	return nil
}

func (d *OutboxDispatcher) loop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if err := d.dispatchBatch(ctx); err != nil {
			log.Printf("outbox dispatch batch error=%v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *OutboxDispatcher) dispatchBatch(ctx context.Context) error {
	pending, err := d.repo.FetchPending(ctx, d.batchSize)
	if err != nil {
		return err
	}

	for _, row := range pending {
		var event domain.GenerationEvent
		if err := json.Unmarshal(row.PayloadJSON, &event); err != nil {
			if err := d.retry(ctx, row, fmt.Sprintf("decode payload: %v", err)); err != nil {
				return err
			}
			continue
		}

		if err := d.publisher.Publish(ctx, row.Topic, event); err != nil {
			if err := d.retry(ctx, row, err.Error()); err != nil {
				return err
			}
			continue
		}

		if err := d.repo.MarkDispatched(ctx, row.ID); err != nil {
			return err
		}
		d.delivered.Add(1)
	}
	return nil
}

func (d *OutboxDispatcher) retry(ctx context.Context, row domain.OutboxEvent, reason string) error {
	d.failed.Add(1)
	attempts := row.Attempts + 1
	if attempts >= d.maxAttempts {
		if err := d.repo.MarkDead(ctx, row.ID, attempts, reason); err != nil {
			return err
		}
		d.dead.Add(1)
		log.Printf("outbox event dead-lettered id=%d event_id=%s attempts=%d error=%s", row.ID, row.EventID, attempts, reason)
		return nil
	}
	next := time.Now().UTC().Add(backoffDuration(attempts)).Format(time.RFC3339Nano)
	return d.repo.MarkFailed(ctx, row.ID, attempts, next, reason)
}

func (d *OutboxDispatcher) Metrics() OutboxDispatcherMetrics {
	return OutboxDispatcherMetrics{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dead:      d.dead.Load(),
	}
}

// backoffDuration grows quadratically and is capped at five minutes.
func backoffDuration(attempt int) time.Duration {
	if attempt <= 1 {
		return time.Second
	}
	d := time.Duration(attempt*attempt) * time.Second
	if d > 5*time.Minute {
		return 5 * time.Minute
	}
	return d
}
