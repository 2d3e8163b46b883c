package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxIdleBackoff        = 10 * time.Second

	reasonUndeliverable = "undeliverable"
	reasonMaxAttempts   = "max_attempts"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type rowStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type sink interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
}

type relayMetrics interface {
	ObservePublished(eventType string)
	ObserveFailed(eventType string)
	ObserveTerminal(eventType, reason string)
}

type RelayParams struct {
	Logger         *logger.Logger
	DB             txRunner
	Store          rowStore
	Routes         resolver
	Sink           sink
	Metrics        relayMetrics
	BatchSize      int
	MaxAttempts    int
	PollInterval   time.Duration
	PublishTimeout time.Duration
}

// Relay drains outbox_events into Pub/Sub. Each batch is fetched and marked in
// one transaction, so a crash between publish and commit re-sends the batch.
// Consumers dedupe on the event_id attribute.
type Relay struct {
	logg           *logger.Logger
	db             txRunner
	store          rowStore
	routes         resolver
	sink           sink
	metrics        relayMetrics
	batchSize      int
	maxAttempts    int
	pollInterval   time.Duration
	publishTimeout time.Duration
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database is required")
	case p.Store == nil:
		return nil, errors.New("outbox store is required")
	case p.Routes == nil:
		return nil, errors.New("event routes are required")
	case p.Sink == nil:
		return nil, errors.New("publish sink is required")
	}
	r := &Relay{
		logg:           p.Logger,
		db:             p.DB,
		store:          p.Store,
		routes:         p.Routes,
		sink:           p.Sink,
		metrics:        p.Metrics,
		batchSize:      p.BatchSize,
		maxAttempts:    p.MaxAttempts,
		pollInterval:   p.PollInterval,
		publishTimeout: p.PublishTimeout,
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = defaultMaxAttempts
	}
	if r.pollInterval <= 0 {
		r.pollInterval = defaultPollInterval
	}
	if r.publishTimeout <= 0 {
		r.publishTimeout = defaultPublishTimeout
	}
	return r, nil
}

// Run loops until ctx is canceled. Full batches are followed immediately by
// the next one; empty batches and errors back off.
func (r *Relay) Run(ctx context.Context) error {
	pace := newPacer(r.pollInterval, maxIdleBackoff)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.drain(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox batch failed", err)
			wait = pace.failure()
		case n == 0:
			wait = pace.idle()
		default:
			pace.reset()
			continue
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// drain handles one batch and returns how many rows it touched.
func (r *Relay) drain(ctx context.Context) (int, error) {
	var n int
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.store.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch batch: %w", err)
		}
		n = len(rows)
		for _, row := range rows {
			if err := r.handle(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return n, err
}

func (r *Relay) handle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	rowCtx := r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	})
	eventType := string(row.EventType)

	resolved, err := r.routes.Resolve(row)
	if err != nil {
		return r.bury(rowCtx, tx, row, reasonUndeliverable, err)
	}
	rowCtx = r.logg.WithFields(rowCtx, map[string]any{
		"event_id": resolved.Envelope.EventID,
		"topic":    resolved.Route.Topic,
	})

	err = r.send(ctx, row, resolved)
	switch {
	case err == nil:
		if err := r.store.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		if r.metrics != nil {
			r.metrics.ObservePublished(eventType)
		}
		r.logg.Debug(rowCtx, "outbox event published")
		return nil
	case registry.IsPermanent(err):
		return r.bury(rowCtx, tx, row, reasonUndeliverable, err)
	case row.AttemptCount+1 >= r.maxAttempts:
		return r.bury(rowCtx, tx, row, reasonMaxAttempts, fmt.Errorf("gave up after %d attempts: %w", row.AttemptCount+1, err))
	}

	r.logg.Warn(r.logg.WithField(rowCtx, "error", err.Error()), "outbox publish failed, will retry")
	if r.metrics != nil {
		r.metrics.ObserveFailed(eventType)
	}
	if err := r.store.MarkFailedTx(tx, row.ID, err); err != nil {
		return fmt.Errorf("mark failed %s: %w", row.ID, err)
	}
	return nil
}

// bury pins the row at maxAttempts so FetchUnpublishedForPublish skips it.
func (r *Relay) bury(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason string, cause error) error {
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"terminal_reason": reason,
		"error":           cause.Error(),
	})
	r.logg.Warn(logCtx, "outbox event dropped")
	if r.metrics != nil {
		r.metrics.ObserveTerminal(string(row.EventType), reason)
	}
	if err := r.store.MarkTerminalTx(tx, row.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	return nil
}

func (r *Relay) send(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"schema_version": strconv.Itoa(resolved.Envelope.Version),
		"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	sendCtx, cancel := context.WithTimeout(ctx, r.publishTimeout)
	defer cancel()
	_, err := r.sink.Publish(sendCtx, resolved.Route.Topic, row.Payload, attrs)
	return err
}

// pacer doubles the wait after each failure up to max, with up to 25% jitter.
type pacer struct {
	base time.Duration
	max  time.Duration
	cur  time.Duration
}

func newPacer(base, max time.Duration) *pacer {
	return &pacer{base: base, max: max, cur: base}
}

func (p *pacer) reset() { p.cur = p.base }

func (p *pacer) idle() time.Duration {
	p.reset()
	return jitter(p.base)
}

func (p *pacer) failure() time.Duration {
	p.cur = min(p.cur*2, p.max)
	return jitter(p.cur)
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(d/4+1)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
