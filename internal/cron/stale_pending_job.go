package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/orderflow/pkg/logger"
)

const defaultPendingTimeout = 2 * time.Hour

type pendingOrderCounter interface {
	CountPendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type stalePendingGauge interface {
	SetStalePending(count int64)
}

// StalePendingJobParams configure the stale pending-order monitor.
type StalePendingJobParams struct {
	Logger  *logger.Logger
	Orders  pendingOrderCounter
	Gauge   stalePendingGauge
	Timeout time.Duration
}

// NewStalePendingJob reports orders that stayed pending longer than Timeout.
// These usually mean a lost webhook and need an operator to reconcile them.
func NewStalePendingJob(params StalePendingJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultPendingTimeout
	}
	return &stalePendingJob{
		logg:    params.Logger,
		orders:  params.Orders,
		gauge:   params.Gauge,
		timeout: timeout,
		now:     time.Now,
	}, nil
}

type stalePendingJob struct {
	logg    *logger.Logger
	orders  pendingOrderCounter
	gauge   stalePendingGauge
	timeout time.Duration
	now     func() time.Time
}

func (j *stalePendingJob) Name() string { return "stale-pending-orders" }

func (j *stalePendingJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.timeout)
	count, err := j.orders.CountPendingBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("count stale pending orders: %w", err)
	}
	if j.gauge != nil {
		j.gauge.SetStalePending(count)
	}
	if count == 0 {
		return nil
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"count":   count,
		"cutoff":  cutoff,
		"timeout": j.timeout.String(),
	})
	j.logg.Warn(logCtx, "orders stuck in pending payment")
	return nil
}
