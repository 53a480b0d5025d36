package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ttkdelivery/ttk-backend/pkg/logger"
)

const defaultStaleCartTTL = 30 * 24 * time.Hour

type cartSweeper interface {
	SweepStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// StaleCartSweepJobParams configure the abandoned cart sweep.
type StaleCartSweepJobParams struct {
	Logger   *logger.Logger
	Carts    cartSweeper
	TTL      time.Duration
	Interval time.Duration
}

// NewStaleCartSweepJob deletes carts untouched for longer than the TTL.
func NewStaleCartSweepJob(params StaleCartSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultStaleCartTTL
	}
	return &staleCartSweepJob{
		logg:     params.Logger,
		carts:    params.Carts,
		ttl:      ttl,
		interval: params.Interval,
		now:      time.Now,
	}, nil
}

type staleCartSweepJob struct {
	logg     *logger.Logger
	carts    cartSweeper
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func (j *staleCartSweepJob) Name() string { return "stale-cart-sweep" }

func (j *staleCartSweepJob) Interval() time.Duration { return j.interval }

func (j *staleCartSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	deleted, err := j.carts.SweepStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("stale cart sweep: %w", err)
	}
	if deleted > 0 {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"cutoff":       cutoff,
			"rows_deleted": deleted,
		})
		j.logg.Info(logCtx, "stale carts removed")
	}
	return nil
}
