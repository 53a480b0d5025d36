package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ttkdelivery/ttk-backend/pkg/logger"
)

type fireSaleSweeper interface {
	SweepExpiredFireSales(ctx context.Context, now time.Time) (int, error)
}

// FireSaleSweepJobParams configure the fire sale sweep.
type FireSaleSweepJobParams struct {
	Logger   *logger.Logger
	Catalog  fireSaleSweeper
	Interval time.Duration
}

// NewFireSaleSweepJob ends fire sales whose window has closed.
func NewFireSaleSweepJob(params FireSaleSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	return &fireSaleSweepJob{
		logg:     params.Logger,
		catalog:  params.Catalog,
		interval: params.Interval,
		now:      time.Now,
	}, nil
}

type fireSaleSweepJob struct {
	logg     *logger.Logger
	catalog  fireSaleSweeper
	interval time.Duration
	now      func() time.Time
}

func (j *fireSaleSweepJob) Name() string { return "fire-sale-sweep" }

func (j *fireSaleSweepJob) Interval() time.Duration { return j.interval }

func (j *fireSaleSweepJob) Run(ctx context.Context) error {
	ended, err := j.catalog.SweepExpiredFireSales(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("fire sale sweep: %w", err)
	}
	if ended > 0 {
		j.logg.Info(j.logg.WithField(ctx, "sales_ended", ended), "expired fire sales closed")
	}
	return nil
}
