package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ttkdelivery/ttk-backend/pkg/logger"
)

const defaultDriverLocationTTL = 10 * time.Minute

type driverLocationDropper interface {
	DropStale(ctx context.Context, cutoff time.Time) int
}

// DriverLocationSweepJobParams configure the stale driver ping sweep.
type DriverLocationSweepJobParams struct {
	Logger   *logger.Logger
	Drivers  driverLocationDropper
	TTL      time.Duration
	Interval time.Duration
}

// NewDriverLocationSweepJob evicts driver positions that stopped
// receiving pings, so stale drivers disappear from region listings.
func NewDriverLocationSweepJob(params DriverLocationSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Drivers == nil {
		return nil, fmt.Errorf("drivers service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultDriverLocationTTL
	}
	return &driverLocationSweepJob{
		logg:     params.Logger,
		drivers:  params.Drivers,
		ttl:      ttl,
		interval: params.Interval,
		now:      time.Now,
	}, nil
}

type driverLocationSweepJob struct {
	logg     *logger.Logger
	drivers  driverLocationDropper
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func (j *driverLocationSweepJob) Name() string { return "driver-location-sweep" }

func (j *driverLocationSweepJob) Interval() time.Duration { return j.interval }

func (j *driverLocationSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	dropped := j.drivers.DropStale(ctx, cutoff)
	if dropped > 0 {
		j.logg.Info(j.logg.WithField(ctx, "drivers_dropped", dropped), "stale driver locations evicted")
	}
	return nil
}
