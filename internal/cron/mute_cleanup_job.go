package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ttkdelivery/ttk-backend/pkg/logger"
)

type muteCleaner interface {
	CleanupExpiredTimers(ctx context.Context, now time.Time) (int64, error)
}

// MuteCleanupJobParams configure the mute timer cleanup.
type MuteCleanupJobParams struct {
	Logger        *logger.Logger
	Notifications muteCleaner
	Interval      time.Duration
}

// NewMuteCleanupJob drops notification mute rows whose timer has
// lapsed, so expired mutes do not accumulate.
func NewMuteCleanupJob(params MuteCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	return &muteCleanupJob{
		logg:          params.Logger,
		notifications: params.Notifications,
		interval:      params.Interval,
		now:           time.Now,
	}, nil
}

type muteCleanupJob struct {
	logg          *logger.Logger
	notifications muteCleaner
	interval      time.Duration
	now           func() time.Time
}

func (j *muteCleanupJob) Name() string { return "mute-cleanup" }

func (j *muteCleanupJob) Interval() time.Duration { return j.interval }

func (j *muteCleanupJob) Run(ctx context.Context) error {
	removed, err := j.notifications.CleanupExpiredTimers(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("mute cleanup: %w", err)
	}
	if removed > 0 {
		j.logg.Info(j.logg.WithField(ctx, "rows_deleted", removed), "expired mute timers removed")
	}
	return nil
}
