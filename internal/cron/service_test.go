package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ttkdelivery/ttk-backend/pkg/logger"
)

type fakeLock struct {
	locked   bool
	err      error
	acquires atomic.Int32
	releases atomic.Int32
}

func (f *fakeLock) Acquire(ctx context.Context) (bool, error) {
	f.acquires.Add(1)
	if f.err != nil {
		return false, f.err
	}
	return f.locked, nil
}

func (f *fakeLock) Release(ctx context.Context) error {
	f.releases.Add(1)
	return nil
}

type stubJob struct {
	name     string
	interval time.Duration
	runs     atomic.Int32
	err      error
}

func (s *stubJob) Name() string            { return s.name }
func (s *stubJob) Interval() time.Duration { return s.interval }
func (s *stubJob) Run(ctx context.Context) error {
	s.runs.Add(1)
	return s.err
}

func newCronService(t *testing.T, registry *Registry, lock Lock) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Registry: registry,
		Locks:    func(string) (Lock, error) { return lock, nil },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRunCycleRunsJobWhenLockAcquired(t *testing.T) {
	lock := &fakeLock{locked: true}
	job := &stubJob{name: "sweep", interval: time.Hour}
	svc := newCronService(t, NewRegistry(job), lock)

	svc.runCycle(context.Background(), job, lock)

	if job.runs.Load() != 1 {
		t.Fatalf("expected 1 run, got %d", job.runs.Load())
	}
	if lock.releases.Load() != 1 {
		t.Fatalf("expected lock released once, got %d", lock.releases.Load())
	}
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	lock := &fakeLock{locked: false}
	job := &stubJob{name: "sweep", interval: time.Hour}
	svc := newCronService(t, NewRegistry(job), lock)

	svc.runCycle(context.Background(), job, lock)

	if job.runs.Load() != 0 {
		t.Fatalf("expected job skipped, got %d runs", job.runs.Load())
	}
	if lock.releases.Load() != 0 {
		t.Fatalf("expected no release without acquire, got %d", lock.releases.Load())
	}
}

func TestRunCycleReleasesLockOnJobFailure(t *testing.T) {
	lock := &fakeLock{locked: true}
	job := &stubJob{name: "sweep", interval: time.Hour, err: errors.New("boom")}
	svc := newCronService(t, NewRegistry(job), lock)

	svc.runCycle(context.Background(), job, lock)

	if lock.releases.Load() != 1 {
		t.Fatalf("expected lock released after failure, got %d", lock.releases.Load())
	}
}

func TestRunExecutesEachJobOnce(t *testing.T) {
	lock := &fakeLock{locked: true}
	first := &stubJob{name: "first", interval: time.Hour}
	second := &stubJob{name: "second", interval: time.Hour}
	svc := newCronService(t, NewRegistry(first, second), lock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = svc.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for first.runs.Load() == 0 || second.runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("jobs never ran: first=%d second=%d", first.runs.Load(), second.runs.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRegistrySkipsNilJobs(t *testing.T) {
	registry := NewRegistry(nil, &stubJob{name: "only"})
	registry.Register(nil)

	jobs := registry.Jobs()
	if len(jobs) != 1 || jobs[0].Name() != "only" {
		t.Fatalf("expected one registered job, got %d", len(jobs))
	}
}
