package refresh

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingRunner struct {
	runs atomic.Int32
}

func (r *countingRunner) Run(ctx context.Context) Result {
	r.runs.Add(1)
	return Result{State: StateDone}
}

func TestNewScheduler(t *testing.T) {
	if _, err := NewScheduler(SchedulerConfig{Schedule: "not a schedule"}, &countingRunner{}, nil); err == nil {
		t.Error("NewScheduler() expected error for invalid schedule")
	}

	s, err := NewScheduler(SchedulerConfig{}, &countingRunner{}, nil)
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	if s.cfg.Schedule != DefaultSchedule {
		t.Errorf("Schedule = %q, want %q", s.cfg.Schedule, DefaultSchedule)
	}
}

func TestScheduler_NextRuns(t *testing.T) {
	s, err := NewScheduler(SchedulerConfig{Schedule: DefaultSchedule}, &countingRunner{}, nil)
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}

	from := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	want := []time.Time{
		time.Date(2024, 3, 9, 5, 55, 0, 0, time.UTC),
		time.Date(2024, 3, 9, 11, 55, 0, 0, time.UTC),
		time.Date(2024, 3, 9, 17, 55, 0, 0, time.UTC),
		time.Date(2024, 3, 9, 23, 55, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 5, 55, 0, 0, time.UTC),
	}
	got := s.NextRuns(from, len(want))
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("run %d = %v, want %v", i, got[i], want[i])
		}
	}

	// Times in other zones are evaluated in UTC.
	ist := time.FixedZone("TRT", 3*3600)
	next := s.Next(time.Date(2024, 3, 9, 9, 0, 0, 0, ist)) // 06:00 UTC
	if !next.Equal(time.Date(2024, 3, 9, 11, 55, 0, 0, time.UTC)) {
		t.Errorf("Next() = %v, want 11:55 UTC", next)
	}
}

func TestScheduler_RunOnStart(t *testing.T) {
	runner := &countingRunner{}
	s, err := NewScheduler(SchedulerConfig{RunOnStart: true}, runner, nil)
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for runner.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}

	if got := runner.runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	runner := &countingRunner{}
	s, err := NewScheduler(SchedulerConfig{}, runner, nil)
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}

	// Nothing fires before the first scheduled time.
	if got := runner.runs.Load(); got != 0 {
		t.Errorf("runs = %d, want 0", got)
	}

	// A tick after Stop is ignored.
	s.tick()
	if got := runner.runs.Load(); got != 0 {
		t.Errorf("runs after stop = %d, want 0", got)
	}
}
