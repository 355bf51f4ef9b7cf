package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestNewCronSchedulerRejectsBadExpression(t *testing.T) {
	t.Parallel()

	if _, err := NewCronScheduler("every morning", time.UTC, nil); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestCronSchedulerRunsJobInLocation(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	s, err := NewCronScheduler("@every 1s", loc, nil)
	if err != nil {
		t.Fatalf("NewCronScheduler: %v", err)
	}

	fired := make(chan time.Time, 1)
	if err := s.Start(context.Background(), func(at time.Time) {
		select {
		case fired <- at:
		default:
		}
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = s.Stop(context.Background()) }()

	if s.NextRun().IsZero() {
		t.Fatalf("expected next run after start")
	}

	select {
	case at := <-fired:
		if at.Location().String() != "Europe/Berlin" {
			t.Fatalf("trigger location = %s", at.Location())
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not fire")
	}
}

func TestCronSchedulerStopsWithContext(t *testing.T) {
	t.Parallel()

	s, err := NewCronScheduler("0 6 * * *", time.UTC, nil)
	if err != nil {
		t.Fatalf("NewCronScheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx, func(time.Time) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for !s.NextRun().IsZero() {
		if time.Now().After(deadline) {
			t.Fatalf("scheduler still running after context cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop must be a no-op: %v", err)
	}
}
