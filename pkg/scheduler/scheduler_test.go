package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reisbot/reisbot/pkg/failure"
)

func TestAddJobRejectsInvalidExpression(t *testing.T) {
	s := New()
	err := s.AddJob(Job{Name: "bad", Expr: "not a cron", Run: func(context.Context) {}})
	if !failure.IsKind(err, failure.InvalidSpec) {
		t.Fatalf("expected InvalidSpec failure, got %v", err)
	}
}

func TestRunDueFiresMatchingJobsOnly(t *testing.T) {
	s := New()
	var everyMinute, nineAM atomic.Int32
	if err := s.AddJob(Job{Name: "every-minute", Expr: "* * * * *", Run: func(context.Context) {
		everyMinute.Add(1)
	}}); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := s.AddJob(Job{Name: "morning", Expr: "0 9 * * *", Run: func(context.Context) {
		nineAM.Add(1)
	}}); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	noon := time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC)
	s.runDue(context.Background(), noon)

	deadline := time.After(2 * time.Second)
	for everyMinute.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("every-minute job did not fire")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	if nineAM.Load() != 0 {
		t.Fatal("morning job fired at noon")
	}
}

func TestStartStop(t *testing.T) {
	s := New()
	s.Start()
	s.Stop()
	// Stop on an already stopped scheduler must not block or panic.
	s.cancel = nil
	s.Stop()
}
