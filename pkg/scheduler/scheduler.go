package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/reisbot/reisbot/pkg/failure"
	"github.com/reisbot/reisbot/pkg/logger"
)

// Job is a named cron-scheduled task. Run receives a context that is
// cancelled when the scheduler stops.
type Job struct {
	Name string
	Expr string
	Run  func(ctx context.Context)
}

// Scheduler fires jobs on cron expressions with minute resolution.
type Scheduler struct {
	gron *gronx.Gronx

	mu   sync.Mutex
	jobs []Job

	cancel context.CancelFunc
	done   chan struct{}
}

func New() *Scheduler {
	return &Scheduler{gron: gronx.New()}
}

// AddJob registers a job. Invalid cron expressions are rejected up
// front so a typo cannot silently produce a job that never fires.
func (s *Scheduler) AddJob(job Job) error {
	if !s.gron.IsValid(job.Expr) {
		return failure.New(failure.InvalidSpec, "schedule_job", job.Expr)
	}
	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()
	logger.InfoCF("scheduler", "Job registered", map[string]interface{}{
		"name": job.Name,
		"expr": job.Expr,
	})
	return nil
}

// Start runs the tick loop in the background until Stop is called.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.runDue(ctx, now)
			}
		}
	}()
	logger.InfoC("scheduler", "Scheduler started")
}

func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	logger.InfoC("scheduler", "Scheduler stopped")
}

func (s *Scheduler) runDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	jobs := make([]Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.Unlock()

	for _, job := range jobs {
		due, err := s.gron.IsDue(job.Expr, now)
		if err != nil {
			logger.ErrorCF("scheduler", "Cron evaluation failed", map[string]interface{}{
				"name":  job.Name,
				"error": err.Error(),
			})
			continue
		}
		if !due {
			continue
		}
		logger.InfoCF("scheduler", "Running job", map[string]interface{}{"name": job.Name})
		go job.Run(ctx)
	}
}
