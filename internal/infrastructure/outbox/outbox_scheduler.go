package outbox

import (
	"context"
	"log"
	"time"
)

// Job is a unit of periodic background work such as draining the outbox or
// sweeping expired cart reservations.
type Job interface {
	Name() string
	RunOnce(ctx context.Context) (int, error)
}

type Scheduler struct {
	job      Job
	interval time.Duration
}

func NewScheduler(job Job, intervalSec int) *Scheduler {
	if intervalSec <= 0 {
		intervalSec = 1
	}
	return &Scheduler{
		job:      job,
		interval: time.Duration(intervalSec) * time.Second,
	}
}

// Run ticks until ctx is done. It blocks, so callers run it in their own goroutine.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Scheduler %s stopped", s.job.Name())
			return nil
		case <-ticker.C:
			n, err := s.job.RunOnce(ctx)
			if err != nil {
				log.Printf("Scheduler %s error: %v", s.job.Name(), err)
			} else if n > 0 {
				log.Printf("Scheduler %s processed %d items", s.job.Name(), n)
			}
		}
	}
}
