package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"atelier/internal/ingest"
)

// Scheduler runs periodic feed syndication.
type Scheduler struct {
	ingest   *ingest.Service
	interval time.Duration
}

// New creates a new scheduler.
func New(svc *ingest.Service, interval time.Duration) *Scheduler {
	if interval == 0 {
		interval = 30 * time.Minute
	}
	return &Scheduler{
		ingest:   svc,
		interval: interval,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start.
	fmt.Fprintln(os.Stderr, "scheduler: initial ingest...")
	s.ingestOnce(ctx)

	fmt.Fprintf(os.Stderr, "scheduler: running (ingest every %s)\n", s.interval)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "scheduler: stopped")
			return ctx.Err()
		case <-ticker.C:
			fmt.Fprintln(os.Stderr, "scheduler: ingesting...")
			s.ingestOnce(ctx)
		}
	}
}

func (s *Scheduler) ingestOnce(ctx context.Context) {
	n, err := s.ingest.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  ingest error: %v\n", err)
	}
	fmt.Fprintf(os.Stderr, "  ingested: %d notes\n", n)
}
