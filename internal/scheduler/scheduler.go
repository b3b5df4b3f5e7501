package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/tonnomolt/housing-prices-fi/internal/config"
	"github.com/tonnomolt/housing-prices-fi/internal/ingest"
)

// Runner triggers one ingestion run.
type Runner interface {
	IngestSource(ctx context.Context, src config.Source) (*ingest.RunSummary, error)
}

// Scheduler runs every configured source on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
}

// New creates a scheduler around the given runner.
func New(runner Runner) *Scheduler {
	return &Scheduler{cron: cron.New(), runner: runner}
}

// Schedule registers one cron entry per source. A failed run is logged, it
// never stops the schedule.
func (s *Scheduler) Schedule(spec string, sources []config.Source) error {
	for _, src := range sources {
		src := src
		_, err := s.cron.AddFunc(spec, func() {
			summary, err := s.runner.IngestSource(context.Background(), src)
			if err != nil {
				log.Printf("Scheduled ingestion for source %s failed: %v", src.Name, err)
				return
			}
			log.Printf("Scheduled ingestion for source %s finished: %d records, %d skipped", src.Name, summary.Records, summary.Skipped)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule source %s with spec %q: %w", src.Name, spec, err)
		}
	}
	return nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("Scheduler started with %d entries", len(s.cron.Entries()))
}

// Stop stops the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

// Entries reports how many cron entries are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
