// Package scheduler triggers the daily ingestion run for every
// registered source.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/penang-weather/forecast-aggregation/internal/forecast"
)

// Pipeline is one source's full fetch→normalize→reconcile→persist run.
type Pipeline func(ctx context.Context) error

// Scheduler fires one ingestion run per source once a day at a fixed
// wall-clock time. Pipelines are injected per tag; a failure (or panic)
// in one source's run is logged and never affects the others or the
// scheduler itself.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	at         string
	runTimeout time.Duration
	pipelines  map[forecast.SourceTag]Pipeline
}

// New creates a Scheduler firing daily at the given HH:MM local time.
func New(at string, runTimeout time.Duration) *Scheduler {
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.Local),
		at:         at,
		runTimeout: runTimeout,
		pipelines:  make(map[forecast.SourceTag]Pipeline),
	}
}

// Register binds a source tag to its pipeline. Must be called before Start.
func (s *Scheduler) Register(tag forecast.SourceTag, p Pipeline) {
	s.pipelines[tag] = p
}

// Start schedules the daily job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.pipelines) == 0 {
		log.Println("scheduler: no pipelines registered; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(1).Day().At(s.at).Do(func() {
		log.Println("scheduler: running daily ingestion")
		s.RunOnce(context.Background())
		log.Println("scheduler: daily ingestion completed")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce runs every registered pipeline concurrently and waits for all
// of them to settle. Exposed so tests can trigger ingestion without
// waiting for the wall clock.
func (s *Scheduler) RunOnce(ctx context.Context) {
	var wg sync.WaitGroup
	for tag, pipeline := range s.pipelines {
		tag, pipeline := tag, pipeline
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("scheduler: %s ingestion panicked: %v", tag, r)
				}
			}()

			runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
			defer cancel()

			if err := pipeline(runCtx); err != nil {
				log.Printf("scheduler: %s ingestion failed: %v", tag, err)
			}
		}()
	}
	wg.Wait()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
