package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lodeapp/lode/internal/config"
	"github.com/lodeapp/lode/internal/entities"
	"github.com/lodeapp/lode/internal/jobs"
	"github.com/robfig/cron/v3"
)

// ReindexScheduler periodically submits a reindex job that rebuilds the
// search index and recomputes stored conversation statistics.
type ReindexScheduler struct {
	manager *jobs.Manager
	config  config.ReindexSchedule

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewReindexScheduler creates a scheduler that submits reindex jobs to the manager.
func NewReindexScheduler(manager *jobs.Manager, cfg config.ReindexSchedule) *ReindexScheduler {
	return &ReindexScheduler{
		manager: manager,
		config:  cfg,
		cron:    cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if scheduled reindexing is enabled.
func (s *ReindexScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.config.Enabled {
		log.Printf("Reindex scheduler: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.runReindex()
	})
	if err != nil {
		return fmt.Errorf("invalid reindex schedule '%s': %w", s.config.Schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Reindex scheduler: started with schedule '%s'. Next run: %v",
		s.config.Schedule, s.cron.Entry(entryID).Next)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for an in-flight submission.
func (s *ReindexScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Reindex scheduler: stopped")
}

// RunNow triggers an immediate reindex submission.
func (s *ReindexScheduler) RunNow() error {
	go s.runReindex()
	return nil
}

// IsRunning returns whether the scheduler is active.
func (s *ReindexScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next scheduled reindex will occur.
func (s *ReindexScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	if next.IsZero() {
		return nil
	}
	return &next
}

func (s *ReindexScheduler) runReindex() {
	id, err := s.manager.Submit(entities.JobTypeReindex, jobs.Params{})
	if err != nil {
		log.Printf("Reindex scheduler: failed to submit reindex job: %v", err)
		return
	}
	log.Printf("Reindex scheduler: submitted reindex job %s", id)
}
