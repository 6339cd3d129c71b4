package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	authrepo "dabble-backend/internal/auth/repository"
	"dabble-backend/internal/journal/repository"
	"dabble-backend/pkg/logger"
)

// AnalysisJob asks for an entry to be analysed and possibly followed up.
type AnalysisJob struct {
	UserID  string
	EntryID string
}

// AnalysisWorkerService runs analysis and follow-ups off the request path.
type AnalysisWorkerService struct {
	entryRepo   repository.EntryRepository
	userRepo    authrepo.UserRepository
	analysis    *AnalysisGenerator
	followUp    *FollowUpGenerator
	log         *logger.Logger
	jobTimeout  time.Duration
	jobQueue    chan AnalysisJob
	workerWg    sync.WaitGroup
	workerCount int
	started     bool
	stopped     bool
	mu          sync.Mutex
}

func NewAnalysisWorkerService(
	entryRepo repository.EntryRepository,
	userRepo authrepo.UserRepository,
	analysis *AnalysisGenerator,
	followUp *FollowUpGenerator,
	workerCount int,
	log *logger.Logger,
) *AnalysisWorkerService {
	if workerCount <= 0 {
		workerCount = 2
	}
	return &AnalysisWorkerService{
		entryRepo:   entryRepo,
		userRepo:    userRepo,
		analysis:    analysis,
		followUp:    followUp,
		log:         log.With("service", "AnalysisWorker"),
		jobTimeout:  2 * time.Minute,
		jobQueue:    make(chan AnalysisJob, 500),
		workerCount: workerCount,
	}
}

func (s *AnalysisWorkerService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return
	}
	for i := 0; i < s.workerCount; i++ {
		s.workerWg.Add(1)
		go s.worker(i)
	}
	s.started = true
	s.log.Info("Analysis workers started", "count", s.workerCount)
}

// Stop drains queued jobs and waits for the workers.
func (s *AnalysisWorkerService) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.jobQueue)
	s.mu.Unlock()

	s.workerWg.Wait()
	s.log.Info("Analysis workers stopped")
}

func (s *AnalysisWorkerService) worker(id int) {
	defer s.workerWg.Done()
	for job := range s.jobQueue {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		if err := s.Process(ctx, job); err != nil {
			s.log.Error("Analysis job failed", "worker", id, "entry_id", job.EntryID, "error", err)
		}
		cancel()
	}
}

// QueueJob adds a job without blocking; it reports false when the queue is full or stopped.
func (s *AnalysisWorkerService) QueueJob(job AnalysisJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	select {
	case s.jobQueue <- job:
		return true
	default:
		return false
	}
}

// Process ensures the entry has an analysis, then sends a follow-up if one is due.
// A follow-up failure is logged and does not fail the job.
func (s *AnalysisWorkerService) Process(ctx context.Context, job AnalysisJob) error {
	entry, err := s.entryRepo.FindByID(job.EntryID)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}

	analysis := entry.Analysis
	if analysis == nil {
		analysis, err = s.analysis.Generate(ctx, entry)
		if err != nil {
			return fmt.Errorf("generate analysis: %w", err)
		}
	}

	if s.followUp == nil {
		return nil
	}
	user, err := s.userRepo.FindByID(entry.UserID)
	if err != nil || user == nil {
		return err
	}
	if _, err := s.followUp.MaybeSend(ctx, user, entry, analysis); err != nil {
		s.log.Warn("Follow-up failed", "entry_id", entry.ID, "error", err)
	}
	return nil
}
