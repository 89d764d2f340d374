package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/dfs-showdown/internal/overunder"
)

const (
	jobRetrain  = "over_under_retrain"
	jobPredict  = "over_under_predict"
	dateLayout  = "2006-01-02"
	jobDeadline = 10 * time.Minute
)

// JobInfo is the scheduler's view of one recurring job.
type JobInfo struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Schedule   string        `json:"schedule"`
	LastRun    time.Time     `json:"last_run"`
	NextRun    time.Time     `json:"next_run"`
	Status     string        `json:"status"`
	RunCount   int           `json:"run_count"`
	ErrorCount int           `json:"error_count"`
	LastError  string        `json:"last_error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Scheduler runs background over/under jobs: backfilling yesterday's finals
// and retraining, and predicting today's games.
type Scheduler struct {
	overUnder       *OverUnderService
	cron            *cron.Cron
	retrainSchedule string
	predictSchedule string
	logger          *logrus.Entry
	now             func() time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	jobs      map[string]JobInfo
	entries   map[string]cron.EntryID
	isRunning bool
}

func NewScheduler(overUnder *OverUnderService, retrainSchedule, predictSchedule string, logger *logrus.Entry) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		overUnder:       overUnder,
		cron:            cron.New(cron.WithLogger(cron.VerbosePrintfLogger(logger))),
		retrainSchedule: retrainSchedule,
		predictSchedule: predictSchedule,
		logger:          logger.WithField("component", "scheduler"),
		now:             time.Now,
		ctx:             ctx,
		cancel:          cancel,
		jobs:            make(map[string]JobInfo),
		entries:         make(map[string]cron.EntryID),
	}
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if err := s.addJob(jobRetrain, s.retrainSchedule, "Backfill finals and retrain over/under model", s.Retrain); err != nil {
		return err
	}
	if s.predictSchedule != "" {
		if err := s.addJob(jobPredict, s.predictSchedule, "Predict today's game totals", s.PredictToday); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobs)).Info("Scheduler started")
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	s.cancel()
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out with jobs still running")
	}
	s.logger.Info("Scheduler stopped")
}

// Jobs returns a snapshot of all scheduled jobs.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for id, job := range s.jobs {
		if entryID, ok := s.entries[id]; ok {
			job.NextRun = s.cron.Entry(entryID).Next
		}
		out = append(out, job)
	}
	return out
}

func (s *Scheduler) addJob(id, schedule, name string, fn func(ctx context.Context) error) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		s.runJob(id, fn)
	})
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", id, err)
	}

	s.entries[id] = entryID
	s.jobs[id] = JobInfo{
		ID:       id,
		Name:     name,
		Schedule: schedule,
		Status:   "scheduled",
	}
	s.logger.WithFields(logrus.Fields{
		"job_id":   id,
		"schedule": schedule,
	}).Info("Scheduled job added")
	return nil
}

func (s *Scheduler) runJob(id string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	job := s.jobs[id]
	job.Status = "running"
	job.LastRun = s.now()
	job.RunCount++
	s.jobs[id] = job
	s.mu.Unlock()

	log := s.logger.WithFields(logrus.Fields{"job_id": id, "run_count": job.RunCount})
	start := time.Now()

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(s.ctx, jobDeadline)
		defer cancel()
		err = fn(ctx)
	}()

	duration := time.Since(start)
	if err != nil {
		log.WithError(err).WithField("duration", duration).Error("Job failed")
	} else {
		log.WithField("duration", duration).Info("Job completed")
	}
	s.updateJobStatus(id, err, duration)
}

func (s *Scheduler) updateJobStatus(id string, err error, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return
	}
	job.Duration = duration
	job.Status = "completed"
	if err != nil {
		job.Status = "failed"
		job.ErrorCount++
		job.LastError = err.Error()
	}
	s.jobs[id] = job
}

// Retrain records yesterday's final scores and refits the model on all
// games with known totals. Too little history keeps the current model.
func (s *Scheduler) Retrain(ctx context.Context) error {
	yesterday := s.now().AddDate(0, 0, -1).Format(dateLayout)
	updated, err := s.overUnder.RecordFinals(ctx, yesterday)
	if err != nil {
		return fmt.Errorf("backfill %s: %w", yesterday, err)
	}
	s.logger.WithFields(logrus.Fields{"date": yesterday, "games": updated}).Info("Recorded final scores")

	if _, err := s.overUnder.TrainFromHistory(ctx); err != nil {
		if errors.Is(err, overunder.ErrNotEnoughSamples) {
			s.logger.WithError(err).Warn("Skipping retrain")
			return nil
		}
		return err
	}
	return nil
}

func (s *Scheduler) PredictToday(ctx context.Context) error {
	today := s.now().Format(dateLayout)
	if _, err := s.overUnder.PredictGames(ctx, today); err != nil {
		if errors.Is(err, overunder.ErrModelNotTrained) {
			s.logger.Warn("Skipping predictions, model not trained")
			return nil
		}
		return err
	}
	return nil
}
