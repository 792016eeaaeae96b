package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/logger"
)

type SchedulerConfig struct {
	WorkerCount int
	QueueSize   int
}

type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// Job is one unit of background work. A zero Every runs it once; otherwise
// the job requeues itself Every after each completed run.
type Job struct {
	Name        string
	Run         func(ctx context.Context) error
	Delay       time.Duration
	Every       time.Duration
	Timeout     time.Duration
	RetryPolicy RetryPolicy
}

var (
	ErrSchedulerNotStarted   = errors.New("scheduler not started")
	ErrJobAlreadyScheduled   = errors.New("job already scheduled")
	errSchedulerShuttingDown = errors.New("scheduler is shutting down")
)

type Scheduler struct {
	config SchedulerConfig

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool

	queue chan queuedJob

	workerWG sync.WaitGroup
	jobWG    sync.WaitGroup
	timerWG  sync.WaitGroup

	activeJobs map[string]struct{}
}

type queuedJob struct {
	job     Job
	attempt int
	unique  bool
}

var (
	metricsOnce        sync.Once
	jobRunsTotal       *prometheus.CounterVec
	jobDurationSeconds *prometheus.HistogramVec
	jobLastSuccess     *prometheus.GaugeVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		jobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "digital_microscope",
			Subsystem: "background",
			Name:      "job_runs_total",
			Help:      "Total background job executions",
		}, []string{"job", "status"})

		jobDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "digital_microscope",
			Subsystem: "background",
			Name:      "job_duration_seconds",
			Help:      "Duration of background job executions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"})

		jobLastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "digital_microscope",
			Subsystem: "background",
			Name:      "job_last_success_timestamp",
			Help:      "Unix timestamp of the last successful background job execution",
		}, []string{"job"})
	})
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	initMetrics()

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}

	return &Scheduler{
		config:     cfg,
		queue:      make(chan queuedJob, cfg.QueueSize),
		activeJobs: make(map[string]struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	for i := 0; i < s.config.WorkerCount; i++ {
		s.workerWG.Add(1)
		go s.worker()
	}
}

func (s *Scheduler) worker() {
	defer s.workerWG.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case job := <-s.queue:
			s.execute(job)
		}
	}
}

func (s *Scheduler) execute(job queuedJob) {
	s.jobWG.Add(1)
	defer s.jobWG.Done()

	err := s.runJob(job)
	if err != nil && s.shouldRetry(job, err) {
		retry := job
		retry.attempt++
		// Backoff grows with the attempt so a flapping dependency gets
		// progressively more room to recover.
		retry.job.Delay = retry.job.RetryPolicy.Backoff * time.Duration(retry.attempt-1)
		s.dispatch(retry)
		return
	}

	s.finish(job, err)
}

// dispatch routes a job to the queue, waiting out any delay in its own
// goroutine. The queue only ever carries due jobs, so a long Delay or Every
// never occupies a worker.
func (s *Scheduler) dispatch(job queuedJob) {
	if job.job.Delay <= 0 {
		if !s.enqueue(job) {
			s.finish(job, context.Canceled)
		}
		return
	}

	delay := job.job.Delay
	job.job.Delay = 0

	s.timerWG.Add(1)
	go func() {
		defer s.timerWG.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			s.finish(job, context.Canceled)
		case <-timer.C:
			if !s.enqueue(job) {
				s.finish(job, context.Canceled)
			}
		}
	}()
}

func (s *Scheduler) runJob(job queuedJob) error {
	start := time.Now()
	status := "success"
	var runErr error

	ctx := s.ctx
	if job.job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.job.Timeout)
		defer cancel()
	}

	defer func() {
		jobDurationSeconds.WithLabelValues(job.job.Name).Observe(time.Since(start).Seconds())
		jobRunsTotal.WithLabelValues(job.job.Name, status).Inc()
		if status == "success" {
			jobLastSuccess.WithLabelValues(job.job.Name).Set(float64(time.Now().Unix()))
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("panic: %v", r)
			status = "failure"
			logger.Error(runErr, "Background job panicked", map[string]interface{}{"job": job.job.Name, "attempt": job.attempt})
		}
	}()

	select {
	case <-ctx.Done():
		status = "canceled"
		return ctx.Err()
	default:
	}

	runErr = job.job.Run(ctx)
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			status = "canceled"
		} else {
			status = "failure"
		}
		logger.Error(runErr, "Background job failed", map[string]interface{}{"job": job.job.Name, "attempt": job.attempt})
		return runErr
	}

	return nil
}

func (s *Scheduler) shouldRetry(job queuedJob, err error) bool {
	if job.job.RetryPolicy.MaxRetries <= 0 {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return job.attempt <= job.job.RetryPolicy.MaxRetries
}

func (s *Scheduler) enqueue(job queuedJob) bool {
	for {
		select {
		case <-s.ctx.Done():
			return false
		case s.queue <- job:
			return true
		}
	}
}

// finish closes out a run, requeuing recurring jobs. A recurring unique job
// keeps its activeJobs claim across runs so a second Schedule of the same
// name stays rejected for the job's whole lifetime. Cancellation ends the
// recurrence and releases the claim.
func (s *Scheduler) finish(job queuedJob, runErr error) {
	if job.job.Every > 0 && !errors.Is(runErr, context.Canceled) {
		next := queuedJob{job: job.job, attempt: 1, unique: job.unique}
		next.job.Delay = job.job.Every
		s.dispatch(next)
		s.logOutcome(job, runErr)
		return
	}

	if job.unique {
		s.mu.Lock()
		delete(s.activeJobs, job.job.Name)
		s.mu.Unlock()
	}

	s.logOutcome(job, runErr)
}

func (s *Scheduler) logOutcome(job queuedJob, runErr error) {
	fields := map[string]interface{}{"job": job.job.Name, "attempt": job.attempt}

	switch {
	case runErr == nil:
		logger.Info("Background job completed", fields)
	case errors.Is(runErr, context.Canceled):
		logger.Warn("Background job canceled", fields)
	default:
		logger.Error(runErr, "Background job finished with error", fields)
	}
}

func (s *Scheduler) Schedule(job Job) error {
	return s.schedule(job, false)
}

func (s *Scheduler) ScheduleUnique(job Job) error {
	return s.schedule(job, true)
}

func (s *Scheduler) schedule(job Job, unique bool) error {
	if job.Name == "" {
		return errors.New("job name is required")
	}
	if job.Run == nil {
		return errors.New("job runner is required")
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrSchedulerNotStarted
	}
	if unique {
		if _, exists := s.activeJobs[job.Name]; exists {
			s.mu.Unlock()
			return ErrJobAlreadyScheduled
		}
		s.activeJobs[job.Name] = struct{}{}
	}
	s.mu.Unlock()

	queued := queuedJob{job: job, attempt: 1, unique: unique}
	if queued.job.Delay > 0 {
		s.dispatch(queued)
		return nil
	}

	if !s.enqueue(queued) {
		if unique {
			s.mu.Lock()
			delete(s.activeJobs, job.Name)
			s.mu.Unlock()
		}
		return errSchedulerShuttingDown
	}

	return nil
}

func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		s.timerWG.Wait()
		s.jobWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) ActiveJobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeJobs)
}
