package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/sales-portal/internal/metrics"
	"github.com/diewo77/sales-portal/internal/models"
	"github.com/diewo77/sales-portal/internal/services"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrQueueFull is returned by Launch when every queue slot is taken. The
	// job is stored with status error.
	ErrQueueFull = errors.New("job queue is full")
	// ErrClosed is returned by Launch after Shutdown.
	ErrClosed = errors.New("job runner is shut down")
)

// LaunchInput describes a job to start.
type LaunchInput struct {
	Type    string          `json:"type"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// Options configures a Runner.
type Options struct {
	Workers   int
	QueueSize int
	Steps     StepSource
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// Runner executes jobs on a fixed set of workers fed by a bounded queue.
// A job's row is only written by the worker that runs it.
type Runner struct {
	db      *gorm.DB
	steps   StepSource
	log     *zap.Logger
	metrics *metrics.Metrics
	workers int

	queue chan uuid.UUID
	stop  chan struct{}
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	// ctx is handed to steps; it is only cancelled when Shutdown gives up.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRunner builds a runner. Call Start to launch the workers.
func NewRunner(db *gorm.DB, opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = opts.Workers
	}
	if opts.Steps == nil {
		opts.Steps = DemoSteps{Delay: time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		db:      db,
		steps:   opts.Steps,
		log:     opts.Logger,
		metrics: opts.Metrics,
		workers: opts.Workers,
		queue:   make(chan uuid.UUID, opts.QueueSize),
		stop:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the worker goroutines.
func (r *Runner) Start() {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	r.log.Info("job runner started", zap.Int("workers", r.workers), zap.Int("queue_size", cap(r.queue)))
}

// worker takes jobs off the queue until Shutdown. A job received after
// Shutdown began is left queued in the database for the next Recover.
func (r *Runner) worker() {
	defer r.wg.Done()
	for {
		if r.stopping() {
			return
		}
		select {
		case <-r.stop:
			return
		case id := <-r.queue:
			if r.stopping() {
				return
			}
			r.run(id)
		}
	}
}

func (r *Runner) stopping() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// Launch stores a queued job with its "created" log entry and hands it to
// the pool. It never waits for the job to run.
func (r *Runner) Launch(ctx context.Context, in LaunchInput) (*models.Job, error) {
	jobType := strings.TrimSpace(in.Type)
	if jobType == "" {
		jobType = DefaultType
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = "Job " + jobType
	}
	if len(jobType) > 50 {
		return nil, &services.ValidationError{Reason: "type is too long"}
	}
	if len([]rune(name)) > 120 {
		return nil, &services.ValidationError{Reason: "name is too long"}
	}
	payload := datatypes.JSON(`{}`)
	if p := strings.TrimSpace(string(in.Payload)); p != "" && p != "null" {
		if !json.Valid([]byte(p)) {
			return nil, &services.ValidationError{Reason: "payload is not valid JSON"}
		}
		payload = datatypes.JSON(p)
	}

	job := &models.Job{Name: name, Type: jobType, Status: models.JobStatusQueued, Payload: payload}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(job).Error; err != nil {
			return err
		}
		return tx.Create(&models.JobLog{JobID: job.ID, Level: models.LogLevelInfo, Message: "created"}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	r.metrics.JobsLaunched.WithLabelValues(ParseKind(jobType).String()).Inc()

	if err := r.enqueue(job); err != nil {
		return job, err
	}
	return job, nil
}

// enqueue hands a queued job to the pool, or marks it failed when the queue
// has no room. The caller owns the job until it is in the queue.
func (r *Runner) enqueue(job *models.Job) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	select {
	case r.queue <- job.ID:
		return nil
	default:
	}

	r.metrics.JobLaunchRejected.WithLabelValues("queue_full").Inc()
	r.log.Warn("job queue is full", zap.String("job_id", job.ID.String()), zap.String("type", job.Type))
	if err := newTracker(r.db, job).fail(ErrQueueFull); err != nil {
		r.log.Error("failed to mark rejected job", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
	return ErrQueueFull
}

// run executes a job's steps in order. The first fault stops the job.
func (r *Runner) run(id uuid.UUID) {
	var job models.Job
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		r.log.Error("load job", zap.String("job_id", id.String()), zap.Error(err))
		return
	}
	if job.Status != models.JobStatusQueued {
		return
	}

	kind := ParseKind(job.Type).String()
	logger := r.log.With(zap.String("job_id", job.ID.String()), zap.String("type", job.Type))
	t := newTracker(r.db, &job)

	r.metrics.JobsRunning.Inc()
	defer r.metrics.JobsRunning.Dec()

	if err := t.start(); err != nil {
		logger.Error("start job", zap.Error(err))
		return
	}
	logger.Info("job started")

	steps := r.steps.Steps(&job)
	n := len(steps)
	for i, step := range steps {
		began := time.Now()
		result, err := runStep(r.ctx, step)
		r.metrics.JobStepDuration.WithLabelValues(kind).Observe(time.Since(began).Seconds())
		if err != nil {
			logger.Warn("job step failed", zap.String("step", step.Title), zap.Error(err))
			if ferr := t.fail(err); ferr != nil {
				logger.Error("record job fault", zap.Error(ferr))
			}
			r.metrics.JobsFinished.WithLabelValues(kind, string(models.JobStatusError)).Inc()
			return
		}
		if err := t.stepDone(step.Title, result, (i+1)*100/n); err != nil {
			logger.Error("record job step", zap.Error(err))
			return
		}
	}

	if err := t.succeed(); err != nil {
		logger.Error("finish job", zap.Error(err))
		return
	}
	r.metrics.JobsFinished.WithLabelValues(kind, string(models.JobStatusSuccess)).Inc()
	logger.Info("job finished", zap.String("status", string(models.JobStatusSuccess)))
}

// runStep turns a panic inside a step into an error.
func runStep(ctx context.Context, step Step) (result map[string]any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("step %q panicked: %v", step.Title, rec)
		}
	}()
	result, err = step.Run(ctx)
	if result == nil {
		result = map[string]any{}
	}
	return result, err
}

// Recover is called once at startup. Jobs left running by a previous
// process are marked error. Jobs still queued are handed to the pool in
// creation order by a feeder that waits for free queue slots, so a backlog
// larger than the queue is never rejected. requeued counts the jobs given to
// the feeder; those it has not delivered when Shutdown starts stay queued.
func (r *Runner) Recover(ctx context.Context) (interrupted, requeued int, err error) {
	var running []models.Job
	if err := r.db.WithContext(ctx).Where("status = ?", models.JobStatusRunning).Find(&running).Error; err != nil {
		return 0, 0, err
	}
	for i := range running {
		if err := newTracker(r.db, &running[i]).fail(errors.New("interrupted by restart")); err != nil {
			return interrupted, 0, err
		}
		interrupted++
	}

	var pending []uuid.UUID
	err = r.db.WithContext(ctx).Model(&models.Job{}).
		Where("status = ?", models.JobStatusQueued).
		Order("created_at").Order("id").
		Pluck("id", &pending).Error
	if err != nil {
		return interrupted, 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return interrupted, 0, ErrClosed
	}
	if len(pending) > 0 {
		r.wg.Add(1)
		go r.feed(pending)
	}
	requeued = len(pending)
	if interrupted > 0 || requeued > 0 {
		r.log.Info("recovered jobs", zap.Int("interrupted", interrupted), zap.Int("requeued", requeued))
	}
	return interrupted, requeued, nil
}

// feed blocks on the queue for each id until Shutdown.
func (r *Runner) feed(ids []uuid.UUID) {
	defer r.wg.Done()
	for _, id := range ids {
		select {
		case <-r.stop:
			return
		case r.queue <- id:
		}
	}
}

// Shutdown stops accepting jobs and waits for running ones. When ctx ends
// first, running steps are cancelled and ctx's error is returned. Jobs still
// queued stay queued for the next Recover.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.stop)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	}
}
