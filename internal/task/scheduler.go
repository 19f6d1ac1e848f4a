package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/slok/rbrowse/internal/log"
	"github.com/slok/rbrowse/internal/model"
	"github.com/slok/rbrowse/internal/remote"
	"github.com/slok/rbrowse/internal/storage"
)

// DefaultWorkers is the default number of concurrent task workers.
const DefaultWorkers = 4

// Poster marshals a function onto the interactive context.
type Poster interface {
	Post(fn func())
}

// ProgressFunc receives every progress change, it is called on the interactive context.
type ProgressFunc func(model.Progress)

// DoneFunc is a task continuation, it is called on the interactive context after the
// registry has released the task.
type DoneFunc func(model.Task)

// SchedulerConfig is the scheduler configuration.
type SchedulerConfig struct {
	Client remote.Client
	// Poster is the interactive context, completions are handed off through it.
	Poster Poster
	// Workers is the size of the worker pool (default: 4).
	Workers int
	// Repository is the task journal (optional).
	Repository storage.TaskRepository
	// OnProgress receives the progress updates (optional).
	OnProgress ProgressFunc
	Logger     log.Logger
}

func (c *SchedulerConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("client is required")
	}
	if c.Poster == nil {
		return fmt.Errorf("poster is required")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers can't be negative")
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.OnProgress == nil {
		c.OnProgress = func(model.Progress) {}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "task.Scheduler"})
	return nil
}

// Scheduler runs tasks on a fixed size worker pool fed by an unbounded queue.
//
// Submit and the registry belong to the interactive context, workers only execute the
// remote call and post the completion back.
type Scheduler struct {
	client     remote.Client
	poster     Poster
	workers    int
	repo       storage.TaskRepository
	onProgress ProgressFunc
	logger     log.Logger

	registry *Registry
	queue    *jobQueue
}

// NewScheduler returns a new scheduler, tasks are queued until Run starts the workers.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Scheduler{
		client:     cfg.Client,
		poster:     cfg.Poster,
		workers:    cfg.Workers,
		repo:       cfg.Repository,
		onProgress: cfg.OnProgress,
		logger:     cfg.Logger,
		registry:   NewRegistry(),
		queue:      newJobQueue(),
	}, nil
}

// Run starts the worker pool and blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	go func() {
		<-ctx.Done()
		s.queue.close()
	}()

	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			s.work(ctx)
			return nil
		})
	}

	s.logger.Debugf("Started %d workers", s.workers)
	return g.Wait()
}

// Submit registers a task and queues it for execution. It never blocks.
// Must be called from the interactive context.
func (s *Scheduler) Submit(t model.Task, onDone DoneFunc) (model.TaskID, error) {
	if err := t.Validate(); err != nil {
		return 0, fmt.Errorf("invalid task: %w", err)
	}

	t.ID = s.registry.Issue()
	t.State = model.TaskStatePending
	s.queue.push(job{task: t, onDone: onDone, createdAt: time.Now().UTC()})

	s.logger.Infof("Task %d submitted: %s %s", t.ID, t.Kind, t.Target())
	s.onProgress(s.registry.Progress())

	return t.ID, nil
}

// Progress returns the current progress. Must be called from the interactive context.
func (s *Scheduler) Progress() model.Progress { return s.registry.Progress() }

// Active returns the number of active tasks. Must be called from the interactive context.
func (s *Scheduler) Active() int { return s.registry.Active() }

func (s *Scheduler) work(ctx context.Context) {
	for {
		j, ok := s.queue.pop()
		if !ok {
			return
		}

		t := s.execute(ctx, j)
		s.poster.Post(func() { s.complete(t, j.onDone) })
	}
}

// execute runs the task on the worker, errors are caught here and become a failed state.
func (s *Scheduler) execute(ctx context.Context, j job) model.Task {
	t := j.task
	t.State = model.TaskStateRunning
	logger := s.logger.WithValues(log.Kv{"task-id": t.ID, "task-kind": t.Kind})

	rec := model.TaskRecord{
		ID:        ulid.Make().String(),
		TaskID:    t.ID,
		Kind:      t.Kind,
		Target:    t.Target(),
		Status:    t.State,
		CreatedAt: j.createdAt,
	}
	s.journal(ctx, logger, rec, true)

	logger.Debugf("Task started")
	out, err := Execute(ctx, s.client, t)
	if out != "" {
		logger.Debugf("Command output: %s", out)
	}

	t.Err = err
	t.State = model.TaskStateCompleted
	if err != nil {
		t.State = model.TaskStateFailed
		rec.Error = err.Error()
	}

	finishedAt := time.Now().UTC()
	rec.Status = t.State
	rec.FinishedAt = &finishedAt
	s.journal(ctx, logger, rec, false)

	return t
}

func (s *Scheduler) journal(ctx context.Context, logger log.Logger, rec model.TaskRecord, create bool) {
	if s.repo == nil {
		return
	}

	var err error
	if create {
		err = s.repo.CreateTaskRecord(ctx, rec)
	} else {
		err = s.repo.UpdateTaskRecord(ctx, rec)
	}
	if err != nil {
		logger.Warningf("Could not journal task: %s", err)
	}
}

// complete runs on the interactive context.
func (s *Scheduler) complete(t model.Task, onDone DoneFunc) {
	if !s.registry.Complete(t.ID) {
		s.logger.Warningf("Completion of unknown task %d ignored", t.ID)
		return
	}

	if t.Err != nil {
		s.logger.Errorf("Task %d failed: %s", t.ID, t.Err)
	} else {
		s.logger.Infof("Task %d completed: %s %s", t.ID, t.Kind, t.Target())
	}

	p := s.registry.Progress()
	if !p.Visible {
		s.logger.Debugf("All tasks finished")
	}
	s.onProgress(p)

	if onDone != nil {
		onDone(t)
	}
}

type job struct {
	task      model.Task
	onDone    DoneFunc
	createdAt time.Time
}

// jobQueue is an unbounded FIFO, push never blocks.
type jobQueue struct {
	cond   *sync.Cond
	jobs   []job
	closed bool
}

func newJobQueue() *jobQueue {
	return &jobQueue{cond: sync.NewCond(&sync.Mutex{})}
}

func (q *jobQueue) push(j job) {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()

	q.jobs = append(q.jobs, j)
	q.cond.Signal()
}

// pop waits for a job, returns false once the queue is closed.
func (q *jobQueue) pop() (job, bool) {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()

	for len(q.jobs) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return job{}, false
	}

	j := q.jobs[0]
	q.jobs[0] = job{}
	q.jobs = q.jobs[1:]
	return j, true
}

func (q *jobQueue) close() {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()

	q.closed = true
	q.cond.Broadcast()
}
