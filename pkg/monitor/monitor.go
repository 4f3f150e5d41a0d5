package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// TaskState describes the lifecycle state of a supervised goroutine.
type TaskState string

const (
	TaskRunning   TaskState = "running"
	TaskStopped   TaskState = "stopped"
	TaskFailed    TaskState = "failed"
	TaskPanicked  TaskState = "panicked"
	TaskCompleted TaskState = "completed"
)

// TaskStatus is a point-in-time view of a supervised goroutine.
type TaskStatus struct {
	Name          string
	State         TaskState
	StartedAt     time.Time
	EndedAt       time.Time
	LastHeartbeat time.Time
	Err           error
	Stalled       bool
}

// TaskFunc is the function run under Supervisor.Go. Implementations
// should call beat periodically while making progress.
type TaskFunc func(ctx context.Context, beat func()) error

// Supervisor runs long-lived goroutines, recovering panics and warning
// when a task stops heartbeating.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	tasks map[string]*task
	wg    sync.WaitGroup

	stallThreshold time.Duration
	checkInterval  time.Duration
}

type Option func(*Supervisor)

// WithStallThreshold overrides how long a running task may go without a
// heartbeat before a warning is logged.
func WithStallThreshold(d time.Duration) Option {
	return func(s *Supervisor) { s.stallThreshold = d }
}

// WithCheckInterval overrides how often tasks are inspected.
func WithCheckInterval(d time.Duration) Option {
	return func(s *Supervisor) { s.checkInterval = d }
}

func New(opts ...Option) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		ctx:            ctx,
		cancel:         cancel,
		tasks:          make(map[string]*task),
		stallThreshold: 2 * time.Minute,
		checkInterval:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stallThreshold > 0 && s.checkInterval > 0 {
		go s.watch()
	}
	return s
}

// Go runs fn in its own goroutine under supervision. The returned
// channel is closed when the task exits.
func (s *Supervisor) Go(name string, fn TaskFunc) <-chan struct{} {
	taskCtx, cancel := context.WithCancel(s.ctx)
	t := newTask(name)

	s.mu.Lock()
	s.tasks[name] = t
	s.mu.Unlock()

	done := make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer close(done)
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				t.finish(TaskPanicked, fmt.Errorf("panic: %v", r))
				log.Errorf("task %s panicked: %v", name, r)
			}
			cancel()
		}()

		err := fn(taskCtx, t.beat)
		switch {
		case err == nil && taskCtx.Err() == nil:
			t.finish(TaskCompleted, nil)
		case err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			t.finish(TaskStopped, taskCtx.Err())
		default:
			t.finish(TaskFailed, err)
			log.WithError(err).Errorf("task %s failed", name)
		}
	}()

	return done
}

// Status returns the latest status of the named task.
func (s *Supervisor) Status(name string) TaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tasks[name]; ok {
		return t.status()
	}
	return TaskStatus{Name: name}
}

// Snapshot returns the status of every task.
func (s *Supervisor) Snapshot() []TaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]TaskStatus, 0, len(s.tasks))
	for _, t := range s.tasks {
		statuses = append(statuses, t.status())
	}
	return statuses
}

// Stop cancels every task and waits for all of them to exit.
func (s *Supervisor) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Supervisor) watch() {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.inspect()
		}
	}
}

func (s *Supervisor) inspect() {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tasks {
		t.mu.Lock()
		if t.state == TaskRunning {
			since := now.Sub(t.lastHeartbeat)
			if since > s.stallThreshold {
				if !t.stalled {
					t.stalled = true
					log.Warnf("task %s stalled, no heartbeat for %s", t.name, since.Truncate(time.Millisecond))
				}
			} else if t.stalled {
				t.stalled = false
				log.Infof("task %s recovered after stall", t.name)
			}
		}
		t.mu.Unlock()
	}
}

type task struct {
	name          string
	state         TaskState
	startedAt     time.Time
	endedAt       time.Time
	lastHeartbeat time.Time
	err           error
	stalled       bool
	mu            sync.RWMutex
}

func newTask(name string) *task {
	now := time.Now()
	return &task{
		name:          name,
		state:         TaskRunning,
		startedAt:     now,
		lastHeartbeat: now,
	}
}

func (t *task) beat() {
	t.mu.Lock()
	t.lastHeartbeat = time.Now()
	t.mu.Unlock()
}

func (t *task) finish(state TaskState, err error) {
	t.mu.Lock()
	t.state = state
	t.endedAt = time.Now()
	t.err = err
	t.mu.Unlock()
}

func (t *task) status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return TaskStatus{
		Name:          t.name,
		State:         t.state,
		StartedAt:     t.startedAt,
		EndedAt:       t.endedAt,
		LastHeartbeat: t.lastHeartbeat,
		Err:           t.err,
		Stalled:       t.stalled,
	}
}
