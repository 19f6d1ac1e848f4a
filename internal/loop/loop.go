// Package loop implements the interactive context: a single goroutine that executes
// posted functions one at a time in submission order.
//
// Everything that is only safe to mutate from one place (the tree cache, the task
// registry) is accessed exclusively from functions running on the loop.
package loop

import (
	"context"
	"fmt"
	"sync"

	"github.com/slok/rbrowse/internal/log"
)

// Config is the loop configuration.
type Config struct {
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "loop.Loop"})
	return nil
}

// Loop is a FIFO executor running on a single goroutine.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	notify  chan struct{}
	running bool
	logger  log.Logger
}

// New returns a new loop, it will not execute anything until Run is called.
func New(cfg Config) (*Loop, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Loop{
		notify: make(chan struct{}, 1),
		logger: cfg.Logger,
	}, nil
}

// Post enqueues fn to be executed on the loop. It never blocks, so it is safe to be
// called from the loop itself and from any worker.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Do posts fn and waits until it has been executed. It must not be called from the
// loop goroutine, it would deadlock.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes the posted functions until the context is cancelled. Only one Run can be
// active at a time.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("loop already running")
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	l.logger.Debugf("Loop started")
	for {
		for _, fn := range l.take() {
			fn()
		}

		select {
		case <-ctx.Done():
			l.logger.Debugf("Loop stopped")
			return nil
		case <-l.notify:
		}
	}
}

func (l *Loop) take() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	fns := l.queue
	l.queue = nil
	return fns
}
