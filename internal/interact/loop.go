package interact

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLoopClosed is returned when work is posted to a stopped loop.
var ErrLoopClosed = errors.New("event loop closed")

// Runner starts an asynchronous task. The task runs off the loop and returns a
// completion which the runner executes back on the loop.
type Runner interface {
	Go(task func(ctx context.Context) func())
}

// Inline runs tasks and their completions synchronously on the caller.
type Inline struct{}

func (Inline) Go(task func(ctx context.Context) func()) {
	if done := task(context.Background()); done != nil {
		done()
	}
}

// Loop serialises all work of one session onto a single goroutine.
type Loop struct {
	tasks   chan func()
	done    chan struct{}
	stop    sync.Once
	timeout time.Duration

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLoop creates a loop whose asynchronous tasks are bounded by timeout.
func NewLoop(timeout time.Duration) *Loop {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base, cancel := context.WithCancel(context.Background())
	return &Loop{
		tasks:   make(chan func(), 64),
		done:    make(chan struct{}),
		timeout: timeout,
		base:    base,
		cancel:  cancel,
	}
}

// Run executes posted work until ctx is canceled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	defer l.shutdown()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post queues fn for the loop goroutine.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	select {
	case <-l.done:
		return ErrLoopClosed
	case l.tasks <- fn:
		return nil
	}
}

// Call runs fn on the loop and waits for it.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

func (l *Loop) Go(task func(ctx context.Context) func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(l.base, l.timeout)
		defer cancel()
		if done := task(ctx); done != nil {
			_ = l.Post(done)
		}
	}()
}

// Close stops the loop and waits for in-flight tasks.
func (l *Loop) Close() {
	l.shutdown()
	l.wg.Wait()
}

func (l *Loop) shutdown() {
	l.stop.Do(func() {
		close(l.done)
		l.cancel()
	})
}
