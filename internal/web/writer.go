package web

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errWriterClosed = errors.New("session writer closed")

// writeQueue runs one session's persistence jobs one at a time in submission order,
// so a later placement is never overwritten by an earlier one.
type writeQueue struct {
	mu      sync.RWMutex
	closed  bool
	jobs    chan func(ctx context.Context)
	done    chan struct{}
	timeout time.Duration
}

func newWriteQueue(timeout time.Duration) *writeQueue {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	q := &writeQueue{
		jobs:    make(chan func(ctx context.Context), 64),
		done:    make(chan struct{}),
		timeout: timeout,
	}
	go q.run()
	return q
}

func (q *writeQueue) run() {
	defer close(q.done)
	for job := range q.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		job(ctx)
		cancel()
	}
}

// Enqueue appends job. It blocks while the queue is full and reports false once closed.
func (q *writeQueue) Enqueue(job func(ctx context.Context)) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	q.jobs <- job
	return true
}

// Submit enqueues job and returns a channel that receives its result.
func (q *writeQueue) Submit(job func(ctx context.Context) error) <-chan error {
	res := make(chan error, 1)
	if !q.Enqueue(func(ctx context.Context) { res <- job(ctx) }) {
		res <- errWriterClosed
	}
	return res
}

// Close stops accepting jobs and waits until the queued ones have run.
func (q *writeQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	<-q.done
}
