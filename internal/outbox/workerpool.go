package outbox

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

type WorkerPoolI interface {
	AddTask(ctx context.Context, task Task) error
	Close()
}

type Task func() error

var ErrPoolClosed = errors.New("worker pool is closed")

type WorkerPool struct {
	pool      chan Task
	done      chan struct{}
	closeOnce sync.Once
}

func NewWorkerPool(size int) *WorkerPool {
	wp := &WorkerPool{
		pool: make(chan Task, size),
		done: make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		go wp.worker()
	}
	return wp
}

func (wp *WorkerPool) worker() {
	for {
		select {
		case task := <-wp.pool:
			wp.run(task)
		case <-wp.done:
			// Drain what was queued before shutdown.
			for {
				select {
				case task := <-wp.pool:
					wp.run(task)
				default:
					return
				}
			}
		}
	}
}

func (wp *WorkerPool) run(task Task) {
	if err := task(); err != nil {
		zap.L().Error("Task execution failed", zap.Error(err))
	}
}

func (wp *WorkerPool) AddTask(ctx context.Context, task Task) error {
	select {
	case <-wp.done:
		return ErrPoolClosed
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.done:
		return ErrPoolClosed
	case wp.pool <- task:
		return nil
	}
}

// Close stops accepting new tasks; already queued tasks still run.
// Safe to call more than once.
func (wp *WorkerPool) Close() {
	wp.closeOnce.Do(func() {
		close(wp.done)
	})
}
