// Package concurrency runs CPU-heavy analytics work on a bounded set of
// goroutines sized for the deployment environment.
//
// A Pool holds no goroutines between calls. Each Run gets its own errgroup
// limited to the pool's worker count and its own deadline, so one oversized
// corpus degrades a single request instead of the whole process.
package concurrency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "kbgraph/pkg/errors"
)

// PoolConfig contains configuration for the worker pool
type PoolConfig struct {
	MaxWorkers  int
	Timeout     time.Duration
	Environment RuntimeEnvironment
}

// Pool executes indexed tasks concurrently under a hard timeout.
type Pool struct {
	environment RuntimeEnvironment
	workers     int
	timeout     time.Duration
	recorder    Recorder
	metrics     *PoolMetrics
	logger      *zap.Logger
}

// NewPool builds a pool, filling unset fields from the detected environment.
func NewPool(cfg PoolConfig, recorder Recorder, logger *zap.Logger) *Pool {
	if cfg.Environment == "" {
		cfg.Environment = DetectEnvironment()
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = GetOptimalWorkerCount(cfg.Environment)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		environment: cfg.Environment,
		workers:     cfg.MaxWorkers,
		timeout:     cfg.Timeout,
		recorder:    recorder,
		metrics:     &PoolMetrics{},
		logger:      logger,
	}
}

// Workers returns the concurrency limit.
func (p *Pool) Workers() int { return p.workers }

// Timeout returns the per-run deadline.
func (p *Pool) Timeout() time.Duration { return p.timeout }

// Environment returns the environment the pool was sized for.
func (p *Pool) Environment() RuntimeEnvironment { return p.environment }

// Metrics exposes the in-process counters.
func (p *Pool) Metrics() Summary { return p.metrics.Summary() }

// Run calls fn for every index in [0, n). At most Workers calls run at once.
// The first error cancels the remaining tasks. Exceeding the pool timeout
// yields a TIMEOUT error; cancellation of ctx yields a CANCELED error.
func (p *Pool) Run(ctx context.Context, operation string, n int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}
	p.metrics.recordRun()

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(p.workers)

	submitted := 0
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		p.metrics.recordSubmission()
		g.Go(func() error {
			return p.execute(gctx, operation, i, fn)
		})
		submitted++
	}

	err := g.Wait()
	if err == nil && submitted == n {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperrors.FromContext(ctxErr, operation)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		p.metrics.recordTimeout()
		p.logger.Warn("worker pool run timed out",
			zap.String("operation", operation),
			zap.Int("tasks", n),
			zap.Int("submitted", submitted),
			zap.Int("workers", p.workers),
			zap.Duration("timeout", p.timeout),
		)
		return apperrors.NewTimeoutError(operation).WithCause(runCtx.Err())
	}
	if err == nil {
		err = gctx.Err()
	}
	return err
}

func (p *Pool) execute(ctx context.Context, operation string, i int, fn func(context.Context, int) error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.metrics.recordPanic()
			p.logger.Error("worker recovered from panic",
				zap.String("operation", operation),
				zap.Int("task", i),
				zap.Any("panic", r),
			)
			err = apperrors.NewInternalError(fmt.Sprintf("%s: task %d panicked: %v", operation, i, r))
		}
		p.metrics.recordExecution(err)
		if p.recorder != nil {
			p.recorder.RecordPoolTask(operation, time.Since(start), err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, i)
}
