package concurrency

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "kbgraph/pkg/errors"
)

func TestDetectEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected RuntimeEnvironment
	}{
		{"Lambda environment", map[string]string{"AWS_LAMBDA_FUNCTION_NAME": "kbgraph-api"}, EnvironmentLambda},
		{"ECS environment", map[string]string{"ECS_CONTAINER_METADATA_URI": "http://169.254.170.2/v3"}, EnvironmentECS},
		{"ECS Fargate environment", map[string]string{"ECS_CONTAINER_METADATA_URI_V4": "http://169.254.170.2/v4"}, EnvironmentECS},
		{"Local environment", map[string]string{}, EnvironmentLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"AWS_LAMBDA_FUNCTION_NAME", "ECS_CONTAINER_METADATA_URI", "ECS_CONTAINER_METADATA_URI_V4"} {
				t.Setenv(k, "")
				require.NoError(t, os.Unsetenv(k))
			}
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.expected, DetectEnvironment())
		})
	}
}

func TestGetOptimalWorkerCount(t *testing.T) {
	tests := []struct {
		name     string
		env      RuntimeEnvironment
		memoryMB string
		min, max int
	}{
		{"Lambda small memory", EnvironmentLambda, "512", 1, 1},
		{"Lambda one vCPU", EnvironmentLambda, "2048", 3, 3},
		{"Lambda large", EnvironmentLambda, "4096", 6, 6},
		{"ECS", EnvironmentECS, "", 1, 16},
		{"Local", EnvironmentLocal, "", 2, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AWS_LAMBDA_FUNCTION_MEMORY_SIZE", tt.memoryMB)
			got := GetOptimalWorkerCount(tt.env)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

func TestPoolRunsEveryTask(t *testing.T) {
	pool := NewPool(PoolConfig{MaxWorkers: 3, Timeout: time.Second, Environment: EnvironmentLocal}, nil, nil)

	results := make([]int, 50)
	err := pool.Run(context.Background(), "square", len(results), func(_ context.Context, i int) error {
		results[i] = i * i
		return nil
	})

	require.NoError(t, err)
	for i, v := range results {
		assert.Equal(t, i*i, v)
	}
	summary := pool.Metrics()
	assert.Equal(t, uint64(50), summary.TasksCompleted)
	assert.Equal(t, uint64(1), summary.Runs)
}

func TestPoolRespectsWorkerLimit(t *testing.T) {
	pool := NewPool(PoolConfig{MaxWorkers: 2, Timeout: time.Second, Environment: EnvironmentLocal}, nil, nil)

	var running, peak int32
	err := pool.Run(context.Background(), "limit", 10, func(context.Context, int) error {
		cur := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPoolTimeout(t *testing.T) {
	pool := NewPool(PoolConfig{MaxWorkers: 2, Timeout: 20 * time.Millisecond, Environment: EnvironmentLocal}, nil, nil)

	err := pool.Run(context.Background(), "slow", 100, func(ctx context.Context, _ int) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
			return nil
		}
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsTimeout(err), "got %v", err)
	assert.Equal(t, uint64(1), pool.Metrics().Timeouts)
}

func TestPoolParentCancellation(t *testing.T) {
	pool := NewPool(PoolConfig{MaxWorkers: 2, Timeout: time.Minute, Environment: EnvironmentLocal}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	var once sync.Once
	err := pool.Run(ctx, "cancel", 1000, func(ctx context.Context, _ int) error {
		once.Do(cancel)
		<-ctx.Done()
		return ctx.Err()
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsCanceled(err), "got %v", err)
}

func TestPoolFirstErrorWins(t *testing.T) {
	pool := NewPool(PoolConfig{MaxWorkers: 1, Timeout: time.Second, Environment: EnvironmentLocal}, nil, nil)
	boom := errors.New("boom")

	var calls int32
	err := pool.Run(context.Background(), "fail", 100, func(_ context.Context, i int) error {
		atomic.AddInt32(&calls, 1)
		if i == 3 {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Less(t, atomic.LoadInt32(&calls), int32(100))
}

func TestPoolRecoversPanic(t *testing.T) {
	pool := NewPool(PoolConfig{MaxWorkers: 2, Timeout: time.Second, Environment: EnvironmentLocal}, nil, nil)

	err := pool.Run(context.Background(), "panic", 3, func(_ context.Context, i int) error {
		if i == 1 {
			panic("bad row")
		}
		return nil
	})

	assert.True(t, apperrors.IsInternal(err))
	assert.Equal(t, uint64(1), pool.Metrics().WorkerPanics)
}

type recorderFunc func(string, time.Duration, error)

func (f recorderFunc) RecordPoolTask(op string, d time.Duration, err error) { f(op, d, err) }

func TestPoolReportsToRecorder(t *testing.T) {
	var count int32
	rec := recorderFunc(func(op string, _ time.Duration, _ error) {
		assert.Equal(t, "record", op)
		atomic.AddInt32(&count, 1)
	})
	pool := NewPool(PoolConfig{MaxWorkers: 4, Environment: EnvironmentLocal}, rec, nil)

	require.NoError(t, pool.Run(context.Background(), "record", 7, func(context.Context, int) error { return nil }))
	assert.Equal(t, int32(7), atomic.LoadInt32(&count))
	assert.Equal(t, 10*time.Second, pool.Timeout())
}

func TestPoolZeroTasks(t *testing.T) {
	pool := NewPool(PoolConfig{Environment: EnvironmentLocal}, nil, nil)
	assert.NoError(t, pool.Run(context.Background(), "noop", 0, nil))
	assert.Positive(t, pool.Workers())
}
