package concurrency

import (
	"sync/atomic"
	"time"
)

// Recorder receives per-task measurements. The prometheus collector
// implements it; nil disables reporting.
type Recorder interface {
	RecordPoolTask(operation string, duration time.Duration, err error)
}

// PoolMetrics keeps cheap in-process counters for a pool.
type PoolMetrics struct {
	tasksSubmitted uint64
	tasksCompleted uint64
	tasksFailed    uint64
	workerPanics   uint64
	runs           uint64
	timeouts       uint64
}

func (m *PoolMetrics) recordSubmission() { atomic.AddUint64(&m.tasksSubmitted, 1) }
func (m *PoolMetrics) recordPanic()      { atomic.AddUint64(&m.workerPanics, 1) }
func (m *PoolMetrics) recordRun()        { atomic.AddUint64(&m.runs, 1) }
func (m *PoolMetrics) recordTimeout()    { atomic.AddUint64(&m.timeouts, 1) }

func (m *PoolMetrics) recordExecution(err error) {
	if err != nil {
		atomic.AddUint64(&m.tasksFailed, 1)
		return
	}
	atomic.AddUint64(&m.tasksCompleted, 1)
}

// Summary is a point-in-time copy of the counters.
type Summary struct {
	Runs           uint64 `json:"runs"`
	TasksSubmitted uint64 `json:"tasks_submitted"`
	TasksCompleted uint64 `json:"tasks_completed"`
	TasksFailed    uint64 `json:"tasks_failed"`
	WorkerPanics   uint64 `json:"worker_panics"`
	Timeouts       uint64 `json:"timeouts"`
}

// Summary returns the current counters.
func (m *PoolMetrics) Summary() Summary {
	return Summary{
		Runs:           atomic.LoadUint64(&m.runs),
		TasksSubmitted: atomic.LoadUint64(&m.tasksSubmitted),
		TasksCompleted: atomic.LoadUint64(&m.tasksCompleted),
		TasksFailed:    atomic.LoadUint64(&m.tasksFailed),
		WorkerPanics:   atomic.LoadUint64(&m.workerPanics),
		Timeouts:       atomic.LoadUint64(&m.timeouts),
	}
}
