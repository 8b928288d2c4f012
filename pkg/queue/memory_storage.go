package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements the queue repositories in memory. Pending tasks
// lost on restart are redelivered by the payment provider, so no durability
// is needed for the webhook workload.
type MemoryStorage struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*Task
}

// NewMemoryStorage creates an empty in-memory repository.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tasks: make(map[uuid.UUID]*Task),
	}
}

// CreateTask implements EnqueuerRepository.
func (ms *MemoryStorage) CreateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return ErrPayloadNil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	taskCopy := *task
	ms.tasks[task.ID] = &taskCopy
	return nil
}

// ClaimTask implements WorkerRepository. The oldest ready task wins; tasks
// whose lock expired return to the pool automatically.
func (ms *MemoryStorage) ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var best *Task
	for _, task := range ms.tasks {
		if !claimable(task, queues, now) {
			continue
		}
		if best == nil || task.ScheduledAt.Before(best.ScheduledAt) {
			best = task
		}
	}
	if best == nil {
		return nil, ErrNoTaskToClaim
	}

	lockedUntil := now.Add(lockDuration)
	best.Status = TaskStatusProcessing
	best.LockedUntil = &lockedUntil
	best.LockedBy = &workerID

	claimed := *best
	return &claimed, nil
}

// CompleteTask implements WorkerRepository.
func (ms *MemoryStorage) CompleteTask(ctx context.Context, taskID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, ok := ms.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	now := time.Now()
	task.Status = TaskStatusCompleted
	task.ProcessedAt = &now
	task.LockedUntil = nil
	task.LockedBy = nil
	return nil
}

// FailTask implements WorkerRepository. Retryable failures return to
// pending with linear backoff on the retry count.
func (ms *MemoryStorage) FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string, permanent bool) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, ok := ms.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}

	now := time.Now()
	task.Error = &errorMsg
	task.LockedUntil = nil
	task.LockedBy = nil

	if permanent || task.RetryCount >= task.MaxRetries {
		task.Status = TaskStatusFailed
		task.ProcessedAt = &now
		return nil
	}

	task.RetryCount++
	task.Status = TaskStatusPending
	task.ScheduledAt = now.Add(time.Duration(task.RetryCount) * 5 * time.Second)
	return nil
}

// Task returns a copy of a stored task, for tests and inspection.
func (ms *MemoryStorage) Task(taskID uuid.UUID) (*Task, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, ok := ms.tasks[taskID]
	if !ok {
		return nil, false
	}
	taskCopy := *task
	return &taskCopy, true
}

func claimable(task *Task, queues []string, now time.Time) bool {
	inQueue := false
	for _, q := range queues {
		if task.Queue == q {
			inQueue = true
			break
		}
	}
	if !inQueue || task.ScheduledAt.After(now) {
		return false
	}

	switch task.Status {
	case TaskStatusPending:
		return true
	case TaskStatusProcessing:
		// Reclaimable once the previous worker's lock lapsed.
		return task.LockedUntil != nil && task.LockedUntil.Before(now)
	}
	return false
}
