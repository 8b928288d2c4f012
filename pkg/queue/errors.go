package queue

import "errors"

var (
	ErrRepositoryNil   = errors.New("queue: repository is required")
	ErrPayloadNil      = errors.New("queue: payload cannot be nil")
	ErrNoHandlers      = errors.New("queue: no handlers registered")
	ErrHandlerNotFound = errors.New("queue: no handler registered for task")
	ErrNoTaskToClaim   = errors.New("queue: no task available to claim")
	ErrTaskNotFound    = errors.New("queue: task not found")

	// ErrSkipRetry marks a handler failure as permanent. The worker records
	// the error and does not reschedule the task.
	ErrSkipRetry = errors.New("queue: permanent failure, do not retry")
)
