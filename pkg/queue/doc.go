// Package queue is a small task queue used to release webhook processing
// from the request/response cycle.
//
// An Enqueuer serializes a typed payload into a Task and hands it to a
// Repository; a Worker claims pending tasks with a lock, dispatches them to
// registered handlers, and retries failures up to the task's retry budget.
// Returning an error wrapping ErrSkipRetry marks a failure permanent, which
// is how handlers drop malformed events that no amount of redelivery can
// repair.
//
// The in-memory Repository is sufficient for the webhook workload: the
// payment provider redelivers on non-2xx responses, so durable task storage
// is an optimization, not a correctness requirement. A database-backed
// Repository can be swapped in without touching the worker.
package queue
