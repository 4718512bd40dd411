package worker

import "errors"

// Ошибки воркера.
var (
	// ErrNoExecutor — в Config не задан Executor.
	ErrNoExecutor = errors.New("worker: executor is required")

	// ErrNoConnection — в Config не задано соединение с RabbitMQ.
	ErrNoConnection = errors.New("worker: mq connection is required")

	// ErrWorkerStopped — воркер остановлен.
	ErrWorkerStopped = errors.New("worker stopped")
)
