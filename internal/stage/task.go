package stage

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/staralign/internal/domain"
	"github.com/shaiso/staralign/internal/process"
)

// Task — подзадача fan-out стадии.
type Task struct {
	// Name — имя задачи для логов и результата.
	Name string

	// Launch запускает задачу и не блокирует.
	Launch func(ctx context.Context) (process.Handle, error)
}

// CommandTask создаёт задачу запуска внешнего инструмента.
func CommandTask(l process.Launcher, spec process.CommandSpec) Task {
	return Task{
		Name: spec.Tool,
		Launch: func(ctx context.Context) (process.Handle, error) {
			return l.Launch(ctx, spec)
		},
	}
}

// FuncTask создаёт in-process задачу (например, загрузку через resolver).
func FuncTask(name string, fn func(ctx context.Context) error) Task {
	return Task{
		Name: name,
		Launch: func(ctx context.Context) (process.Handle, error) {
			return process.Go(ctx, fn), nil
		},
	}
}

// Check — постусловие стадии, проверяется после успешных задач.
type Check func() error

// TaskError — ошибка конкретной подзадачи.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// failedTool определяет виновника ошибки для StageResult.Tool.
func failedTool(err error) string {
	if tool, _, ok := domain.ExitCodeOf(err); ok {
		return tool
	}

	var collab *domain.MissingCollaboratorResponse
	if errors.As(err, &collab) {
		return collab.Collaborator
	}

	var taskErr *TaskError
	if errors.As(err, &taskErr) {
		return taskErr.Task
	}
	return ""
}
