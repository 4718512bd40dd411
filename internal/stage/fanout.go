package stage

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/staralign/internal/domain"
	"github.com/shaiso/staralign/internal/process"
)

// Config — общая конфигурация исполнителей стадий.
type Config struct {
	// Clock — источник времени для Timer (default: time.Now).
	Clock Clock

	// Logger
	Logger *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// FanOut — стадия из N независимых параллельных задач.
type FanOut struct {
	clock  Clock
	logger *slog.Logger
}

// NewFanOut создаёт FanOut.
func NewFanOut(cfg Config) *FanOut {
	return &FanOut{clock: cfg.Clock, logger: cfg.logger()}
}

// Run запускает все задачи, ждёт все и проверяет постусловия.
//
// Стадия неуспешна, если хотя бы одна задача упала; в результат
// попадает первая замеченная ошибка. Соседние задачи не отменяются.
func (f *FanOut) Run(ctx context.Context, name domain.StageName, tasks []Task, checks ...Check) (domain.StageResult, error) {
	timer := StartTimer(f.clock)

	err := f.runTasks(ctx, name, tasks)
	if err == nil {
		err = runChecks(checks)
	}

	return NewResult(name, timer, err), err
}

// runTasks реализует launch-all, затем wait-all.
func (f *FanOut) runTasks(ctx context.Context, name domain.StageName, tasks []Task) error {
	handles := make([]process.Handle, 0, len(tasks))
	launched := make([]string, 0, len(tasks))

	var launchErr error
	for _, task := range tasks {
		h, err := task.Launch(ctx)
		if err != nil {
			// Остальные не запускаем, но запущенные дожидаемся
			launchErr = &TaskError{Task: task.Name, Err: err}
			f.logger.Warn("task launch failed",
				"stage", name,
				"task", task.Name,
				"error", err,
			)
			break
		}
		handles = append(handles, h)
		launched = append(launched, task.Name)
	}

	f.logger.Debug("tasks launched",
		"stage", name,
		"count", len(handles),
		"total", len(tasks),
	)

	var g errgroup.Group
	for i, h := range handles {
		taskName := launched[i]
		g.Go(func() error {
			if err := h.Wait(); err != nil {
				f.logger.Warn("task failed",
					"stage", name,
					"task", taskName,
					"error", err,
				)
				return &TaskError{Task: taskName, Err: err}
			}
			return nil
		})
	}
	waitErr := g.Wait()

	if launchErr != nil {
		return launchErr
	}
	return waitErr
}

// runChecks выполняет постусловия по порядку до первой ошибки.
func runChecks(checks []Check) error {
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}
