package stage

import (
	"context"
	"log/slog"

	"github.com/shaiso/staralign/internal/domain"
	"github.com/shaiso/staralign/internal/process"
)

// Sequential — стадия из одного внешнего инструмента.
//
// Используется, когда инструмент сам распараллеливает работу
// (число потоков передаётся ему аргументом).
type Sequential struct {
	launcher process.Launcher
	clock    Clock
	logger   *slog.Logger
}

// NewSequential создаёт Sequential.
func NewSequential(launcher process.Launcher, cfg Config) *Sequential {
	return &Sequential{launcher: launcher, clock: cfg.Clock, logger: cfg.logger()}
}

// Run запускает spec, ждёт завершения и проверяет постусловия.
func (s *Sequential) Run(ctx context.Context, name domain.StageName, spec process.CommandSpec, checks ...Check) (domain.StageResult, error) {
	timer := StartTimer(s.clock)

	err := s.exec(ctx, name, spec)
	if err == nil {
		err = runChecks(checks)
	}

	return NewResult(name, timer, err), err
}

func (s *Sequential) exec(ctx context.Context, name domain.StageName, spec process.CommandSpec) error {
	h, err := s.launcher.Launch(ctx, spec)
	if err != nil {
		return err
	}

	s.logger.Debug("waiting for tool", "stage", name, "tool", spec.Tool)

	return h.Wait()
}
