package orchestrator

import (
	"log/slog"

	"github.com/shaiso/staralign/internal/domain"
)

// runState — промежуточные данные одного run между стадиями.
//
// Создаётся в Execute и живёт до его возврата. Доступ только из
// управляющей горутины: задачи fan-out пишут в свои локальные
// переменные, а не сюда.
type runState struct {
	run    *domain.Run
	logger *slog.Logger

	// staged — файлы после Acquiring.
	staged domain.StagedFiles

	// alignment — BAM, найденный после Aligning.
	alignment domain.AlignmentOutput
}

func newRunState(run *domain.Run, logger *slog.Logger) *runState {
	return &runState{run: run, logger: logger}
}

// workDir возвращает рабочую директорию run.
func (s *runState) workDir() string {
	return s.run.WorkDir
}

// manifest возвращает manifest run для записи результатов.
func (s *runState) manifest() *domain.RunManifest {
	return &s.run.Manifest
}
