package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run — один проход pipeline.
//
// Run создаётся при старте (CLI или сообщение из очереди) и живёт
// только в рамках своей рабочей директории. Между runs ничего
// не переиспользуется.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// Input — входные параметры.
	Input PipelineInput `json:"input"`

	// State — текущее состояние.
	State RunState `json:"state"`

	// WorkDir — рабочая директория run.
	WorkDir string `json:"work_dir"`

	// FailedStage — стадия, на которой run упал.
	FailedStage StageName `json:"failed_stage,omitempty"`

	// Error — текст ошибки, если run в FAILED.
	Error string `json:"error,omitempty"`

	// StartedAt — время выхода из PENDING.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время перехода в терминальное состояние.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Manifest — накопленные результаты стадий.
	Manifest RunManifest `json:"manifest"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// NewRun создаёт run в состоянии PENDING.
func NewRun(id uuid.UUID, input PipelineInput) *Run {
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Run{
		ID:        id,
		Input:     input,
		State:     RunStatePending,
		Manifest:  RunManifest{RunID: id, Input: input},
		CreatedAt: time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён.
func (r *Run) IsFinished() bool {
	return r.State.IsTerminal()
}

// Advance переводит run в следующее состояние.
func (r *Run) Advance(to RunState) error {
	if !r.State.CanTransition(to) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, r.State, to)
	}
	if r.State == RunStatePending {
		now := time.Now()
		r.StartedAt = &now
	}
	r.State = to
	if to.IsTerminal() {
		now := time.Now()
		r.FinishedAt = &now
	}
	return nil
}

// MarkFailed переводит run в FAILED.
func (r *Run) MarkFailed(stage StageName, err error) {
	now := time.Now()
	if r.StartedAt == nil {
		r.StartedAt = &now
	}
	r.State = RunStateFailed
	r.FailedStage = stage
	r.FinishedAt = &now
	if err != nil {
		r.Error = err.Error()
	}
}

// MarkComplete переводит run из PUBLISHING в COMPLETE.
// Manifest должен содержать пять успешных стадий и опубликованную пару
// BAM + индекс, иначе ErrIncompleteManifest и состояние не меняется.
func (r *Run) MarkComplete() error {
	if !r.Manifest.IsComplete() {
		return fmt.Errorf("%w: run %s", ErrIncompleteManifest, r.ID)
	}
	return r.Advance(RunStateComplete)
}
