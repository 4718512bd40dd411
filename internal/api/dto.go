package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/staralign/internal/domain"
)

// Run DTOs

// SubmitRunRequest — запрос на постановку run в очередь.
type SubmitRunRequest struct {
	// RunID опционален: пустой — будет сгенерирован.
	RunID *uuid.UUID `json:"run_id,omitempty"`

	FastqR1 string `json:"fastq_r1"`
	FastqR2 string `json:"fastq_r2"`
	RefName string `json:"ref_name"`
}

// Input возвращает входы pipeline из запроса.
func (r SubmitRunRequest) Input() domain.PipelineInput {
	return domain.PipelineInput{
		FastqR1Ref:        r.FastqR1,
		FastqR2Ref:        r.FastqR2,
		ReferenceGenomeID: r.RefName,
	}
}

// SubmitRunResponse — ответ на постановку run.
type SubmitRunResponse struct {
	RunID uuid.UUID `json:"run_id"`
	State string    `json:"state"`
}

// RunResponse — ответ с run.
type RunResponse struct {
	ID          uuid.UUID                 `json:"id"`
	Input       domain.PipelineInput      `json:"input"`
	State       string                    `json:"state"`
	FailedStage string                    `json:"failed_stage,omitempty"`
	Error       string                    `json:"error,omitempty"`
	Artifact    string                    `json:"artifact,omitempty"`
	Published   domain.PublishedArtifacts `json:"published"`
	StartedAt   *time.Time                `json:"started_at,omitempty"`
	FinishedAt  *time.Time                `json:"finished_at,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:          r.ID,
		Input:       r.Input,
		State:       string(r.State),
		FailedStage: string(r.FailedStage),
		Error:       r.Error,
		Artifact:    r.Manifest.Artifact.DerivedName,
		Published:   r.Manifest.Published,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		CreatedAt:   r.CreatedAt,
	}
}

// Stage DTOs

// StageResponse — ответ с результатом стадии.
type StageResponse struct {
	Stage           string    `json:"stage"`
	Success         bool      `json:"success"`
	DurationSeconds float64   `json:"duration_seconds"`
	Tool            string    `json:"tool,omitempty"`
	ExitCode        *int      `json:"exit_code,omitempty"`
	Error           string    `json:"error,omitempty"`
	StartedAt       time.Time `json:"started_at"`
}

// StageFromDomain конвертирует domain.StageResult в StageResponse.
func StageFromDomain(s domain.StageResult) StageResponse {
	return StageResponse{
		Stage:           string(s.Stage),
		Success:         s.Success,
		DurationSeconds: s.DurationSeconds,
		Tool:            s.Tool,
		ExitCode:        s.ExitCode,
		Error:           s.Error,
		StartedAt:       s.StartedAt,
	}
}
