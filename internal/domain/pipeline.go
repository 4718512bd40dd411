package domain

import (
	"time"

	"github.com/google/uuid"
)

// PipelineInput — входные параметры run.
//
// Ссылки непрозрачны для ядра: их разрешает Resolver
// (s3://bucket/key, ключ в бакете по умолчанию или путь на диске).
type PipelineInput struct {
	// FastqR1Ref — ссылка на FASTQ первого рида пары.
	FastqR1Ref string `json:"fastq_r1"`

	// FastqR2Ref — ссылка на FASTQ второго рида пары.
	FastqR2Ref string `json:"fastq_r2"`

	// ReferenceGenomeID — идентификатор референса, например "GRCh38".
	ReferenceGenomeID string `json:"ref_name"`
}

// Validate проверяет, что все поля заданы и риды различаются.
func (in PipelineInput) Validate() error {
	switch {
	case in.FastqR1Ref == "":
		return &InvalidInput{Field: "fastq_r1", Reason: "is required"}
	case in.FastqR2Ref == "":
		return &InvalidInput{Field: "fastq_r2", Reason: "is required"}
	case in.ReferenceGenomeID == "":
		return &InvalidInput{Field: "ref_name", Reason: "is required"}
	case in.FastqR1Ref == in.FastqR2Ref:
		return &InvalidInput{Field: "fastq_r2", Reason: "must differ from fastq_r1"}
	}
	return nil
}

// FileRole — роль подготовленного файла.
type FileRole string

const (
	RoleRawFastqR1           FileRole = "RAW_FASTQ_R1"
	RoleRawFastqR2           FileRole = "RAW_FASTQ_R2"
	RoleReferenceIndexBundle FileRole = "REFERENCE_INDEX_BUNDLE"
	RoleAnnotationFile       FileRole = "ANNOTATION_FILE"
)

// StagedFile — файл, подготовленный стадией Acquiring.
type StagedFile struct {
	Path string   `json:"path"`
	Role FileRole `json:"role"`
}

// StagedFiles — результат стадии Acquiring.
type StagedFiles []StagedFile

// ByRole возвращает путь файла с указанной ролью или пустую строку.
func (f StagedFiles) ByRole(role FileRole) string {
	for _, sf := range f {
		if sf.Role == role {
			return sf.Path
		}
	}
	return ""
}

// AlignmentOutput — отсортированный BAM, найденный после выравнивания.
type AlignmentOutput struct {
	Path string `json:"path"`
}

// NamedArtifact — BAM после переименования.
type NamedArtifact struct {
	Path        string `json:"path"`
	DerivedName string `json:"derived_name"`
}

// IndexFile — индекс BAM (<artifact>.bai).
type IndexFile struct {
	Path string `json:"path"`
}

// StageResult — результат одной стадии.
type StageResult struct {
	Stage           StageName `json:"stage"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	Success         bool      `json:"success"`

	// ExitCode — код выхода упавшего инструмента (nil, если инструмент
	// не запускался или стадия успешна).
	ExitCode *int `json:"exit_code,omitempty"`

	// Tool — инструмент или задача, вызвавшие ошибку.
	Tool string `json:"tool,omitempty"`

	// Error — текст ошибки.
	Error string `json:"error,omitempty"`
}

// Duration возвращает длительность стадии.
func (r StageResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// PublishedArtifacts — удалённые handle'ы опубликованных файлов.
type PublishedArtifacts struct {
	Primary string `json:"star_bam"`
	Index   string `json:"star_index"`
}

// RunManifest — итог run: результаты стадий и пара артефактов.
type RunManifest struct {
	RunID     uuid.UUID          `json:"run_id"`
	Input     PipelineInput      `json:"input"`
	Stages    []StageResult      `json:"stages"`
	Artifact  NamedArtifact      `json:"artifact"`
	Index     IndexFile          `json:"index"`
	Published PublishedArtifacts `json:"published"`
}

// AddStage добавляет результат стадии.
func (m *RunManifest) AddStage(res StageResult) {
	m.Stages = append(m.Stages, res)
}

// LastStage возвращает результат последней стадии.
func (m *RunManifest) LastStage() (StageResult, bool) {
	if len(m.Stages) == 0 {
		return StageResult{}, false
	}
	return m.Stages[len(m.Stages)-1], true
}

// IsComplete проверяет инвариант завершённого manifest:
// все пять стадий в порядке, все успешны, пара артефактов на месте.
func (m *RunManifest) IsComplete() bool {
	order := Stages()
	if len(m.Stages) != len(order) {
		return false
	}
	for i, res := range m.Stages {
		if res.Stage != order[i] || !res.Success {
			return false
		}
	}
	return m.Artifact.Path != "" && m.Index.Path != "" &&
		m.Published.Primary != "" && m.Published.Index != ""
}
