package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/staralign/internal/domain"
)

// RunRepo — репозиторий для работы с runs и результатами стадий.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// SaveRun сохраняет run и все его StageResult одной транзакцией.
// Повторное сохранение перезаписывает предыдущее.
func (r *RunRepo) SaveRun(ctx context.Context, run *domain.Run) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	m := run.Manifest
	query := `
		INSERT INTO runs (id, fastq_r1, fastq_r2, ref_name, state, work_dir, failed_stage, error,
		                  artifact_path, artifact_name, index_path, star_bam, star_index,
		                  started_at, finished_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			work_dir = EXCLUDED.work_dir,
			failed_stage = EXCLUDED.failed_stage,
			error = EXCLUDED.error,
			artifact_path = EXCLUDED.artifact_path,
			artifact_name = EXCLUDED.artifact_name,
			index_path = EXCLUDED.index_path,
			star_bam = EXCLUDED.star_bam,
			star_index = EXCLUDED.star_index,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at
	`
	_, err = tx.Exec(ctx, query,
		run.ID,
		run.Input.FastqR1Ref,
		run.Input.FastqR2Ref,
		run.Input.ReferenceGenomeID,
		string(run.State),
		nullString(run.WorkDir),
		nullString(string(run.FailedStage)),
		nullString(run.Error),
		nullString(m.Artifact.Path),
		nullString(m.Artifact.DerivedName),
		nullString(m.Index.Path),
		nullString(m.Published.Primary),
		nullString(m.Published.Index),
		run.StartedAt,
		run.FinishedAt,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM stage_results WHERE run_id = $1`, run.ID); err != nil {
		return fmt.Errorf("delete stage results: %w", err)
	}

	// Результаты стадий — батчем
	batch := &pgx.Batch{}
	for i, res := range m.Stages {
		batch.Queue(`
			INSERT INTO stage_results (run_id, seq, stage, started_at, finished_at,
			                           duration_seconds, success, exit_code, tool, error)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			run.ID,
			i,
			string(res.Stage),
			res.StartedAt,
			res.FinishedAt,
			res.DurationSeconds,
			res.Success,
			res.ExitCode,
			nullString(res.Tool),
			nullString(res.Error),
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert stage results: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const selectRun = `
	SELECT id, fastq_r1, fastq_r2, ref_name, state, work_dir, failed_stage, error,
	       artifact_path, artifact_name, index_path, star_bam, star_index,
	       started_at, finished_at, created_at
	FROM runs
`

// GetByID возвращает run по ID вместе с результатами стадий.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	run, err := scanRun(r.pool.QueryRow(ctx, selectRun+` WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	stages, err := r.listStages(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Manifest.Stages = stages
	return run, nil
}

// List возвращает runs с фильтрацией, без результатов стадий.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := selectRun + `
		WHERE ($1::text IS NULL OR state = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(string(filter.State)),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// listStages возвращает StageResult run в порядке выполнения.
func (r *RunRepo) listStages(ctx context.Context, runID uuid.UUID) ([]domain.StageResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT stage, started_at, finished_at, duration_seconds, success, exit_code, tool, error
		FROM stage_results
		WHERE run_id = $1
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list stage results: %w", err)
	}
	defer rows.Close()

	var stages []domain.StageResult
	for rows.Next() {
		var (
			res       domain.StageResult
			stage     string
			tool, msg *string
		)
		if err := rows.Scan(&stage, &res.StartedAt, &res.FinishedAt, &res.DurationSeconds,
			&res.Success, &res.ExitCode, &tool, &msg); err != nil {
			return nil, fmt.Errorf("scan stage result: %w", err)
		}
		res.Stage = domain.StageName(stage)
		res.Tool = derefString(tool)
		res.Error = derefString(msg)
		stages = append(stages, res)
	}
	return stages, rows.Err()
}

// --- Helpers ---

// RunFilter — параметры фильтрации runs.
type RunFilter struct {
	State  domain.RunState
	Limit  int
	Offset int
}

// scanRun сканирует одну строку в Run. Подходит и для pgx.Row, и для pgx.Rows.
func scanRun(row pgx.Row) (*domain.Run, error) {
	var (
		run                                 domain.Run
		state                               string
		workDir, failedStage, runError      *string
		artifactPath, artifactName, idxPath *string
		starBAM, starIndex                  *string
		startedAt, finishedAt               *time.Time
	)

	err := row.Scan(
		&run.ID,
		&run.Input.FastqR1Ref,
		&run.Input.FastqR2Ref,
		&run.Input.ReferenceGenomeID,
		&state,
		&workDir,
		&failedStage,
		&runError,
		&artifactPath,
		&artifactName,
		&idxPath,
		&starBAM,
		&starIndex,
		&startedAt,
		&finishedAt,
		&run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	run.State = domain.RunState(state)
	run.WorkDir = derefString(workDir)
	run.FailedStage = domain.StageName(derefString(failedStage))
	run.Error = derefString(runError)
	run.StartedAt = startedAt
	run.FinishedAt = finishedAt
	run.Manifest = domain.RunManifest{
		RunID:    run.ID,
		Input:    run.Input,
		Artifact: domain.NamedArtifact{Path: derefString(artifactPath), DerivedName: derefString(artifactName)},
		Index:    domain.IndexFile{Path: derefString(idxPath)},
		Published: domain.PublishedArtifacts{
			Primary: derefString(starBAM),
			Index:   derefString(starIndex),
		},
	}
	return &run, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// derefString возвращает "" для NULL.
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
