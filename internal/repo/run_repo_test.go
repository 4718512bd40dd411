package repo

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shaiso/staralign/internal/domain"
)

// noRow — pgx.Row без результата.
type noRow struct{}

func (noRow) Scan(...any) error { return pgx.ErrNoRows }

func TestScanRun_NotFound(t *testing.T) {
	if _, err := scanRun(noRow{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNullString(t *testing.T) {
	if nullString("") != nil {
		t.Error("empty string should map to NULL")
	}
	if got := nullString("x"); got == nil || *got != "x" {
		t.Errorf("unexpected value %v", got)
	}
	if derefString(nil) != "" || derefString(nullString("y")) != "y" {
		t.Error("derefString mismatch")
	}
}

func TestSchema_Embedded(t *testing.T) {
	for _, table := range []string{"CREATE TABLE IF NOT EXISTS runs", "CREATE TABLE IF NOT EXISTS stage_results"} {
		if !strings.Contains(schemaSQL, table) {
			t.Errorf("schema missing %q", table)
		}
	}
	for _, state := range []domain.RunState{domain.RunStatePending, domain.RunStateComplete, domain.RunStateFailed} {
		if !strings.Contains(schemaSQL, "'"+string(state)+"'") {
			t.Errorf("schema state check missing %s", state)
		}
	}
}

// --- Integration Tests ---

// Запускаются только при заданном STARALIGN_TEST_DB_URL.
func TestRunRepo_SaveAndGet(t *testing.T) {
	dsn := os.Getenv("STARALIGN_TEST_DB_URL")
	if dsn == "" {
		t.Skip("STARALIGN_TEST_DB_URL not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	if err := EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("schema: %v", err)
	}

	repo := NewRunRepo(pool)
	run := domain.NewRun(uuid.New(), domain.PipelineInput{
		FastqR1Ref:        "r1.fq.gz",
		FastqR2Ref:        "r2.fq.gz",
		ReferenceGenomeID: "GRCh38",
	})
	now := time.Now().UTC().Truncate(time.Microsecond)
	code := 137
	run.Manifest.AddStage(domain.StageResult{Stage: domain.StageAcquiring, StartedAt: now, FinishedAt: now, Success: true})
	run.Manifest.AddStage(domain.StageResult{Stage: domain.StageAligning, StartedAt: now, FinishedAt: now, ExitCode: &code, Tool: "STAR"})
	run.MarkFailed(domain.StageAligning, errors.New("STAR exited with code 137"))

	if err := repo.SaveRun(ctx, run); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Повторное сохранение не дублирует стадии
	if err := repo.SaveRun(ctx, run); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := repo.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != domain.RunStateFailed || got.FailedStage != domain.StageAligning {
		t.Errorf("unexpected run %+v", got)
	}
	if len(got.Manifest.Stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(got.Manifest.Stages))
	}
	if ec := got.Manifest.Stages[1].ExitCode; ec == nil || *ec != 137 {
		t.Errorf("exit code not persisted: %v", ec)
	}

	runs, err := repo.List(ctx, RunFilter{State: domain.RunStateFailed, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) == 0 {
		t.Error("expected at least one failed run")
	}

	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
