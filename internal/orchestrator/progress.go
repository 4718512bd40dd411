package orchestrator

import (
	"fmt"
	"io"

	"github.com/shaiso/staralign/internal/domain"
)

// progress печатает человекочитаемый прогресс стадий.
// nil writer — вывод выключен.
type progress struct {
	w io.Writer
}

func (p progress) printf(format string, args ...any) {
	if p.w == nil {
		return
	}
	fmt.Fprintf(p.w, format, args...)
}

func (p progress) banner(run *domain.Run, reference string) {
	p.printf("Setting up run %s\n", run.ID)
	p.printf("  fastq_r1:  %s\n", run.Input.FastqR1Ref)
	p.printf("  fastq_r2:  %s\n", run.Input.FastqR2Ref)
	p.printf("  reference: %s (%s)\n", run.Input.ReferenceGenomeID, reference)
	p.printf("  work dir:  %s\n", run.WorkDir)
}

func (p progress) stageStarted(name domain.StageName) {
	p.printf("=== %s ===\n", name)
}

func (p progress) stageFinished(res domain.StageResult) {
	if !res.Success {
		p.printf("%s failed after %d seconds: %s\n", res.Stage, int(res.DurationSeconds), res.Error)
		if res.ExitCode != nil {
			p.printf("  %s exit code: %d\n", res.Tool, *res.ExitCode)
		}
		return
	}
	p.printf("took %d seconds.\n", int(res.DurationSeconds))
}

func (p progress) finished(run *domain.Run) {
	if run.State == domain.RunStateComplete {
		p.printf("Run %s complete in %d seconds.\n", run.ID, int(run.Duration().Seconds()))
		return
	}
	p.printf("Run %s failed at stage %s.\n", run.ID, run.FailedStage)
}
