package worker

import (
	"context"
	"errors"

	"github.com/shaiso/staralign/internal/domain"
	"github.com/shaiso/staralign/internal/mq"
	"github.com/shaiso/staralign/internal/orchestrator"
)

// handleRunRequested выполняет run из runs.requested и решает судьбу сообщения.
//
//   - успех, FAILED run, дубликат активного run — Ack
//   - остановка worker во время run — Requeue, run выполнит другой worker
//   - run не был выполнен — DeadLetter
func (w *Worker) handleRunRequested(ctx context.Context, req mq.RunRequest) mq.Disposition {
	run := domain.NewRun(req.RunID, req.Input)
	logger := w.logger.With("run_id", run.ID.String(), "message_id", req.MessageID)

	logger.Info("run received",
		"fastq_r1", req.Input.FastqR1Ref,
		"fastq_r2", req.Input.FastqR2Ref,
		"ref_name", req.Input.ReferenceGenomeID,
		"redelivered", req.Redelivered,
	)

	err := w.executor.Execute(ctx, run)
	switch {
	case err == nil:
		return mq.Ack

	// Повторная доставка того же run, пока он выполняется
	case errors.Is(err, orchestrator.ErrRunAlreadyActive):
		logger.Debug("run already active, skipping", "reason", err)
		return mq.Ack

	// Отмена пришла от Stop, а не от самого run
	case ctx.Err() != nil:
		logger.Warn("run interrupted by shutdown, requeueing", "error", err)
		return mq.Requeue

	// Run дошёл до FAILED, итог сохранён и опубликован контроллером
	case run.IsFinished():
		logger.Info("run finished with failure",
			"failed_stage", run.FailedStage,
			"error", run.Error,
		)
		return mq.Ack

	default:
		logger.Error("run not executed", "error", err)
		return mq.DeadLetter
	}
}
