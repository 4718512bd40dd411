package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/staralign/internal/domain"
	"github.com/shaiso/staralign/internal/repo"
)

// RunReader читает сохранённые runs (repo.RunRepo).
type RunReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	List(ctx context.Context, filter repo.RunFilter) ([]domain.Run, error)
}

// RunSubmitter ставит run в очередь (mq.Publisher).
type RunSubmitter interface {
	PublishRunRequested(ctx context.Context, runID uuid.UUID, input domain.PipelineInput) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	runs      RunReader
	submitter RunSubmitter
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Runs RunReader

	// Submitter — nil отключает POST /api/v1/runs.
	Submitter RunSubmitter

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		runs:      cfg.Runs,
		submitter: cfg.Submitter,
		logger:    logger,
	}
}
