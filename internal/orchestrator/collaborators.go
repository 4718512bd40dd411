package orchestrator

import (
	"context"

	"github.com/shaiso/staralign/internal/domain"
)

// Resolver получает входные данные run в локальную рабочую директорию.
type Resolver interface {
	// Fetch скачивает один объект ref в destPath.
	Fetch(ctx context.Context, ref, destPath string) (string, error)

	// FetchArchive скачивает набор файлов (архив референса) в destDir
	// и возвращает путь к корню распакованного набора.
	FetchArchive(ctx context.Context, ref, destDir string) (string, error)
}

// Publisher публикует готовый артефакт и возвращает удалённый handle.
type Publisher interface {
	Publish(ctx context.Context, key, localPath string) (string, error)
}

// RunStore сохраняет итог run (Postgres в проде).
type RunStore interface {
	SaveRun(ctx context.Context, run *domain.Run) error
}

// EventPublisher оповещает о завершении run (RabbitMQ в проде).
type EventPublisher interface {
	PublishRunFinished(ctx context.Context, run *domain.Run) error
}
