package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shaiso/staralign/internal/domain"
	"github.com/shaiso/staralign/internal/mq"
)

const defaultPrefetch = 1

// Executor выполняет run. Реализуется orchestrator.Controller.
type Executor interface {
	Execute(ctx context.Context, run *domain.Run) error
}

// Worker получает run.requested и выполняет runs.
//
// Runs выполняются по одному на consumer: выравнивание
// занимает все потоки машины. Для параллелизма запускают
// несколько экземпляров worker.
type Worker struct {
	executor Executor
	conn     *mq.Connection
	consumer *mq.RunConsumer
	prefetch int

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Executor выполняет runs (обязателен).
	Executor Executor

	// Conn — соединение с RabbitMQ (обязательно для Start).
	Conn *mq.Connection

	// Prefetch — сообщений в полёте на consumer (default: 1).
	Prefetch int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) (*Worker, error) {
	if cfg.Executor == nil {
		return nil, ErrNoExecutor
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		executor: cfg.Executor,
		conn:     cfg.Conn,
		prefetch: prefetch,
		logger:   logger,
	}, nil
}

// Start запускает consumer очереди runs.requested.
func (w *Worker) Start(ctx context.Context) error {
	if w.IsStopped() {
		return ErrWorkerStopped
	}
	if w.conn == nil {
		return ErrNoConnection
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker", "queue", mq.QueueRunsRequested, "prefetch", w.prefetch)

	w.consumer = mq.NewRunConsumer(w.conn, w.logger, w.handleRunRequested, w.prefetch)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("run consumer error", "error", err)
		}
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и ждёт завершения текущего run.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	// Отмена прерывает текущий run, его сообщение возвращается в очередь
	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	// Ждём завершения горутин
	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}
