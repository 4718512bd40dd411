package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shaiso/staralign/internal/config"
	"github.com/shaiso/staralign/internal/mq"
	"github.com/shaiso/staralign/internal/naming"
	"github.com/shaiso/staralign/internal/orchestrator"
	"github.com/shaiso/staralign/internal/process"
	"github.com/shaiso/staralign/internal/repo"
	"github.com/shaiso/staralign/internal/storage"
	"github.com/shaiso/staralign/internal/telemetry"
	"github.com/shaiso/staralign/internal/tools"
)

// pushJob — job в Pushgateway.
const pushJob = "staralign"

// artifactStore — resolver и publisher одного бэкенда.
type artifactStore interface {
	orchestrator.Resolver
	orchestrator.Publisher
}

// pipeline — собранный контроллер и ресурсы, которые надо закрыть.
type pipeline struct {
	controller *orchestrator.Controller
	metrics    *telemetry.Metrics

	// runs — nil, если Postgres не настроен.
	runs *repo.RunRepo

	closers []func()
}

// Close освобождает ресурсы в обратном порядке.
func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

// buildPipeline собирает Controller из конфигурации.
// conn != nil — итог run публикуется в RabbitMQ.
func (a *App) buildPipeline(ctx context.Context, cfg config.Config, logger *slog.Logger, conn *mq.Connection) (*pipeline, error) {
	p := &pipeline{metrics: telemetry.NewMetrics()}

	// 1. Хранилище
	store, err := newStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	// 2. Запуск инструментов; их stdout уходит в stderr, stdout — под manifest
	launcher := a.Launcher
	if launcher == nil {
		launcher = process.NewRunner(process.Config{
			Stdout:  a.Stderr,
			Stderr:  a.Stderr,
			Timeout: cfg.ToolTimeout,
			Logger:  logger,
		})
	}

	// 3. Postgres — только если задан DB_URL
	var runStore orchestrator.RunStore
	if cfg.DatabaseURL != "" {
		pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		p.closers = append(p.closers, pool.Close)

		if err := repo.EnsureSchema(ctx, pool); err != nil {
			p.Close()
			return nil, err
		}
		p.runs = repo.NewRunRepo(pool)
		runStore = p.runs
		logger.Info("database connected")
	}

	// 4. События завершения
	var events orchestrator.EventPublisher
	if conn != nil {
		events = mq.NewPublisher(conn, logger)
	}

	var progressW io.Writer
	if cfg.Verbose {
		progressW = a.Stderr
	}

	controller, err := orchestrator.New(orchestrator.Config{
		Launcher:          launcher,
		Resolver:          store,
		Publisher:         store,
		Store:             runStore,
		Events:            events,
		Metrics:           p.metrics,
		WorkRoot:          cfg.WorkRoot,
		Threads:           cfg.Threads,
		ReferenceTemplate: cfg.ReferenceTemplate,
		Annotation:        cfg.Annotation,
		AlignmentPattern:  cfg.AlignmentPattern,
		STAR:              tools.STAR{Path: cfg.Tools.STAR, Tuning: cfg.Tools.STARTuning},
		Sambamba:          tools.Sambamba{Path: cfg.Tools.Sambamba},
		Pigz:              tools.Pigz{Path: cfg.Tools.Pigz},
		Pbzip2:            tools.Pbzip2{Path: cfg.Tools.Pbzip2},
		Namer:             naming.Namer{MateSuffix: cfg.Naming.MateSuffix, Extension: cfg.Naming.Extension},
		Progress:          progressW,
		Logger:            logger,
	})
	if err != nil {
		p.Close()
		return nil, err
	}
	p.controller = controller
	return p, nil
}

// newStore создаёт resolver/publisher выбранного бэкенда.
func newStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (artifactStore, error) {
	switch cfg.Backend {
	case config.BackendS3:
		s, err := storage.NewObjectStore(storage.ObjectStoreConfig{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Region:    cfg.S3.Region,
			UseSSL:    cfg.S3.UseSSL,
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		if err := s.Ping(ctx); err != nil {
			return nil, fmt.Errorf("object store: %w", err)
		}
		logger.Info("object store connected", "endpoint", cfg.S3.Endpoint, "bucket", cfg.S3.Bucket)
		return s, nil

	case config.BackendLocal, "":
		return storage.NewLocalStore(cfg.LocalRoot, cfg.OutputDir, logger), nil

	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

// connectMQ подключается к RabbitMQ и объявляет топологию.
func connectMQ(ctx context.Context, url string, logger *slog.Logger) (*mq.Connection, error) {
	conn, err := mq.NewConnection(url, logger)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	if err := mq.SetupTopology(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setup topology: %w", err)
	}
	logger.Debug("rabbitmq topology", "info", mq.TopologyInfo())
	return conn, nil
}
