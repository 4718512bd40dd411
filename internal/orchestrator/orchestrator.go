package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/staralign/internal/domain"
	"github.com/shaiso/staralign/internal/naming"
	"github.com/shaiso/staralign/internal/process"
	"github.com/shaiso/staralign/internal/stage"
	"github.com/shaiso/staralign/internal/telemetry"
	"github.com/shaiso/staralign/internal/tools"
)

// Default configuration values.
const (
	defaultReferenceTemplate = "references/Homo_sapiens/%s/STAR"
	defaultAnnotation        = "refFlat_no_junk.gtf"
	defaultAlignmentPattern  = "*.bam"
)

// Controller выполняет runs pipeline.
//
// Controller:
//   - Создаёт рабочую директорию run
//   - Последовательно выполняет пять стадий
//   - Ведёт state machine run и RunManifest
//   - Сохраняет итог в RunStore и публикует событие завершения
//
// Разные runs можно выполнять параллельно; один run выполняется
// одной горутиной.
type Controller struct {
	// Collaborators
	launcher  process.Launcher
	resolver  Resolver
	publisher Publisher
	store     RunStore
	events    EventPublisher
	metrics   *telemetry.Metrics

	// Stage executors
	fanOut     *stage.FanOut
	sequential *stage.Sequential
	clock      stage.Clock

	// Tools
	star     tools.STAR
	sambamba tools.Sambamba
	pigz     tools.Pigz
	pbzip2   tools.Pbzip2
	namer    naming.Namer

	// Configuration
	workRoot          string
	threads           int
	referenceTemplate string
	annotation        string
	alignmentPattern  string

	// Active runs — runs в процессе выполнения
	activeRuns map[uuid.UUID]struct{}
	mu         sync.Mutex

	progress progress
	logger   *slog.Logger
}

// Config — конфигурация Controller.
type Config struct {
	// Launcher запускает внешние инструменты (обязателен).
	Launcher process.Launcher

	// Resolver получает FASTQ и референс (обязателен).
	Resolver Resolver

	// Publisher публикует BAM и индекс (обязателен).
	Publisher Publisher

	// Store сохраняет итог run. nil — не сохраняется.
	Store RunStore

	// Events оповещает о завершении run. nil — не оповещает.
	Events EventPublisher

	// Metrics — Prometheus метрики. nil — не собираются.
	Metrics *telemetry.Metrics

	// WorkRoot — корень рабочих директорий (обязателен).
	WorkRoot string

	// Threads — потоки для STAR, sambamba и pigz (default: 1).
	Threads int

	// ReferenceTemplate — шаблон ссылки на архив референса, %s — id генома.
	ReferenceTemplate string

	// Annotation — имя GTF внутри архива референса.
	Annotation string

	// AlignmentPattern — glob поиска BAM после выравнивания.
	AlignmentPattern string

	STAR     tools.STAR
	Sambamba tools.Sambamba
	Pigz     tools.Pigz
	Pbzip2   tools.Pbzip2

	// Namer — правило вывода имени BAM (default: naming.DefaultNamer).
	Namer naming.Namer

	// Clock — источник времени стадий (default: time.Now).
	Clock stage.Clock

	// Progress — куда печатать прогресс стадий. nil — не печатать.
	Progress io.Writer

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Controller.
func New(cfg Config) (*Controller, error) {
	switch {
	case cfg.Launcher == nil:
		return nil, fmt.Errorf("%w: launcher", ErrMissingDependency)
	case cfg.Resolver == nil:
		return nil, fmt.Errorf("%w: resolver", ErrMissingDependency)
	case cfg.Publisher == nil:
		return nil, fmt.Errorf("%w: publisher", ErrMissingDependency)
	case cfg.WorkRoot == "":
		return nil, fmt.Errorf("%w: work root", ErrMissingDependency)
	}

	// STAR и sambamba запускаются с cwd в рабочей директории run,
	// поэтому все пути стадий должны быть абсолютными
	workRoot, err := filepath.Abs(cfg.WorkRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve work root: %w", err)
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = 1
	}

	referenceTemplate := cfg.ReferenceTemplate
	if referenceTemplate == "" {
		referenceTemplate = defaultReferenceTemplate
	}

	annotation := cfg.Annotation
	if annotation == "" {
		annotation = defaultAnnotation
	}

	alignmentPattern := cfg.AlignmentPattern
	if alignmentPattern == "" {
		alignmentPattern = defaultAlignmentPattern
	}

	namer := cfg.Namer
	if namer.MateSuffix == "" && namer.Extension == "" {
		namer = naming.DefaultNamer
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	stageCfg := stage.Config{Clock: cfg.Clock, Logger: logger}

	return &Controller{
		launcher:          cfg.Launcher,
		resolver:          cfg.Resolver,
		publisher:         cfg.Publisher,
		store:             cfg.Store,
		events:            cfg.Events,
		metrics:           cfg.Metrics,
		fanOut:            stage.NewFanOut(stageCfg),
		sequential:        stage.NewSequential(cfg.Launcher, stageCfg),
		clock:             cfg.Clock,
		star:              cfg.STAR,
		sambamba:          cfg.Sambamba,
		pigz:              cfg.Pigz,
		pbzip2:            cfg.Pbzip2,
		namer:             namer,
		workRoot:          workRoot,
		threads:           threads,
		referenceTemplate: referenceTemplate,
		annotation:        annotation,
		alignmentPattern:  alignmentPattern,
		activeRuns:        make(map[uuid.UUID]struct{}),
		progress:          progress{w: cfg.Progress},
		logger:            logger,
	}, nil
}

// Run выполняет новый run для input.
func (c *Controller) Run(ctx context.Context, input domain.PipelineInput) (*domain.RunManifest, error) {
	return c.RunWithID(ctx, uuid.New(), input)
}

// RunWithID выполняет run с заданным ID (ID приходит из очереди или CLI).
//
// При ошибке возвращается частичный manifest с результатами
// выполненных стадий.
func (c *Controller) RunWithID(ctx context.Context, id uuid.UUID, input domain.PipelineInput) (*domain.RunManifest, error) {
	run := domain.NewRun(id, input)
	err := c.Execute(ctx, run)
	return &run.Manifest, err
}

// stageFunc — исполнитель одной стадии.
type stageFunc func(ctx context.Context, s *runState) (domain.StageResult, error)

// pipelineStage — стадия и её исполнитель.
type pipelineStage struct {
	name domain.StageName
	exec stageFunc
}

// pipeline возвращает стадии в порядке выполнения.
func (c *Controller) pipeline() []pipelineStage {
	return []pipelineStage{
		{domain.StageAcquiring, c.acquire},
		{domain.StageAligning, c.align},
		{domain.StageRenaming, c.rename},
		{domain.StageIndexing, c.index},
		{domain.StagePublishing, c.publish},
	}
}

// Execute выполняет run, находящийся в PENDING.
//
// Ошибка стадии возвращается как *domain.StageError; run при этом
// переходит в FAILED и содержит частичный manifest.
func (c *Controller) Execute(ctx context.Context, run *domain.Run) error {
	if run.State != domain.RunStatePending {
		return fmt.Errorf("%w: %s is %s", ErrRunNotPending, run.ID, run.State)
	}
	if err := c.addActiveRun(run.ID); err != nil {
		return err
	}
	defer c.removeActiveRun(run.ID)

	logger := telemetry.WithRunID(c.logger, run.ID.String())

	// 1. Валидация входа
	if err := run.Input.Validate(); err != nil {
		logger.Warn("invalid pipeline input", "error", err)
		run.MarkFailed("", err)
		c.finish(ctx, run, logger, false)
		return err
	}

	// 2. Рабочая директория — своя на каждый run
	run.WorkDir = filepath.Join(c.workRoot, run.ID.String())
	if err := os.MkdirAll(run.WorkDir, 0o755); err != nil {
		err = fmt.Errorf("create work dir: %w", err)
		run.MarkFailed("", err)
		c.finish(ctx, run, logger, false)
		return err
	}

	c.metrics.RunStarted()
	logger.Info("run started",
		"fastq_r1", run.Input.FastqR1Ref,
		"fastq_r2", run.Input.FastqR2Ref,
		"ref_name", run.Input.ReferenceGenomeID,
		"work_dir", run.WorkDir,
	)
	c.progress.banner(run, c.referenceRef(run.Input.ReferenceGenomeID))

	// 3. Стадии
	s := newRunState(run, logger)
	for _, st := range c.pipeline() {
		if err := c.runStage(ctx, s, st.name, st.exec); err != nil {
			c.finish(ctx, run, logger, true)
			return err
		}
	}

	// 4. Финализация
	if err := run.MarkComplete(); err != nil {
		run.MarkFailed(domain.StagePublishing, err)
		c.finish(ctx, run, logger, true)
		return err
	}
	c.finish(ctx, run, logger, true)
	return nil
}

// runStage переводит run в состояние стадии, выполняет её и записывает результат.
func (c *Controller) runStage(ctx context.Context, s *runState, name domain.StageName, exec stageFunc) error {
	run := s.run
	if err := run.Advance(name.State()); err != nil {
		run.MarkFailed(name, err)
		return &domain.StageError{Stage: name, Err: err}
	}

	logger := telemetry.WithStage(s.logger, name.String())
	logger.Info("stage started")
	c.progress.stageStarted(name)

	// Отмена до старта стадии не запускает инструменты
	var (
		res domain.StageResult
		err error
	)
	if ctxErr := ctx.Err(); ctxErr != nil {
		res, err = stage.Measure(name, c.clock, func() error { return ctxErr })
	} else {
		res, err = exec(ctx, s)
	}

	run.Manifest.AddStage(res)
	c.metrics.ObserveStage(name.String(), res.DurationSeconds, res.Success, res.Tool)
	c.progress.stageFinished(res)

	if err != nil {
		logger.Error("stage failed",
			"tool", res.Tool,
			"exit_code", res.ExitCode,
			"duration", res.Duration(),
			"error", err,
		)
		run.MarkFailed(name, err)
		return &domain.StageError{Stage: name, Err: err}
	}

	logger.Info("stage completed", "duration", res.Duration())
	return nil
}

// finish сохраняет run и публикует событие завершения.
// Ошибки сохранения только логируются и не меняют исход run.
func (c *Controller) finish(ctx context.Context, run *domain.Run, logger *slog.Logger, started bool) {
	// Итог сохраняем даже после отмены ctx
	ctx = context.WithoutCancel(ctx)

	if started {
		c.metrics.RunFinished(string(run.State))
	}

	if c.store != nil {
		if err := c.store.SaveRun(ctx, run); err != nil {
			logger.Error("failed to save run", "error", err)
		}
	}

	if c.events != nil {
		if err := c.events.PublishRunFinished(ctx, run); err != nil {
			logger.Error("failed to publish run finished", "error", err)
		}
	}

	c.progress.finished(run)

	if run.State == domain.RunStateComplete {
		logger.Info("run completed",
			"duration", run.Duration(),
			"star_bam", run.Manifest.Published.Primary,
			"star_index", run.Manifest.Published.Index,
		)
		return
	}
	logger.Warn("run failed",
		"failed_stage", run.FailedStage,
		"error", run.Error,
	)
}

// referenceRef возвращает ссылку на архив референса для генома.
func (c *Controller) referenceRef(genomeID string) string {
	return fmt.Sprintf(c.referenceTemplate, genomeID)
}

// addActiveRun добавляет run в активные.
func (c *Controller) addActiveRun(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.activeRuns[id]; exists {
		return fmt.Errorf("%w: %s", ErrRunAlreadyActive, id)
	}
	c.activeRuns[id] = struct{}{}
	return nil
}

// removeActiveRun удаляет run из активных.
func (c *Controller) removeActiveRun(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.activeRuns, id)
}

// ActiveRunsCount возвращает количество выполняющихся runs.
func (c *Controller) ActiveRunsCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.activeRuns)
}
