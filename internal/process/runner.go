package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/shaiso/staralign/internal/domain"
)

// Runner запускает внешние процессы.
type Runner struct {
	stdout  io.Writer
	stderr  io.Writer
	timeout time.Duration
	logger  *slog.Logger
}

// Config — конфигурация Runner.
type Config struct {
	// Stdout — куда пишется stdout инструментов (default: os.Stdout).
	Stdout io.Writer

	// Stderr — куда пишется stderr инструментов (default: os.Stderr).
	Stderr io.Writer

	// Timeout — предельное время одного процесса. 0 — без ограничения.
	Timeout time.Duration

	// Logger
	Logger *slog.Logger
}

// NewRunner создаёт новый Runner.
func NewRunner(cfg Config) *Runner {
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		stdout:  stdout,
		stderr:  stderr,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Launch запускает процесс и сразу возвращает Handle.
//
// Ошибка запуска (нет бинарника, не создаётся файл stdout) возвращается
// как *domain.ExternalToolFailure с ExitCode = -1.
func (r *Runner) Launch(ctx context.Context, spec CommandSpec) (Handle, error) {
	if spec.Tool == "" {
		return nil, &domain.ExternalToolFailure{Tool: "<empty>", ExitCode: -1, Err: ErrEmptyTool}
	}

	cancel := context.CancelFunc(func() {})
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	}

	cmd := exec.CommandContext(ctx, spec.Tool, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.Stderr = r.stderr

	var out *os.File
	switch {
	case spec.Stdout != "":
		f, err := os.Create(spec.Stdout)
		if err != nil {
			cancel()
			return nil, &domain.ExternalToolFailure{
				Tool:     spec.Tool,
				ExitCode: -1,
				Err:      fmt.Errorf("create stdout file: %w", err),
			}
		}
		out = f
		cmd.Stdout = f
	case spec.Output == OutputDiscard:
		cmd.Stdout = io.Discard
	default:
		cmd.Stdout = r.stdout
	}

	if err := cmd.Start(); err != nil {
		cancel()
		if out != nil {
			out.Close()
		}
		return nil, &domain.ExternalToolFailure{Tool: spec.Tool, ExitCode: -1, Err: err}
	}

	r.logger.Debug("process started",
		"tool", spec.Tool,
		"pid", cmd.Process.Pid,
		"command", spec.String(),
	)

	return &processHandle{
		spec:    spec,
		cmd:     cmd,
		ctx:     ctx,
		out:     out,
		cancel:  cancel,
		started: time.Now(),
		logger:  r.logger,
	}, nil
}

// Run запускает процесс и ждёт его завершения.
func (r *Runner) Run(ctx context.Context, spec CommandSpec) error {
	h, err := r.Launch(ctx, spec)
	if err != nil {
		return err
	}
	return h.Wait()
}

// processHandle — Handle запущенного процесса.
type processHandle struct {
	spec    CommandSpec
	cmd     *exec.Cmd
	ctx     context.Context
	out     *os.File
	cancel  context.CancelFunc
	started time.Time
	logger  *slog.Logger

	once sync.Once
	err  error
}

// Wait ждёт завершения процесса.
func (h *processHandle) Wait() error {
	h.once.Do(func() {
		h.err = h.wait()
	})
	return h.err
}

func (h *processHandle) wait() error {
	defer h.cancel()

	waitErr := h.cmd.Wait()

	if h.out != nil {
		if err := h.out.Close(); err != nil && waitErr == nil {
			waitErr = fmt.Errorf("close stdout file: %w", err)
		}
	}

	elapsed := time.Since(h.started)

	if waitErr == nil {
		h.logger.Debug("process exited",
			"tool", h.spec.Tool,
			"exit_code", 0,
			"duration", elapsed,
		)
		return nil
	}

	failure := &domain.ExternalToolFailure{Tool: h.spec.Tool, ExitCode: -1, Err: waitErr}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		failure.ExitCode = exitErr.ExitCode()
	}

	// Процесс убит по таймауту или отмене
	if ctxErr := h.ctx.Err(); ctxErr != nil {
		failure.ExitCode = -1
		failure.Err = ctxErr
	}

	h.logger.Debug("process exited",
		"tool", h.spec.Tool,
		"exit_code", failure.ExitCode,
		"duration", elapsed,
		"error", waitErr,
	)

	return failure
}
