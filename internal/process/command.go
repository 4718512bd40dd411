package process

import (
	"context"
	"strings"
)

// OutputMode — что делать с выводом процесса.
type OutputMode int

const (
	// OutputInherit — stdout/stderr пишутся в writers runner'а.
	OutputInherit OutputMode = iota

	// OutputDiscard — stdout отбрасывается (аналог > /dev/null),
	// stderr по-прежнему пишется в writer runner'а.
	OutputDiscard
)

// CommandSpec — типизированное описание запуска внешнего инструмента.
type CommandSpec struct {
	// Tool — исполняемый файл (имя в PATH или путь).
	Tool string

	// Args — аргументы, передаются как есть, без shell.
	Args []string

	// Dir — рабочая директория процесса. Пусто — текущая.
	Dir string

	// Env — дополнительные переменные окружения KEY=VALUE.
	Env []string

	// Stdout — путь файла, в который перенаправляется stdout.
	// Имеет приоритет над Output.
	Stdout string

	// Output — политика вывода.
	Output OutputMode
}

// String возвращает команду в человекочитаемом виде (для логов).
func (s CommandSpec) String() string {
	var b strings.Builder
	b.WriteString(s.Tool)
	for _, a := range s.Args {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	if s.Stdout != "" {
		b.WriteString(" > ")
		b.WriteString(s.Stdout)
	}
	return b.String()
}

// Handle — запущенная задача, завершения которой можно дождаться.
type Handle interface {
	// Wait блокирует до завершения задачи. Повторные вызовы
	// возвращают тот же результат.
	Wait() error
}

// Launcher запускает CommandSpec без ожидания завершения.
type Launcher interface {
	Launch(ctx context.Context, spec CommandSpec) (Handle, error)
}

// LauncherFunc адаптирует функцию к Launcher.
type LauncherFunc func(ctx context.Context, spec CommandSpec) (Handle, error)

// Launch вызывает f(ctx, spec).
func (f LauncherFunc) Launch(ctx context.Context, spec CommandSpec) (Handle, error) {
	return f(ctx, spec)
}
