package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/staralign/internal/config"
	"github.com/shaiso/staralign/internal/process"
	"github.com/shaiso/staralign/internal/telemetry"
)

// App — общее состояние команд: глобальные флаги и потоки вывода.
type App struct {
	// ConfigPath — --config.
	ConfigPath string

	// JSON — --json.
	JSON bool

	// Version — версия сборки.
	Version string

	Stdout io.Writer
	Stderr io.Writer

	// Launcher подменяет запуск инструментов. nil — process.Runner.
	Launcher process.Launcher
}

// NewApp создаёт App с выводом в stdout/stderr процесса.
func NewApp(version string) *App {
	return &App{
		Version: version,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// NewRootCmd создаёт корневую команду staralign.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "staralign",
		Short:         "staralign — STAR RNA-seq alignment pipeline",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Path to YAML config (default: $STARALIGN_CONFIG)")
	root.PersistentFlags().BoolVar(&app.JSON, "json", false, "Output in JSON format")

	root.SetOut(app.Stdout)
	root.SetErr(app.Stderr)

	root.AddCommand(
		NewRunCmd(app),
		NewSubmitCmd(app),
		NewWorkerCmd(app),
		NewRunsCmd(app),
		NewConfigCmd(app),
		NewVersionCmd(app),
	)

	return root
}

// loadConfig собирает конфигурацию: defaults, файл, окружение.
func (a *App) loadConfig() (config.Config, error) {
	return config.Load(a.ConfigPath)
}

// logger настраивает slog с выводом в stderr.
func (a *App) logger() *slog.Logger {
	return telemetry.SetupLoggerTo(a.Stderr)
}

// output возвращает Output в режиме --json.
func (a *App) output() *Output {
	return NewOutputTo(a.JSON, a.Stdout, a.Stderr)
}
