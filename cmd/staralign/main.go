// staralign — оркестратор выравнивания RNA-seq.
//
// Выполняет run: загрузка FASTQ-пары и референса, выравнивание STAR,
// переименование BAM по первому риду, индекс sambamba, публикация.
//
// Использование:
//
//	staralign [--config FILE] [--json] <command> [flags]
//
// Команды:
//
//	run      Выполнить один run, manifest в stdout
//	submit   Поставить run в очередь RabbitMQ
//	worker   Выполнять runs из очереди
//	runs     История runs (Postgres)
//	config   Итоговая конфигурация
//	version  Версия сборки
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/staralign/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	// graceful shutdown: отмена убивает запущенные инструменты
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := cli.NewApp(version)
	if err := cli.NewRootCmd(app).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
