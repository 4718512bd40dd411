// Package cli реализует команды staralign.
//
// # Обзор
//
// CLI собирает pipeline из конфигурации (config.Load + флаги) и
// либо выполняет один run в текущем процессе, либо запускает
// worker, который берёт runs из RabbitMQ.
//
// # Команды
//
//   - run: выполнить один run, manifest в stdout
//   - submit: поставить run в очередь runs.requested
//   - worker: потреблять runs.requested, отдавать /healthz и /metrics
//   - runs: list, show — история runs из Postgres
//   - config: показать итоговую конфигурацию без секретов
//   - version: версия сборки
//
// Данные выводятся в stdout, логи и прогресс стадий — в stderr.
// Это позволяет использовать pipe: staralign run ... | jq .published
//
// Каждая команда создаётся фабричной функцией (NewRunCmd и т.д.),
// принимающей *App — общие флаги и потоки вывода.
package cli
