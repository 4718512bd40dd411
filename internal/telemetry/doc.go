// Package telemetry обеспечивает наблюдаемость pipeline.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики стадий и runs
//
// В режиме worker метрики отдаются на /metrics, после CLI-запуска
// они отправляются в Pushgateway (если он настроен).
package telemetry
