// Package api содержит HTTP API runs.
//
// Структура:
//   - handler.go     — Handler с DI (хранилище runs, publisher, logger)
//   - routes.go      — регистрация маршрутов
//   - middleware.go  — middleware (logging, recovery)
//   - response.go    — унифицированные JSON-ответы и обработка ошибок
//   - dto.go         — Data Transfer Objects (request/response)
//   - run_handler.go — обработчики для /runs
//
// API монтируется worker'ом рядом с /healthz и /metrics: история
// runs из Postgres и постановка новых runs в очередь.
package api
