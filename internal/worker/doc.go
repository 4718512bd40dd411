// Package worker выполняет runs, поставленные в очередь.
//
// # Обзор
//
// Worker — долгоживущий процесс staralign, который:
//
//   - Получает запросы run.requested из очереди runs.requested
//   - Создаёт domain.Run с ID из сообщения (или новым)
//   - Передаёт run в orchestrator.Controller
//   - Отдаёт /healthz и /metrics для Prometheus
//
// Событие run.finished публикует сам Controller, worker его не дублирует.
//
// # Ошибки
//
// Retry нет. Сообщение подтверждается (ack), если run дошёл до
// терминального состояния, даже FAILED: итог уже сохранён и опубликован.
// Исключение — run, прерванный Stop: сообщение возвращается в очередь.
// Непарсящиеся сообщения и инфраструктурные ошибки отклоняются без
// requeue и уходят в dlq.runs.
//
//	w, err := worker.New(worker.Config{
//	    Executor: controller,
//	    Conn:     mqConn,
//	    Logger:   logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
package worker
