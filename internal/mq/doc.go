// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — RunConsumer для runs.requested: декодирование run.requested,
//     решение Ack / DeadLetter / Requeue принимает RunHandler
//
// Типы сообщений:
//   - run.requested — запрос на выполнение run (входы pipeline)
//   - run.finished  — run завершён (COMPLETE или FAILED, с manifest)
//
// Exchanges:
//   - staralign.runs — события runs
//   - staralign.dlq  — dead letter queue
package mq
