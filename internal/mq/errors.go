package mq

import "errors"

var (
	// ErrNoChannel — AMQP канал недоступен (нет соединения).
	ErrNoChannel = errors.New("no channel available")

	// ErrUnexpectedMessage — тип сообщения не соответствует очереди.
	ErrUnexpectedMessage = errors.New("unexpected message type")
)
