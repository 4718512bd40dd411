package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Disposition — судьба доставки после обработки.
type Disposition int

const (
	// Ack — run обработан, сообщение удаляется из очереди.
	Ack Disposition = iota

	// DeadLetter — сообщение уходит в dlq.runs.
	DeadLetter

	// Requeue — сообщение возвращается в runs.requested.
	Requeue
)

func (d Disposition) String() string {
	switch d {
	case Ack:
		return "ack"
	case DeadLetter:
		return "dead-letter"
	case Requeue:
		return "requeue"
	}
	return fmt.Sprintf("disposition(%d)", int(d))
}

// RunRequest — декодированное сообщение run.requested.
type RunRequest struct {
	RunRequestedPayload

	// MessageID — ID сообщения, для логов.
	MessageID string

	// Redelivered — брокер доставляет сообщение повторно.
	Redelivered bool
}

// RunHandler обрабатывает RunRequest и решает судьбу доставки.
type RunHandler func(ctx context.Context, req RunRequest) Disposition

// DecodeRunRequest разбирает тело доставки из runs.requested.
// Ошибка — сообщение не является корректным run.requested.
func DecodeRunRequest(body []byte) (RunRequest, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return RunRequest{}, fmt.Errorf("unmarshal message: %w", err)
	}
	if err := ExpectType(&msg, MessageTypeRunRequested); err != nil {
		return RunRequest{}, err
	}

	payload, err := ParsePayload[RunRequestedPayload](&msg)
	if err != nil {
		return RunRequest{}, err
	}
	return RunRequest{RunRequestedPayload: payload, MessageID: msg.ID}, nil
}

// RunConsumer потребляет runs.requested и передаёт запросы RunHandler.
type RunConsumer struct {
	conn     *Connection
	logger   *slog.Logger
	handler  RunHandler
	prefetch int
}

// NewRunConsumer создаёт RunConsumer. prefetch <= 0 — один run в полёте.
func NewRunConsumer(conn *Connection, logger *slog.Logger, handler RunHandler, prefetch int) *RunConsumer {
	if prefetch <= 0 {
		prefetch = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunConsumer{
		conn:     conn,
		logger:   logger.With("queue", QueueRunsRequested),
		handler:  handler,
		prefetch: prefetch,
	}
}

// Run потребляет очередь до отмены ctx. После разрыва соединения
// ждёт переподключения и подписывается заново.
func (c *RunConsumer) Run(ctx context.Context) error {
	for {
		deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to subscribe", "error", err)
		} else {
			c.logger.Info("consumer started", "prefetch", c.prefetch)
			if err := c.drain(ctx, deliveries); err != nil {
				return err
			}
			c.logger.Warn("deliveries channel closed, waiting for reconnect")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.Reconnected():
		}
	}
}

// subscribe выставляет prefetch и подписывается на runs.requested.
func (c *RunConsumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	// Подтверждение вручную: run может идти часами
	deliveries, err := ch.Consume(string(QueueRunsRequested), "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

// drain обрабатывает доставки, пока канал открыт.
// Возвращает ошибку ctx при отмене и nil при закрытии канала.
func (c *RunConsumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.handle(ctx, raw)
		}
	}
}

// handle декодирует доставку, вызывает handler и подтверждает её.
func (c *RunConsumer) handle(ctx context.Context, raw amqp.Delivery) Disposition {
	req, err := DecodeRunRequest(raw.Body)
	if err != nil {
		c.logger.Error("malformed run request",
			"message_id", raw.MessageId,
			"error", err,
			"body", string(raw.Body),
		)
		c.settle(raw, DeadLetter)
		return DeadLetter
	}
	req.Redelivered = raw.Redelivered

	c.logger.Debug("run request received",
		"message_id", req.MessageID,
		"run_id", req.RunID,
		"redelivered", req.Redelivered,
	)

	d := c.handler(ctx, req)
	c.settle(raw, d)
	return d
}

// settle подтверждает доставку согласно d.
func (c *RunConsumer) settle(raw amqp.Delivery, d Disposition) {
	var err error
	switch d {
	case Ack:
		err = raw.Ack(false)
	case Requeue:
		err = raw.Nack(false, true)
	default:
		err = raw.Nack(false, false)
	}
	if err != nil {
		c.logger.Error("failed to settle delivery",
			"message_id", raw.MessageId,
			"disposition", d.String(),
			"error", err,
		)
	}
}

// ParsePayload парсит payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// После json.Unmarshal в Message payload — map[string]any
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}
	return result, nil
}

// ExpectType проверяет тип сообщения.
func ExpectType(msg *Message, want MessageType) error {
	if msg.Type != want {
		return fmt.Errorf("%w: got %q, want %q", ErrUnexpectedMessage, msg.Type, want)
	}
	return nil
}
