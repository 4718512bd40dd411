package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/staralign/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeRunRequested MessageType = "run.requested"
	MessageTypeRunFinished  MessageType = "run.finished"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// RunRequestedPayload — запрос на выполнение run.
// RunID опционален: пустой — worker сгенерирует новый.
type RunRequestedPayload struct {
	RunID uuid.UUID            `json:"run_id"`
	Input domain.PipelineInput `json:"input"`
}

// RunFinishedPayload — итог run.
type RunFinishedPayload struct {
	RunID       uuid.UUID          `json:"run_id"`
	State       domain.RunState    `json:"state"`
	FailedStage domain.StageName   `json:"failed_stage,omitempty"`
	Error       string             `json:"error,omitempty"`
	DurationSec float64            `json:"duration_seconds"`
	Manifest    domain.RunManifest `json:"manifest"`
}

// NewRunFinishedPayload строит payload из завершённого run.
func NewRunFinishedPayload(run *domain.Run) RunFinishedPayload {
	return RunFinishedPayload{
		RunID:       run.ID,
		State:       run.State,
		FailedStage: run.FailedStage,
		Error:       run.Error,
		DurationSec: run.Duration().Seconds(),
		Manifest:    run.Manifest,
	}
}

// newMessage создаёт сообщение с новым ID.
func newMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishRunRequested ставит run в очередь на выполнение.
// Потребитель: worker.
func (p *Publisher) PublishRunRequested(ctx context.Context, runID uuid.UUID, input domain.PipelineInput) error {
	msg := newMessage(MessageTypeRunRequested, RunRequestedPayload{RunID: runID, Input: input})
	return p.Publish(ctx, ExchangeRuns, RoutingKeyRequested, msg)
}

// PublishRunFinished публикует итог run.
// Потребитель: внешние системы.
func (p *Publisher) PublishRunFinished(ctx context.Context, run *domain.Run) error {
	msg := newMessage(MessageTypeRunFinished, NewRunFinishedPayload(run))
	return p.Publish(ctx, ExchangeRuns, RoutingKeyFinished, msg)
}
