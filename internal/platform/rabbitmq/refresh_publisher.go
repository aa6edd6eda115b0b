package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"marvel-rag/internal/model"
)

// RefreshPublisher queues embedding refresh requests for EmbeddingRefreshWorker.
type RefreshPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewRefreshPublisher(conn *amqp.Connection, queueName string) *RefreshPublisher {
	return &RefreshPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *RefreshPublisher) PublishRefresh(ctx context.Context, event model.RefreshEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := DeclareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal refresh event failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: event.TraceID,
			Timestamp:     event.RequestedAt,
			Body:          payload,
			DeliveryMode:  amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish refresh event failed: %w", err)
	}
	return nil
}

// DeclareQueue declares the durable queue shared by publisher and worker.
func DeclareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s failed: %w", name, err)
	}
	return nil
}
