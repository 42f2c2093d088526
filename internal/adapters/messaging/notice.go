package messaging

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
)

// Notice is one banner raised by a registration session.
type Notice struct {
	SessionID string          `json:"session_id"`
	Message   string          `json:"message"`
	Severity  domain.Severity `json:"severity"`
	At        time.Time       `json:"at"`
}

// NoticeSink receives notices from the async notifier.
type NoticeSink interface {
	PublishNotice(ctx context.Context, n Notice) error
}

func (rmq *RabbitMQBroker) PublishNotice(ctx context.Context, n Notice) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= 0 {
		return ctx.Err()
	}

	_, err = rmq.cb.Execute(func() (interface{}, error) {
		err := rmq.ch.PublishWithContext(
			ctx,
			"",            // default exchange
			rmq.queueName, // routing key == queue name
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Timestamp:    n.At,
				Body:         body,
			},
		)
		return nil, err
	})
	return err
}
