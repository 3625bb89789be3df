package messaging

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/core/ports"
)

const painAlertEventType = "PainAlertRaised"

type painAlertMessage struct {
	Type string `json:"type"`
	ports.PainAlertEvent
}

func (rmq *RabbitMQBroker) PublishPainAlert(ctx context.Context, evt ports.PainAlertEvent) (err error) {
	defer func() {
		rmq.metrics.ObservePainAlert(err)
	}()

	body, err := json.Marshal(painAlertMessage{Type: painAlertEventType, PainAlertEvent: evt})
	if err != nil {
		return err
	}

	// Respect context deadline
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) <= 0 {
			return ctx.Err()
		}
	}

	_, err = rmq.cb.Execute(func() (interface{}, error) {
		err := rmq.ch.PublishWithContext(
			ctx,
			"",            // exchange (default)
			rmq.queueName, // routing key == queue name
			false,         // mandatory
			false,         // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    evt.AlertID,
				Type:         painAlertEventType,
				Timestamp:    evt.Timestamp,
				Body:         body,
			},
		)
		return nil, err
	})
	if err != nil {
		return err
	}

	rmq.log.Info("messaging: pain alert published",
		zap.String("hospital", evt.Hospital),
		zap.String("alert_id", evt.AlertID),
	)
	return nil
}
