package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/visitor-tracker/internal/logger"
	q "github.com/iliyamo/visitor-tracker/internal/queue"
)

// QueuePublisher sends visitor.tracked events to RabbitMQ.  Each publish
// opens its own connection; ingest volume is low and this keeps no broker
// state in the server between requests.
type QueuePublisher struct {
	url string
}

// NewQueuePublisher returns a publisher for the broker at url.
func NewQueuePublisher(url string) *QueuePublisher {
	return &QueuePublisher{url: url}
}

// PublishVisitorTracked publishes event to the visitor.tracked queue as a
// persistent message.  Errors are logged and returned so the caller can
// ignore them without interrupting the request.
func (p *QueuePublisher) PublishVisitorTracked(ctx context.Context, event q.VisitorTrackedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		logger.LogEf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.LogEf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(q.VisitorQueueName, true, false, false, false, nil); err != nil {
		logger.LogEf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		logger.LogEf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    event.VisitorID,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.VisitorQueueName, false, false, pub); err != nil {
		logger.LogEf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
