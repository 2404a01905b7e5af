package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EventPublisher публикует события прогресса истории.
type EventPublisher interface {
	PublishStoryEvent(ctx context.Context, event StoryEvent) error
}

// AMQPChannel - часть *amqp.Channel, нужная паблишеру.
type AMQPChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

const (
	publishAttempts = 3
	publishTimeout  = 10 * time.Second
	appID           = "story-engine"
)

type rabbitMQPublisher struct {
	channel   AMQPChannel
	queueName string
	logger    *zap.Logger
}

var _ EventPublisher = (*rabbitMQPublisher)(nil)

// NewRabbitMQEventPublisher открывает канал и объявляет durable очередь событий.
func NewRabbitMQEventPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (EventPublisher, *amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("event publisher: open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("event publisher: declare queue %q: %w", queueName, err)
	}
	logger.Info("Story event queue declared", zap.String("queue", queueName))
	return NewPublisherOnChannel(ch, queueName, logger), ch, nil
}

// NewPublisherOnChannel создает паблишер поверх уже открытого канала.
func NewPublisherOnChannel(ch AMQPChannel, queueName string, logger *zap.Logger) EventPublisher {
	return &rabbitMQPublisher{channel: ch, queueName: queueName, logger: logger.Named("EventPublisher")}
}

func (p *rabbitMQPublisher) PublishStoryEvent(ctx context.Context, event StoryEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal story event %s: %w", event.Type, err)
	}
	if err := p.publish(ctx, body); err != nil {
		p.logger.Error("Failed to publish story event",
			zap.String("type", string(event.Type)),
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (p *rabbitMQPublisher) publish(ctx context.Context, body []byte) error {
	if p.channel == nil {
		return errors.New("rabbitmq channel is not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		err = p.channel.PublishWithContext(ctx, "", p.queueName, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			AppId:        appID,
		})
		if err == nil {
			return nil
		}
		p.logger.Warn("Publish attempt failed", zap.Int("attempt", attempt), zap.String("queue", p.queueName), zap.Error(err))
		select {
		case <-ctx.Done():
			return fmt.Errorf("publish to %s: %w", p.queueName, ctx.Err())
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return fmt.Errorf("publish to %s after %d attempts: %w", p.queueName, publishAttempts, err)
}

// NopPublisher используется, когда брокер не настроен.
type NopPublisher struct{}

func (NopPublisher) PublishStoryEvent(context.Context, StoryEvent) error { return nil }

// Dial подключается к RabbitMQ с несколькими попытками.
func Dial(url string, attempts int, delay time.Duration, logger *zap.Logger) (*amqp.Connection, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	for i := 0; i < attempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", attempts),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
	}
	return nil, err
}
