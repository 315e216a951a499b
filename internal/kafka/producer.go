package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"campus-events/internal/config"
	"campus-events/internal/logger"
	"campus-events/internal/models"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer messageWriter
	Topics config.TopicConfig
	Logger *logger.Logger
}

// NewProducer returns a producer that picks the topic per message.
func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, Topics: topics, Logger: log}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

// PublishTicketEvent sends evt to the topic of its type, keyed by event ID so
// one event's check-ins stay ordered within a partition.
func (p *Producer) PublishTicketEvent(ctx context.Context, evt models.TicketEvent) error {
	topic, err := p.topicFor(evt.Type)
	if err != nil {
		return err
	}

	msgBytes, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	if err := p.Publish(ctx, topic, evt.EventID, msgBytes); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	if p.Logger != nil {
		p.Logger.LogKafka("PUBLISH", topic, fmt.Sprintf("%s ticket=%s", evt.Type, evt.TicketID))
	}
	return nil
}

func (p *Producer) topicFor(t models.TicketEventType) (string, error) {
	switch t {
	case models.TicketIssued:
		return p.Topics.TicketIssued, nil
	case models.TicketCheckedIn:
		return p.Topics.TicketCheckedIn, nil
	}
	return "", fmt.Errorf("no topic for event type %q", t)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
