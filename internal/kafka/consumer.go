package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"campus-events/internal/logger"
	"campus-events/internal/models"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader messageReader
	logger *logger.Logger
	// retryDelay is how long Start waits after a read error.
	retryDelay time.Duration
}

// NewConsumer reads topics as a member of groupID.
func NewConsumer(brokers, topics []string, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: topics,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.LastOffset,
	})
	return &Consumer{reader: reader, logger: log, retryDelay: time.Second}
}

// Start delivers every ticket event to handler until ctx is cancelled or the
// reader is closed.
func (c *Consumer) Start(ctx context.Context, handler func(models.TicketEvent)) {
	c.logger.LogKafka("START", "consumer", "Kafka consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				c.logger.LogKafka("STOP", "consumer", "Kafka consumer stopped")
				return
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}

		var evt models.TicketEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal message from %s: %v", msg.Topic, err))
			continue
		}

		c.logger.Debug("KAFKA", fmt.Sprintf("Received %s for ticket %s", evt.Type, evt.TicketID))
		handler(evt)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
