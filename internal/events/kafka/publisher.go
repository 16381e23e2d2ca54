package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"expensetracker/internal/events"
	applog "expensetracker/internal/log"
)

// Publisher writes change events to a Kafka topic, keyed by expense id so
// every change of one expense lands on the same partition.
type Publisher struct {
	writer *kafka.Writer
	logger *applog.Logger
}

func NewPublisher(brokers []string, topic string, logger *applog.Logger) *Publisher {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
		logger: logger.WithComponent(applog.ComponentEvents).With("transport", "kafka"),
	}
}

func buildMessage(e events.Event) (kafka.Message, error) {
	data, err := e.ToJSON()
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.ID),
		Value: data,
		Time:  e.Timestamp,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}, nil
}

// Publish implements events.Publisher
func (p *Publisher) Publish(ctx context.Context, e events.Event) error {
	msg, err := buildMessage(e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	p.logger.DebugContext(ctx, "Published expense event",
		applog.FieldEventType, e.Type,
		applog.FieldExpenseID, e.ID,
		"topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
