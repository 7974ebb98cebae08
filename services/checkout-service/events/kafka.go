package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// kafkaWriter is the part of *kafka.Writer the publisher uses.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes order events to Kafka, keyed by order id so all
// events for one order land on the same partition.
type KafkaPublisher struct {
	writer kafkaWriter
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher for the given brokers. The topic is
// chosen per message, so the writer itself has none.
func NewKafkaPublisher(brokers []string, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	logger.Info("kafka publisher initialized", zap.Strings("brokers", brokers))
	return &KafkaPublisher{writer: w, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, message []byte) error {
	if topic == "" {
		return errors.New("empty kafka topic")
	}
	evt, err := Decode(string(message))
	if err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(evt.OrderID),
		Value: message,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", topic, err)
	}
	p.logger.Debug("order event sent", zap.String("topic", topic), zap.String("type", evt.Type), zap.String("order_id", evt.OrderID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
