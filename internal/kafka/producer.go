package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	brokers []string
	writer  messageWriter
	logger  *slog.Logger
}

func NewProducer(brokers []string, logger *slog.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newProducer(brokers, writer, logger)
}

func newProducer(brokers []string, writer messageWriter, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Producer{brokers: brokers, writer: writer, logger: logger}
}

// Publish writes payload as JSON. Messages sharing a key land on the same partition,
// so events of one booking stay ordered.
func (p *Producer) Publish(ctx context.Context, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	p.logger.DebugContext(ctx, "published to kafka", "topic", topic, "key", key)
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker and reads its partition list.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}
	p.logger.InfoContext(ctx, "connected to kafka", "partitions", len(partitions))
	return nil
}

// EventPublisher sends domain events to the events topic and, when set, a copy to
// the notifications topic the worker consumes.
type EventPublisher struct {
	producer           *Producer
	eventsTopic        string
	notificationsTopic string
}

func NewEventPublisher(producer *Producer, eventsTopic, notificationsTopic string) *EventPublisher {
	return &EventPublisher{producer: producer, eventsTopic: eventsTopic, notificationsTopic: notificationsTopic}
}

func (p *EventPublisher) PublishEvent(ctx context.Context, event domain.Event) error {
	key := event.BookingID
	if key == "" {
		key = string(event.Type)
	}
	if p.eventsTopic != "" {
		if err := p.producer.Publish(ctx, p.eventsTopic, key, event); err != nil {
			return err
		}
	}
	if p.notificationsTopic != "" {
		return p.producer.Publish(ctx, p.notificationsTopic, key, event)
	}
	return nil
}

var _ domain.Publisher = (*EventPublisher)(nil)
