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

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads domain events from one topic as part of a consumer group.
type Consumer struct {
	reader messageReader
	logger *slog.Logger
}

func NewConsumer(brokers []string, groupID, topic string, logger *slog.Logger) *Consumer {
	return newConsumer(kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		StartOffset:       kafka.FirstOffset,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	}), logger)
}

func newConsumer(reader messageReader, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Consumer{reader: reader, logger: logger}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// ConsumeEvents hands every decodable event to handle until ctx is done.
// Undecodable messages and handler failures are logged and skipped; offsets are
// committed by the reader as messages are read.
func (c *Consumer) ConsumeEvents(ctx context.Context, handle func(context.Context, domain.Event) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		event, err := DecodeEvent(msg)
		if err != nil {
			c.logger.WarnContext(ctx, "skip undecodable event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
			continue
		}
		if err := handle(ctx, event); err != nil {
			c.logger.ErrorContext(ctx, "event handler failed",
				"type", event.Type, "booking_id", event.BookingID, "offset", msg.Offset, "error", err)
		}
	}
}

func DecodeEvent(msg kafka.Message) (domain.Event, error) {
	var event domain.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return domain.Event{}, fmt.Errorf("decode event at offset %d: %w", msg.Offset, err)
	}
	if event.Type == "" {
		return domain.Event{}, fmt.Errorf("event at offset %d has no type", msg.Offset)
	}
	return event, nil
}
