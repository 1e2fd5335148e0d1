package kafka

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/BearBump/upstrack/internal/broker/messages"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler processes one message value. A non-nil error stops Consume without committing.
type Handler func(ctx context.Context, key, value []byte) error

// Consumer reads tracking updates with at-least-once delivery: an offset is
// committed only after the handler accepted the message. A message the handler
// rejected is kept and handed over again by the next Consume call, because the
// reader itself never re-fetches an uncommitted message.
//
// Consume must not be called concurrently.
type Consumer struct {
	r       messageReader
	log     *slog.Logger
	pending *kafka.Message
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	}
	if groupID != "" {
		cfg.GroupTopics = []string{topic}
	} else {
		cfg.Topic = topic
	}
	return newConsumerWithReader(kafka.NewReader(cfg))
}

func newConsumerWithReader(r messageReader) *Consumer {
	return &Consumer{r: r, log: slog.Default()}
}

func (c *Consumer) WithLogger(l *slog.Logger) *Consumer {
	if l != nil {
		c.log = l
	}
	return c
}

func (c *Consumer) Close() error {
	return c.r.Close()
}

func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.next(ctx)
		if err != nil {
			return errors.Wrap(err, "fetch message")
		}

		if ct := headerValue(msg, headerContentType); ct != "" && !strings.EqualFold(ct, messages.ContentTypeJSON) {
			c.log.Warn("kafka message skipped",
				"topic", msg.Topic, "offset", msg.Offset, "content_type", ct)
		} else if err := handler(ctx, msg.Key, msg.Value); err != nil {
			c.pending = &msg
			c.log.Error("kafka handler failed, message will be retried",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"message_id", headerValue(msg, headerMessageID),
				"error", err.Error(),
			)
			return err
		}
		c.pending = nil

		if err := c.r.CommitMessages(ctx, msg); err != nil {
			return errors.Wrapf(err, "commit offset %d", msg.Offset)
		}
	}
}

func (c *Consumer) next(ctx context.Context) (kafka.Message, error) {
	if c.pending != nil {
		return *c.pending, nil
	}
	return c.r.FetchMessage(ctx)
}
