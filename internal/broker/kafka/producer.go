package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/BearBump/upstrack/internal/broker/messages"
)

const (
	headerContentType = "content-type"
	headerMessageID   = "message-id"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Producer writes tracking updates to Kafka.
type Producer struct {
	w messageWriter
}

func NewProducer(brokers []string) *Producer {
	return newProducerWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	})
}

func newProducerWithWriter(w messageWriter) *Producer {
	return &Producer{w: w}
}

// PublishUpdate encodes msg as JSON keyed by tracking id, so every update of a
// tracking lands in one partition and keeps its order.
func (p *Producer) PublishUpdate(ctx context.Context, topic string, msg messages.TrackingUpdated) error {
	if msg.TrackingID == 0 {
		return errors.New("kafka publish: tracking id is required")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal tracking update")
	}
	var extra []kafka.Header
	if msg.MessageID != "" {
		extra = append(extra, kafka.Header{Key: headerMessageID, Value: []byte(msg.MessageID)})
	}
	return p.Publish(ctx, topic, []byte(strconv.FormatUint(msg.TrackingID, 10)), body, extra...)
}

// Publish writes one raw JSON value. The content-type header is always set.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	hs := make([]kafka.Header, 0, len(headers)+1)
	hs = append(hs, kafka.Header{Key: headerContentType, Value: []byte(messages.ContentTypeJSON)})
	hs = append(hs, headers...)

	if err := p.w.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: hs,
	}); err != nil {
		return errors.Wrapf(err, "kafka publish to %s", topic)
	}
	return nil
}

func (p *Producer) Close() error {
	if c, ok := p.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
