package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// Kafka header keys
const (
	HeaderChannel = "channel"
	HeaderTag     = "tag"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes notifications to a topic consumed by the delivery workers
type KafkaSender struct {
	writer messageWriter
}

// NewKafkaSender creates a sender writing to topic on brokers
func NewKafkaSender(brokers []string, topic string) (*KafkaSender, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("a notification topic is required")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return &KafkaSender{writer: writer}, nil
}

// Send publishes msg keyed by call id so every update for a call lands on the same partition
func (k *KafkaSender) Send(ctx context.Context, msg OutboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize notification: %w", err)
	}

	km := kafka.Message{
		Key:   []byte(strconv.FormatInt(msg.CallID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: HeaderChannel, Value: []byte(msg.Channel)},
			{Key: HeaderTag, Value: []byte(msg.Tag)},
		},
		Time: time.Now().UTC(),
	}
	if err := k.writer.WriteMessages(ctx, km); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Close closes the underlying writer
func (k *KafkaSender) Close() error {
	return k.writer.Close()
}
