package journal

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the recorder uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaRecorder publishes events keyed by product id so a product's events stay ordered.
type KafkaRecorder struct {
	writer  MessageWriter
	timeout time.Duration
	log     *slog.Logger
}

func NewKafkaRecorder(topic string, log *slog.Logger, brokers ...string) *KafkaRecorder {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newKafkaRecorder(w, log)
}

func newKafkaRecorder(w MessageWriter, log *slog.Logger) *KafkaRecorder {
	return &KafkaRecorder{writer: w, timeout: 5 * time.Second, log: log}
}

func (r *KafkaRecorder) Record(ctx context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		r.log.ErrorContext(ctx, "failed to marshal journal event", "event_id", e.ID, "error", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(e.ProductID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}

	// the write is detached from request cancellation
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if err := r.writer.WriteMessages(writeCtx, msg); err != nil {
		r.log.ErrorContext(ctx, "failed to publish journal event", "event_id", e.ID, "type", string(e.Type), "error", err)
	}
}

func (r *KafkaRecorder) Close() error {
	return r.writer.Close()
}
