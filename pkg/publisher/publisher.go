package publisher

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers []string `yaml:"brokers" json:"brokers"`
	Topic   string   `yaml:"topic" json:"topic"`
}

// Publisher emits JSON-encoded events of type T to a Kafka topic.
type Publisher[T any] struct {
	writer *kafka.Writer
}

func New[T any](cfg Config) *Publisher[T] {
	w := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &Publisher[T]{writer: w}
}

func (p *Publisher[T]) Publish(ctx context.Context, key string, payload T) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Publisher[T]) Close() error {
	return p.writer.Close()
}
