package kafka

import (
	"context"
	"log"

	"github.com/segmentio/kafka-go"
)

// Producer publishes to any topic through one writer. With Enabled false
// every publish is a logged no-op, which keeps local runs working without
// a broker.
type Producer struct {
	Writer  *kafka.Writer
	Enabled bool
}

func NewProducer(brokers []string, enabled bool) *Producer {
	if !enabled {
		return &Producer{Enabled: false}
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer, Enabled: true}
}

func (p *Producer) Publish(topic string, key string, value []byte) error {
	if !p.Enabled {
		log.Printf("KAFKA: disabled, dropping message for %s", topic)
		return nil
	}
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

func (p *Producer) Close() error {
	if p.Writer == nil {
		return nil
	}
	return p.Writer.Close()
}
