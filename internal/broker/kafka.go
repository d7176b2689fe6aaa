package appkafka

import (
	"context"
	"errors"
	"time"

	config "example.com/sqliteblog/internal/init"
	"github.com/segmentio/kafka-go"
)

// KafkaWriter is where the blog publishes post events.
type KafkaWriter interface {
	WriteMessages(messages ...kafka.Message) error
	Close() error
}

// KafkaReader is where the activity worker consumes post events from.
type KafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConfig holds the connection settings of the post event topic.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	GroupID      string // consumer group of the activity worker
	WriteTimeout time.Duration
	ReadTimeout  time.Duration // longest wait for a batch before ReadMessage returns
}

// ConfigFrom picks the Kafka settings out of the application config.
func ConfigFrom(cfg *config.Config) KafkaConfig {
	return KafkaConfig{
		Brokers:      []string{cfg.KafkaBroker},
		Topic:        cfg.KafkaTopic,
		GroupID:      cfg.KafkaGroupID,
		WriteTimeout: cfg.KafkaWriteTO,
		ReadTimeout:  cfg.KafkaReadTO,
	}
}

func (c KafkaConfig) withDefaults() KafkaConfig {
	if len(c.Brokers) == 0 || c.Brokers[0] == "" {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	return c
}

// EventWriter publishes post events. Messages are partitioned by key, so all events of
// one post land on the same partition in commit order.
type EventWriter struct {
	writer *kafka.Writer
}

// NewEventWriter prepares a writer for the post event topic. No connection is made
// until the first write.
func NewEventWriter(cfg KafkaConfig) (*EventWriter, error) {
	cfg = cfg.withDefaults()
	if cfg.Topic == "" {
		return nil, errors.New("kafka: post event topic is not configured")
	}
	return &EventWriter{writer: &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           cfg.WriteTimeout,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}, nil
}

func (w *EventWriter) WriteMessages(messages ...kafka.Message) error {
	return w.writer.WriteMessages(context.Background(), messages...)
}

func (w *EventWriter) Close() error {
	return w.writer.Close()
}

// NopWriter discards every message. It stands in for Kafka when events are disabled.
type NopWriter struct{}

func (NopWriter) WriteMessages(...kafka.Message) error { return nil }

func (NopWriter) Close() error { return nil }

// EventReader consumes post events as a member of the worker's consumer group.
type EventReader struct {
	reader *kafka.Reader
}

func readerConfig(cfg KafkaConfig) kafka.ReaderConfig {
	cfg = cfg.withDefaults()
	return kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       1e6, // post events are small
		MaxWait:        cfg.ReadTimeout,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	}
}

// NewEventReader creates a consumer group reader on the post event topic.
func NewEventReader(cfg KafkaConfig) (*EventReader, error) {
	rc := readerConfig(cfg)
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	return &EventReader{reader: kafka.NewReader(rc)}, nil
}

func (r *EventReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	return r.reader.ReadMessage(ctx)
}

func (r *EventReader) Close() error {
	return r.reader.Close()
}
