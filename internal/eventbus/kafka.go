package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	logx "github.com/darkden-lab/tableside/internal/log"
)

// KafkaConfig holds configuration for the Kafka bus.
type KafkaConfig struct {
	Brokers     []string // list of broker addresses
	TopicPrefix string   // prepended to every bus topic
}

// KafkaBus implements Bus using Apache Kafka via segmentio/kafka-go.
//
// Readers are not part of a consumer group: every process tails every topic
// it has local handlers for, starting at the newest offset.
type KafkaBus struct {
	config KafkaConfig
	writer *kafka.Writer
	logger zerolog.Logger

	mu      sync.Mutex
	subs    *registry
	readers map[string]*kafkaReader // topic -> reader
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type kafkaReader struct {
	topic  string
	reader *kafka.Reader
	cancel context.CancelFunc
	done   chan struct{}
}

// NewKafkaBus creates a new KafkaBus. The bus starts a shared producer and
// creates one consumer per subscribed topic. Call Close() to stop all
// consumers and the producer.
func NewKafkaBus(config KafkaConfig) (*KafkaBus, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker address is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	return &KafkaBus{
		config:  config,
		writer:  writer,
		logger:  logx.WithComponent("eventbus.kafka"),
		subs:    newRegistry(),
		readers: make(map[string]*kafkaReader),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// kafkaTopic maps a bus topic to a legal Kafka topic name. Kafka allows only
// ASCII letters, digits, '.', '_' and '-'.
func kafkaTopic(prefix, topic string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return '.'
		}
	}, prefix+topic)
}

// Publish serializes the event to JSON and writes it to the Kafka topic.
func (b *KafkaBus) Publish(ctx context.Context, topic string, event Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.mu.Unlock()

	event.Topic = topic
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Topic: kafkaTopic(b.config.TopicPrefix, topic),
		Key:   []byte(event.ID),
		Value: value,
	}

	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to kafka: %w", err)
	}
	return nil
}

// Subscribe registers handler and starts a reader for topic when it is the
// first local handler.
func (b *KafkaBus) Subscribe(topic string, handler Handler) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", ErrClosed
	}

	handle, first := b.subs.add(topic, handler)
	if !first {
		return handle, nil
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  b.config.Brokers,
		Topic:    kafkaTopic(b.config.TopicPrefix, topic),
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  500 * time.Millisecond,
	})
	if err := reader.SetOffset(kafka.LastOffset); err != nil {
		_ = reader.Close()
		_, _, _ = b.subs.remove(handle)
		return "", fmt.Errorf("seek %s: %w", topic, err)
	}

	subCtx, subCancel := context.WithCancel(b.ctx)
	kr := &kafkaReader{topic: topic, reader: reader, cancel: subCancel, done: make(chan struct{})}
	b.readers[topic] = kr

	b.wg.Add(1)
	go b.consumeLoop(subCtx, kr)

	return handle, nil
}

// Unsubscribe releases handle and stops the topic reader when no local
// handler is left.
func (b *KafkaBus) Unsubscribe(handle string) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}

	topic, last, err := b.subs.remove(handle)
	if err != nil || !last {
		b.mu.Unlock()
		return err
	}
	kr := b.readers[topic]
	delete(b.readers, topic)
	b.mu.Unlock()

	if kr == nil {
		return nil
	}
	return kr.stop()
}

// Close shuts down all consumers and the producer.
func (b *KafkaBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.cancel()
	readers := b.readers
	b.readers = make(map[string]*kafkaReader)
	b.mu.Unlock()

	var errs []error
	for _, kr := range readers {
		if err := kr.stop(); err != nil {
			errs = append(errs, err)
		}
	}
	b.wg.Wait()

	if err := b.writer.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (kr *kafkaReader) stop() error {
	kr.cancel()
	<-kr.done
	return kr.reader.Close()
}

func (b *KafkaBus) consumeLoop(ctx context.Context, kr *kafkaReader) {
	defer b.wg.Done()
	defer close(kr.done)

	for {
		msg, err := kr.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Warn().Err(err).Str(logx.FieldTopic, kr.topic).Msg("kafka read failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			b.logger.Warn().Err(err).Str(logx.FieldTopic, kr.topic).Msg("discarding undecodable bus message")
			continue
		}
		event.Topic = kr.topic
		b.subs.deliver(event)
	}
}
