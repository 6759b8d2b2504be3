// Package kafkautil provides typed Kafka publish/consume helpers with
// OpenTelemetry trace propagation over kafka.Header.
package kafkautil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// headerCarrier adapts a []kafka.Header slice for OTel's TextMapCarrier.
type headerCarrier struct{ headers *[]kafka.Header }

func (c headerCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, val string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(val)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(val)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

// Producer lazily manages a kafka.Writer per topic, one long-lived
// connection per destination.
type Producer struct {
	brokers []string
	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewProducer constructs a Producer targeting the given brokers.
func NewProducer(brokers []string) *Producer {
	return &Producer{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

func (p *Producer) writerForTopic(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
		Async:        false,
		Balancer:     &kafka.Hash{},
	}
	p.writers[topic] = w
	return w
}

// Publish serializes v as JSON and writes it to topic, keyed by key so that
// all messages for the same logical entity land on the same partition.
// Trace context from ctx is injected into Kafka message headers.
func Publish[T any](ctx context.Context, p *Producer, topic, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{&msg.Headers})
	return p.writerForTopic(topic).WriteMessages(ctx, msg)
}

// Close releases all writers.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}

// Ping dials the first reachable broker and closes the connection, the
// health endpoint's cheap reachability probe.
func Ping(ctx context.Context, brokers []string) error {
	var lastErr error
	for _, b := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", b)
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close()
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("kafkautil: no brokers configured")
	}
	return lastErr
}

// Reader is the minimal kafka.Reader surface the fetch loop needs, so tests
// can substitute a fake.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// NewReader builds a consumer-group Reader for topic within group.
func NewReader(brokers []string, group, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     group,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
}

// TopicLag reports the consumer group's aggregate unread-message count for
// topic, sampled by cmd/monitor on its polling interval. It opens a
// short-lived reader rather than
// reusing the processor's long-lived one, since the monitor runs in its own
// process and must not steal partition ownership from the consumer fleet.
func TopicLag(ctx context.Context, brokers []string, group, topic string) (int64, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: group,
		Topic:   topic,
	})
	defer r.Close()

	// ReadLag issues the group's committed-offset-vs-high-watermark
	// comparison without consuming a message.
	return r.ReadLag(ctx)
}

// Decode extracts trace context from a Kafka message's headers and
// unmarshals its JSON value into T. Malformed payloads return an error; the
// caller decides whether to commit-and-drop or retry.
func Decode[T any](ctx context.Context, msg kafka.Message) (context.Context, T, error) {
	var v T
	headers := msg.Headers
	traced := otel.GetTextMapPropagator().Extract(ctx, headerCarrier{&headers})
	if err := json.Unmarshal(msg.Value, &v); err != nil {
		return traced, v, err
	}
	return traced, v, nil
}
