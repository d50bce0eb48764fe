package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// ProducerConfig holds Kafka producer configuration. Storefront events are
// published one at a time from request handlers, so the writer sends each
// message immediately and bounds how long a request can wait on the broker.
type ProducerConfig struct {
	Brokers []string

	// WriteTimeout caps a single Publish, retries included.
	WriteTimeout time.Duration

	// MaxAttempts is how many times kafka-go tries a write before giving up.
	MaxAttempts int

	// BatchTimeout is how long the writer waits to fill a batch. Kept short
	// because every Publish is synchronous.
	BatchTimeout time.Duration
}

// DefaultProducerConfig returns defaults for the Kafka producer.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		WriteTimeout: 2 * time.Second,
		MaxAttempts:  3,
		BatchTimeout: 5 * time.Millisecond,
	}
}

// MessageWriter is the part of *kafka.Writer the producer depends on.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes event envelopes with trace context headers.
type Producer struct {
	writer       MessageWriter
	brokers      []string
	writeTimeout time.Duration
	metrics      *ProducerMetrics
	logger       *slog.Logger
}

// NewProducer creates a producer backed by a kafka-go writer. It does not
// dial until the first Publish. Topics must exist; the writer never creates
// them.
func NewProducer(cfg ProducerConfig, reg prometheus.Registerer, logger *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              1,
		BatchTimeout:           cfg.BatchTimeout,
		MaxAttempts:            cfg.MaxAttempts,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
	}
	p := NewProducerWithWriter(w, cfg.Brokers, reg, logger)
	p.writeTimeout = cfg.WriteTimeout
	return p
}

// NewProducerWithWriter creates a producer around an existing writer with no
// per-publish timeout beyond the caller's context.
func NewProducerWithWriter(w MessageWriter, brokers []string, reg prometheus.Registerer, logger *slog.Logger) *Producer {
	return &Producer{
		writer:  w,
		brokers: brokers,
		metrics: NewProducerMetrics(reg),
		logger:  logger,
	}
}

// WithWriteTimeout sets the per-publish timeout and returns p.
func (p *Producer) WithWriteTimeout(d time.Duration) *Producer {
	p.writeTimeout = d
	return p
}

// Publish sends event to topic keyed by its aggregate ID, so all events of one
// aggregate land on the same partition in order.
func (p *Producer) Publish(ctx context.Context, topic string, event *Event) error {
	data, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	headers := event.headers()
	otel.GetTextMapPropagator().Inject(ctx, NewKafkaHeaderCarrier(&headers))

	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(event.AggregateID),
		Value:   data,
		Headers: headers,
	}

	if p.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.writeTimeout)
		defer cancel()
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, msg)
	p.metrics.Duration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.Errors.WithLabelValues(topic).Inc()
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("event_type", event.EventType),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish event to %s: %w", topic, err)
	}

	p.metrics.Published.WithLabelValues(topic).Inc()
	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
	)
	return nil
}

// Ping checks that at least one configured broker is reachable.
func (p *Producer) Ping(ctx context.Context) error {
	return PingBrokers(ctx, p.brokers)
}

// PingBrokers dials each broker in turn and returns nil on the first that
// answers a metadata request.
func PingBrokers(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}

	var lastErr error
	for _, addr := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("kafka ping: all brokers unreachable: %w", lastErr)
}

// Close flushes pending messages and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
