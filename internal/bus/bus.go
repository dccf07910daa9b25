package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Message is a single event published on a topic.
type Message struct {
	Topic     string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes a message delivered to a subscriber.
type HandlerFunc func(Message) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a subscription.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the subscriber async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered subscriber block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the subscriber.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type subscriber struct {
	name    string
	deliver func(Message)
	buffer  chan Message
}

// Bus routes published messages to topic subscribers. Synchronous
// subscribers run in the publisher's goroutine; buffered subscribers
// drain their queue on a dedicated goroutine.
type Bus struct {
	logger Logger

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	delivered metric.Int64Counter
	dropped   metric.Int64Counter

	mu     sync.RWMutex
	subs   map[string][]*subscriber
	closed bool

	wg sync.WaitGroup
}

// New creates a new Bus with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Bus, error) {
	b := &Bus{
		subs:   make(map[string][]*subscriber),
		logger: logger,
	}

	// Get meter from global OTel provider (returns no-op if not configured)
	m := meter()

	var err error

	b.queueSize, err = m.Int64ObservableGauge(
		"bus.queue.size",
		metric.WithDescription("Current number of messages queued per subscriber"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			b.mu.RLock()
			defer b.mu.RUnlock()
			for topic, subs := range b.subs {
				for _, s := range subs {
					if s.buffer == nil {
						continue
					}
					o.ObserveInt64(b.queueSize, int64(len(s.buffer)),
						metric.WithAttributes(
							attribute.String("topic", topic),
							attribute.String("subscriber", s.name),
						))
				}
			}
			return nil
		},
		b.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	b.delivered, err = m.Int64Counter(
		"bus.messages.delivered",
		metric.WithDescription("Total messages delivered to subscribers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating delivered counter: %w", err)
	}

	b.dropped, err = m.Int64Counter(
		"bus.messages.dropped",
		metric.WithDescription("Total messages dropped due to full subscriber queues"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return b, nil
}

// Subscribe registers a named handler for the given topic.
func (b *Bus) Subscribe(topic, name string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged {
		handler = b.withLogging(topic, name, handler)
	}

	s := &subscriber{name: name}

	if cfg.bufferSize > 0 {
		s.buffer = make(chan Message, cfg.bufferSize)
		b.startDrain(topic, s, handler)
		s.deliver = b.enqueueFunc(topic, s, cfg.blocking)
	} else {
		topicAttrs := metric.WithAttributes(
			attribute.String("topic", topic),
			attribute.String("subscriber", name),
		)
		s.deliver = func(msg Message) {
			if err := handler(msg); err != nil {
				b.logger.Error("handler failed", "topic", topic, "subscriber", name, "error", err)
			}
			b.delivered.Add(context.Background(), 1, topicAttrs)
		}
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], s)
	b.mu.Unlock()
}

// Publish delivers a message to every subscriber of the topic.
// Messages published to topics with no subscribers are discarded.
func (b *Bus) Publish(topic string, payload any) {
	msg := Message{Topic: topic, Payload: payload, Timestamp: time.Now()}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := b.subs[topic]
	b.mu.RUnlock()

	for _, s := range subs {
		s.deliver(msg)
	}
}

// HasSubscribers returns true if at least one handler is subscribed to the topic.
func (b *Bus) HasSubscribers(topic string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic]) > 0
}

// Close stops all buffered subscribers after their queues drain.
// Publish becomes a no-op once Close has been called.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, s := range subs {
			if s.buffer != nil {
				close(s.buffer)
			}
		}
	}
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Bus) startDrain(topic string, s *subscriber, h HandlerFunc) {
	topicAttrs := metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.String("subscriber", s.name),
	)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range s.buffer {
			if err := h(msg); err != nil {
				b.logger.Error("handler failed", "topic", topic, "subscriber", s.name, "error", err)
			}
			b.delivered.Add(context.Background(), 1, topicAttrs)
		}
	}()
}

func (b *Bus) enqueueFunc(topic string, s *subscriber, blocking bool) func(Message) {
	topicAttrs := metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.String("subscriber", s.name),
	)

	if blocking {
		return func(msg Message) {
			s.buffer <- msg
		}
	}

	return func(msg Message) {
		select {
		case s.buffer <- msg:
		default:
			b.dropped.Add(context.Background(), 1, topicAttrs)
			b.logger.Error("queue full, message dropped", "topic", topic, "subscriber", s.name)
		}
	}
}

func (b *Bus) withLogging(topic, name string, h HandlerFunc) HandlerFunc {
	return func(msg Message) error {
		start := time.Now()
		b.logger.Debug("handling message", "topic", topic, "subscriber", name)

		err := h(msg)

		if err != nil {
			b.logger.Error("message failed", "topic", topic, "subscriber", name, "duration", time.Since(start), "error", err)
		} else {
			b.logger.Debug("message complete", "topic", topic, "subscriber", name, "duration", time.Since(start))
		}

		return err
	}
}
