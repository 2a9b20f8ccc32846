package messaging

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"arbiter/internal/shared/events"
)

// ErrSubscriberClosed is returned by Publish when a subscriber stopped before
// it accepted the event.
var ErrSubscriberClosed = errors.New("subscriber closed before accepting event")

type Handler func(context.Context, events.Envelope) error

type subscription struct {
	group    string
	handler  Handler
	ch       chan events.Envelope
	done     chan struct{}
	inflight sync.WaitGroup
}

// Bus is the in-process publish/subscribe event bus between the outbox relay
// and the context consumers. In synchronous mode Publish runs every handler
// inline, which keeps end-to-end flows deterministic. In async mode Publish
// waits for buffer space in every subscriber, so a nil return means each
// subscriber holds the event.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscription
	synchronous bool
	bufferSize  int
	wg          sync.WaitGroup
	logger      *slog.Logger
}

type Option func(*Bus)

func WithSynchronousDelivery() Option {
	return func(b *Bus) {
		b.synchronous = true
	}
}

func WithBufferSize(size int) Option {
	return func(b *Bus) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

func NewBus(logger *slog.Logger, opts ...Option) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	bus := &Bus{
		subscribers: make(map[string][]*subscription),
		bufferSize:  128,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(bus)
	}
	return bus
}

func (b *Bus) Publish(ctx context.Context, topic string, event events.Envelope) error {
	b.mu.RLock()
	subs := append([]*subscription(nil), b.subscribers[topic]...)
	for _, sub := range subs {
		sub.inflight.Add(1)
	}
	b.mu.RUnlock()
	defer func() {
		for _, sub := range subs {
			sub.inflight.Done()
		}
	}()

	for _, sub := range subs {
		if b.synchronous {
			b.dispatch(ctx, topic, sub, event)
			continue
		}
		if err := b.enqueue(ctx, topic, sub, event); err != nil {
			return err
		}
	}

	b.logger.Debug("event published",
		"event", "bus_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"subscriber_count", len(subs),
	)
	return nil
}

func (b *Bus) enqueue(ctx context.Context, topic string, sub *subscription, event events.Envelope) error {
	select {
	case sub.ch <- event:
		return nil
	default:
	}
	b.logger.Debug("waiting for slow subscriber",
		"event", "bus_publish_backpressure",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"consumer_group", sub.group,
		"event_id", event.EventID,
	)
	select {
	case sub.ch <- event:
		return nil
	case <-sub.done:
		return ErrSubscriberClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers handler for topic until ctx is cancelled. An async
// subscriber still hands every event it accepted to handler after ctx ends;
// Wait blocks until that is done.
func (b *Bus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, events.Envelope) error,
) error {
	sub := &subscription{group: consumerGroup, handler: handler, done: make(chan struct{})}
	if !b.synchronous {
		sub.ch = make(chan events.Envelope, b.bufferSize)
	}

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], sub)
	b.mu.Unlock()

	if b.synchronous {
		go func() {
			<-ctx.Done()
			b.removeSubscriber(topic, sub)
		}()
		return nil
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				b.removeSubscriber(topic, sub)
				b.flush(context.WithoutCancel(ctx), topic, sub)
				return
			case event := <-sub.ch:
				b.dispatch(ctx, topic, sub, event)
			}
		}
	}()
	return nil
}

// Wait blocks until every async subscriber whose context ended has flushed
// its buffer.
func (b *Bus) Wait() {
	b.wg.Wait()
}

// flush runs after sub left the topic. Publishers that copied sub before the
// removal either enqueue or see done, so once they finish the buffer holds
// every accepted event.
func (b *Bus) flush(ctx context.Context, topic string, sub *subscription) {
	idle := make(chan struct{})
	go func() {
		sub.inflight.Wait()
		close(idle)
	}()
	for {
		select {
		case event := <-sub.ch:
			b.dispatch(ctx, topic, sub, event)
		case <-idle:
			for {
				select {
				case event := <-sub.ch:
					b.dispatch(ctx, topic, sub, event)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, topic string, sub *subscription, event events.Envelope) {
	if err := sub.handler(ctx, event); err != nil {
		b.logger.Error("consumer handler failed",
			"event", "bus_consume_failed",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"consumer_group", sub.group,
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err.Error(),
		)
	}
}

func (b *Bus) removeSubscriber(topic string, target *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	close(target.done)

	items := b.subscribers[topic]
	filtered := make([]*subscription, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	b.subscribers[topic] = filtered
}
