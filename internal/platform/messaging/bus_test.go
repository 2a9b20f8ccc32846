package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"arbiter/internal/shared/events"
)

func TestSynchronousBusDeliversInline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus(nil, WithSynchronousDelivery())
	var received []string
	if err := bus.Subscribe(ctx, "poll.winner.requested", "cg-1", func(_ context.Context, event events.Envelope) error {
		received = append(received, event.EventID)
		return nil
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := bus.Subscribe(ctx, "poll.winner.requested", "cg-2", func(context.Context, events.Envelope) error {
		return errors.New("handler failure is logged only")
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := bus.Publish(ctx, "poll.winner.requested", events.Envelope{EventID: "evt-1"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := bus.Publish(ctx, "other.topic", events.Envelope{EventID: "evt-2"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(received) != 1 || received[0] != "evt-1" {
		t.Fatalf("expected inline delivery of evt-1 only, got %v", received)
	}
}

func TestAsyncBusDeliversToSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus(nil)
	delivered := make(chan string, 1)
	if err := bus.Subscribe(ctx, "ledger.call.requested", "gateway", func(_ context.Context, event events.Envelope) error {
		delivered <- event.EventID
		return nil
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := bus.Publish(ctx, "ledger.call.requested", events.Envelope{EventID: "evt-9"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case got := <-delivered:
		if got != "evt-9" {
			t.Fatalf("expected evt-9, got %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("event was not delivered")
	}
}

func TestAsyncSubscriberFlushesAcceptedEventsOnStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := NewBus(nil, WithBufferSize(4))

	release := make(chan struct{})
	var (
		mu       sync.Mutex
		received []string
	)
	if err := bus.Subscribe(ctx, "poll.balance.completed", "poll-balance-cg", func(_ context.Context, event events.Envelope) error {
		<-release
		mu.Lock()
		received = append(received, event.EventID)
		mu.Unlock()
		return nil
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	for _, id := range []string{"evt-1", "evt-2", "evt-3"} {
		if err := bus.Publish(context.Background(), "poll.balance.completed", events.Envelope{EventID: id}); err != nil {
			t.Fatalf("publish %s failed: %v", id, err)
		}
	}
	cancel()
	close(release)
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 3 {
		t.Fatalf("expected every accepted event to be handled, got %v", received)
	}
}
