package events

import (
	"context"
	"sync"
	"testing"
	"time"
)

// mockProducer implements Producer for tests.
type mockProducer struct {
	mu      sync.Mutex
	events  []*Event
	emitErr error
	delay   time.Duration
}

func (m *mockProducer) Emit(ctx context.Context, event *Event) error {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.delay):
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.emitErr
}

func (m *mockProducer) Close() error { return nil }

func (m *mockProducer) getEvents() []*Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

func TestEmitAsync_NilProducer(t *testing.T) {
	// Should not panic
	EmitAsync(nil, context.Background(), &Event{Type: TypePasscodeIssued})
}

func TestEmitAsync_NilEvent(t *testing.T) {
	producer := &mockProducer{}

	EmitAsync(producer, context.Background(), nil)

	time.Sleep(10 * time.Millisecond)
	if n := len(producer.getEvents()); n != 0 {
		t.Errorf("expected 0 events, got %d", n)
	}
}

func TestEmitAsync_SuccessfulEmit(t *testing.T) {
	producer := &mockProducer{}
	event := &Event{Type: TypePasscodeIssued, JTI: "jti-1", Flow: "SignIn"}

	EmitAsync(producer, context.Background(), event)

	time.Sleep(100 * time.Millisecond)
	events := producer.getEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != TypePasscodeIssued {
		t.Errorf("event type = %q, want %q", events[0].Type, TypePasscodeIssued)
	}
	if events[0].JTI != "jti-1" {
		t.Errorf("event jti = %q, want %q", events[0].JTI, "jti-1")
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("event createdAt not stamped")
	}
}

func TestEmitAsync_UsesBackgroundContext(t *testing.T) {
	producer := &mockProducer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel the request context immediately

	EmitAsync(producer, ctx, &Event{Type: TypePasscodeVerified})

	time.Sleep(100 * time.Millisecond)
	if n := len(producer.getEvents()); n != 1 {
		t.Errorf("expected 1 event (context.Background used), got %d", n)
	}
}

func TestEmitAsync_ErrorHandling(t *testing.T) {
	producer := &mockProducer{emitErr: context.DeadlineExceeded}

	// Should not panic on error
	EmitAsync(producer, context.Background(), &Event{Type: TypeSocialVerified})

	time.Sleep(100 * time.Millisecond)
}

func TestEmitAsync_ConcurrentAccess(t *testing.T) {
	producer := &mockProducer{}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			EmitAsync(producer, context.Background(), &Event{Type: TypeAccountResolved})
		}()
	}
	wg.Wait()

	time.Sleep(200 * time.Millisecond)
	if n := len(producer.getEvents()); n != 10 {
		t.Errorf("expected 10 events, got %d", n)
	}
}
