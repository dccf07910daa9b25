package bus

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func newTestBus(t *testing.T) (*Bus, *testLogger) {
	logger := &testLogger{}

	b, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create bus: %v", err)
	}

	return b, logger
}

func TestBus_SyncSubscriber(t *testing.T) {
	b, _ := newTestBus(t)

	var got Message
	called := false
	b.Subscribe("launch.request", "engine", func(msg Message) error {
		called = true
		got = msg
		return nil
	})

	b.Publish("launch.request", "payload")

	if !called {
		t.Error("handler was not called")
	}
	if got.Topic != "launch.request" {
		t.Errorf("expected topic 'launch.request', got %q", got.Topic)
	}
	if got.Payload != "payload" {
		t.Errorf("expected payload 'payload', got %v", got.Payload)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestBus_NoSubscribers(t *testing.T) {
	b, _ := newTestBus(t)

	// Should not panic or block
	b.Publish("nobody.listening", 42)
}

func TestBus_MultipleSubscribers(t *testing.T) {
	b, _ := newTestBus(t)

	var first, second atomic.Int32
	b.Subscribe("projectile.terminal", "store", func(msg Message) error {
		first.Add(1)
		return nil
	})
	b.Subscribe("projectile.terminal", "command", func(msg Message) error {
		second.Add(1)
		return nil
	})

	b.Publish("projectile.terminal", nil)
	b.Publish("projectile.terminal", nil)

	if first.Load() != 2 {
		t.Errorf("expected first subscriber called twice, got %d", first.Load())
	}
	if second.Load() != 2 {
		t.Errorf("expected second subscriber called twice, got %d", second.Load())
	}
}

func TestBus_BufferedSubscriber(t *testing.T) {
	b, _ := newTestBus(t)

	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	b.Subscribe("radar.detection", "command", func(msg Message) error {
		processed.Add(1)
		wg.Done()
		return nil
	}, Buffered(100))

	for i := 0; i < 3; i++ {
		b.Publish("radar.detection", i)
	}

	wg.Wait()

	if processed.Load() != 3 {
		t.Errorf("expected 3 processed, got %d", processed.Load())
	}
}

func TestBus_BufferedDropsWhenFull(t *testing.T) {
	b, logger := newTestBus(t)

	// Block the handler so the queue fills up
	block := make(chan struct{})
	b.Subscribe("projectile.position", "slow", func(msg Message) error {
		<-block
		return nil
	}, Buffered(2))

	b.Publish("projectile.position", 1) // being processed
	b.Publish("projectile.position", 2) // queued
	b.Publish("projectile.position", 3) // queued

	// This one should be dropped
	b.Publish("projectile.position", 4)

	logger.mu.Lock()
	hasDrop := false
	for _, msg := range logger.messages {
		if len(msg) >= 5 && msg[:5] == "ERROR" {
			hasDrop = true
			break
		}
	}
	logger.mu.Unlock()

	if !hasDrop {
		t.Error("expected drop to be logged")
	}

	close(block)
}

func TestBus_BufferedBlocking(t *testing.T) {
	b, _ := newTestBus(t)

	block := make(chan struct{})
	b.Subscribe("engagement.result", "store", func(msg Message) error {
		<-block
		return nil
	}, Buffered(1), Blocking())

	// First message starts processing
	b.Publish("engagement.result", 1)
	// Second message fills the queue
	b.Publish("engagement.result", 2)

	// Third message should block (test with timeout)
	done := make(chan struct{})
	go func() {
		b.Publish("engagement.result", 3)
		close(done)
	}()

	select {
	case <-done:
		t.Error("publish should have blocked")
	case <-time.After(50 * time.Millisecond):
		// Expected - publish is blocking
	}

	close(block)
}

func TestBus_LoggedSubscriber(t *testing.T) {
	b, logger := newTestBus(t)

	b.Subscribe("launch.request", "engine", func(msg Message) error {
		return nil
	}, Logged())

	b.Publish("launch.request", nil)

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected at least 2 log messages, got %d", len(logger.messages))
	}
}

func TestBus_HandlerError_Logged(t *testing.T) {
	b, logger := newTestBus(t)

	b.Subscribe("launch.request", "engine", func(msg Message) error {
		return fmt.Errorf("test error")
	})

	b.Publish("launch.request", nil)

	logger.mu.Lock()
	defer logger.mu.Unlock()

	hasError := false
	for _, msg := range logger.messages {
		if len(msg) >= 5 && msg[:5] == "ERROR" {
			hasError = true
			break
		}
	}

	if !hasError {
		t.Error("expected error log message")
	}
}

func TestBus_HasSubscribers(t *testing.T) {
	b, _ := newTestBus(t)

	b.Subscribe("radar.detection", "command", func(msg Message) error { return nil })

	if !b.HasSubscribers("radar.detection") {
		t.Error("expected subscribers on radar.detection")
	}

	if b.HasSubscribers("other.topic") {
		t.Error("expected no subscribers on other.topic")
	}
}

func TestBus_CloseDrainsBufferedQueues(t *testing.T) {
	b, _ := newTestBus(t)

	var processed atomic.Int32
	b.Subscribe("projectile.position", "store", func(msg Message) error {
		processed.Add(1)
		return nil
	}, Buffered(100))

	for i := 0; i < 10; i++ {
		b.Publish("projectile.position", i)
	}

	b.Close()

	if processed.Load() != 10 {
		t.Errorf("expected 10 processed after close, got %d", processed.Load())
	}

	// Publish after close is a no-op
	b.Publish("projectile.position", 11)
	if processed.Load() != 10 {
		t.Errorf("expected no delivery after close, got %d", processed.Load())
	}
}

func TestBus_CombinedOptions(t *testing.T) {
	b, logger := newTestBus(t)

	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)

	b.Subscribe("radar.detection", "command", func(msg Message) error {
		processed.Add(1)
		wg.Done()
		return nil
	}, Buffered(100), Logged())

	b.Publish("radar.detection", nil)

	wg.Wait()

	if processed.Load() != 1 {
		t.Errorf("expected 1 processed, got %d", processed.Load())
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected log messages, got %d", len(logger.messages))
	}
}
