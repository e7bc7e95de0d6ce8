package notify

import (
	"context"
	"sync"
	"time"
)

// Mock implements Notifier for testing. It records sent events and can be
// configured to fail.
type Mock struct {
	mu   sync.Mutex
	sent []Event
	err  error
}

// NewMock creates a Mock notifier.
func NewMock() *Mock {
	return &Mock{}
}

// Send records the event. Returns the configured error, if any.
func (m *Mock) Send(ctx context.Context, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	m.sent = append(m.sent, evt)
	return nil
}

// --- Test helpers ---

// Fail configures Send to return err for all subsequent calls.
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// LastSent returns the most recently sent event.
// Returns zero value and false if no events have been sent.
func (m *Mock) LastSent() (Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return Event{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// SentCount returns the number of events sent.
func (m *Mock) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// AllSent returns a copy of all sent events.
func (m *Mock) AllSent() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.sent))
	copy(out, m.sent)
	return out
}
