package connector

import "sync"

// MockMessage is one delivery recorded by a mock connector.
type MockMessage struct {
	ConnectorID string
	To          string
	Usage       UsageType
	Code        string
	Subject     string
	Content     string
}

// MockRecorder collects deliveries performed by the mock SMS and email
// connectors so tests and dev flows can read back what would have been sent.
type MockRecorder struct {
	mu       sync.Mutex
	messages []MockMessage
}

// DefaultMockRecorder receives deliveries from the registered mock connector
// implementations.
var DefaultMockRecorder = &MockRecorder{}

func (r *MockRecorder) record(m MockMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

// Last returns the most recent delivery to the given address.
func (r *MockRecorder) Last(to string) (MockMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].To == to {
			return r.messages[i], true
		}
	}
	return MockMessage{}, false
}

// All returns a copy of every recorded delivery.
func (r *MockRecorder) All() []MockMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MockMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// Reset clears the recorded deliveries.
func (r *MockRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
