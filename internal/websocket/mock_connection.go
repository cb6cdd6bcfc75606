package websocket

import (
	"errors"
	"sync"
	"time"
)

// ErrMockClosed is returned by a closed MockConnection
var ErrMockClosed = errors.New("connection closed")

// MockConnection is an in-memory Connection for tests. ReadMessage blocks
// until a message is fed or the connection is closed.
type MockConnection struct {
	mu sync.Mutex

	incoming chan MockMessage
	closed   chan struct{}
	once     sync.Once
	notify   chan struct{}

	// WriteErr, when set, fails every write
	WriteErr        error
	WrittenMessages []MockMessage

	ReadDeadline  time.Time
	WriteDeadline time.Time
	PongHandler   func(string) error
	RemoteAddress string
	ReadLimit     int64
}

// MockMessage represents a message for mocking
type MockMessage struct {
	Type int
	Data []byte
}

// NewMockConnection creates a new mock connection
func NewMockConnection() *MockConnection {
	return &MockConnection{
		incoming:      make(chan MockMessage, 16),
		closed:        make(chan struct{}),
		notify:        make(chan struct{}, 1),
		RemoteAddress: "127.0.0.1:8080",
	}
}

// Feed queues a message for ReadMessage
func (m *MockConnection) Feed(messageType int, data []byte) {
	select {
	case m.incoming <- MockMessage{Type: messageType, Data: data}:
	case <-m.closed:
	}
}

// WriteMessage implements Connection.WriteMessage
func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.closed:
		return ErrMockClosed
	default:
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.WrittenMessages = append(m.WrittenMessages, MockMessage{Type: messageType, Data: append([]byte(nil), data...)})
	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

// ReadMessage implements Connection.ReadMessage
func (m *MockConnection) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-m.incoming:
		return msg.Type, msg.Data, nil
	case <-m.closed:
		return 0, nil, ErrMockClosed
	}
}

// Close implements Connection.Close
func (m *MockConnection) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

// IsClosed reports whether Close was called
func (m *MockConnection) IsClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

// SetReadDeadline implements Connection.SetReadDeadline
func (m *MockConnection) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadDeadline = t
	return nil
}

// SetWriteDeadline implements Connection.SetWriteDeadline
func (m *MockConnection) SetWriteDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteDeadline = t
	return nil
}

// SetReadLimit implements Connection.SetReadLimit
func (m *MockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadLimit = limit
}

// SetPongHandler implements Connection.SetPongHandler
func (m *MockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PongHandler = h
}

// RemoteAddr implements Connection.RemoteAddr
func (m *MockConnection) RemoteAddr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RemoteAddress
}

// GetWrittenMessages returns all messages written to the connection
func (m *MockConnection) GetWrittenMessages() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockMessage, len(m.WrittenMessages))
	copy(result, m.WrittenMessages)
	return result
}

// WaitForWrites blocks until match accepts the written messages or timeout
// passes, returning the messages seen last
func (m *MockConnection) WaitForWrites(timeout time.Duration, match func([]MockMessage) bool) ([]MockMessage, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		msgs := m.GetWrittenMessages()
		if match(msgs) {
			return msgs, true
		}
		select {
		case <-m.notify:
		case <-deadline.C:
			return m.GetWrittenMessages(), false
		}
	}
}
