package embed

import (
	"encoding/json"
	"sync"
)

// KindChartHeight tags height messages posted to the host document
const KindChartHeight = "chart-height"

// HeightMessage is the host-frame contract. ChartID is always the identifier
// the embed was requested with.
type HeightMessage struct {
	Kind    string `json:"kind"`
	ChartID string `json:"chartId"`
	Height  int    `json:"height"`
}

// Encode returns the JSON form delivered to hosts
func (m HeightMessage) Encode() []byte {
	data, _ := json.Marshal(m)
	return data
}

// Outbox receives every outbound host message
type Outbox interface {
	Post(msg HeightMessage)
}

// Queue is a bounded Outbox. When full the oldest message is dropped, since a
// newer height supersedes it.
type Queue struct {
	mu     sync.Mutex
	ch     chan HeightMessage
	closed bool
}

// NewQueue creates a queue holding up to size messages
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan HeightMessage, size)}
}

// Post enqueues msg without blocking
func (q *Queue) Post(msg HeightMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	for {
		select {
		case q.ch <- msg:
			return
		default:
			select {
			case <-q.ch:
			default:
			}
		}
	}
}

// Messages returns the receive side of the queue
func (q *Queue) Messages() <-chan HeightMessage { return q.ch }

// Close stops accepting messages and closes the channel
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
