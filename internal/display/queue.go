package display

import (
	"sync"
	"time"
)

// PendingMessage is one queued notification.
type PendingMessage struct {
	Text     string
	Delay    time.Duration // minimum gap before the next message
	Duration time.Duration // how long the game shows this one
}

// messageQueue is a thread-safe FIFO of pending messages.
//
// The engine's tick dequeues; producers (the engine itself, CLI commands)
// may enqueue from other goroutines.
type messageQueue struct {
	mu    sync.Mutex
	items []PendingMessage
}

func newMessageQueue() *messageQueue {
	return &messageQueue{items: make([]PendingMessage, 0, 16)}
}

// Enqueue appends m.
func (q *messageQueue) Enqueue(m PendingMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, m)
}

// TryDequeue removes and returns the front message.
func (q *messageQueue) TryDequeue() (PendingMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return PendingMessage{}, false
	}
	m := q.items[0]
	q.items[0] = PendingMessage{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return m, true
}

// Len returns the number of pending messages.
func (q *messageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear drops every pending message.
func (q *messageQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.items)
	q.items = q.items[:0]
}
