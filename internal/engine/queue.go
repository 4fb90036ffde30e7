package engine

import "sync"

// inbox holds externally queued message text until the tick loop hands it
// to the current connection's display.
//
// Messages queued while disconnected wait for the next connection. The
// queue is unbounded; callers are expected to be human-paced.
//
// Thread-safety: QueueMessage may be called from any goroutine while the
// Run loop drains.
type inbox struct {
	mu     sync.Mutex
	texts  []string
	closed bool
}

func newInbox() *inbox {
	return &inbox{texts: make([]string, 0, 8)}
}

// Enqueue appends text. Returns false if the inbox is closed.
func (q *inbox) Enqueue(text string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.texts = append(q.texts, text)
	return true
}

// Drain removes and returns everything queued, oldest first.
func (q *inbox) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.texts) == 0 {
		return nil
	}
	out := q.texts
	q.texts = make([]string, 0, 8)
	return out
}

// Len returns the number of waiting messages.
func (q *inbox) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.texts)
}

// Close rejects further messages and drops the waiting ones.
func (q *inbox) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.texts = nil
}
