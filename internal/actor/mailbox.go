package actor

import "sync"

// mailbox is an unbounded FIFO queue with a single consumer. Pushes never
// block; pop blocks until an item arrives or the mailbox is closed. The
// mutex is held only for queue manipulation, never while waiting.
type mailbox[T any] struct {
	mu     sync.Mutex
	queue  []T
	closed bool
	ready  chan struct{}
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{
		ready: make(chan struct{}, 1),
	}
}

func (m *mailbox[T]) push(v T) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMailboxClosed
	}
	m.queue = append(m.queue, v)
	m.mu.Unlock()

	m.signal()
	return nil
}

// pop dequeues the next item in enqueue order. Returns false once the
// mailbox is closed and empty.
func (m *mailbox[T]) pop() (T, bool) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			v := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return v, true
		}
		closed := m.closed
		m.mu.Unlock()

		if closed {
			var zero T
			return zero, false
		}
		<-m.ready
	}
}

func (m *mailbox[T]) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.signal()
}

// signal wakes the consumer if it is waiting. The channel has capacity one,
// so a pending wakeup is never lost and repeat signals collapse.
func (m *mailbox[T]) signal() {
	select {
	case m.ready <- struct{}{}:
	default:
	}
}
