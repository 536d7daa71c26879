package session

import "sync"

// DefaultQueueCap bounds a session's outbound packet FIFO.
const DefaultQueueCap = 4096

// Queue is the per-session outbound packet FIFO. Many producers push;
// exactly one consumer (the owning HTTP poll) drains. Entries are
// already-framed packet bytes.
type Queue struct {
	mu   sync.Mutex
	buf  [][]byte
	head int
	cap  int
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCap
	}
	return &Queue{cap: capacity}
}

// Push appends a packet. Returns false when the queue is full and the
// packet was dropped.
func (q *Queue) Push(p []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf)-q.head >= q.cap {
		return false
	}
	q.buf = append(q.buf, p)
	return true
}

// PushAll appends several packets, stopping at the first drop.
func (q *Queue) PushAll(ps ...[]byte) bool {
	for _, p := range ps {
		if !q.Push(p) {
			return false
		}
	}
	return true
}

// Pop removes and returns the oldest packet, or nil when empty.
func (q *Queue) Pop() []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.buf) {
		return nil
	}
	p := q.buf[q.head]
	q.buf[q.head] = nil
	q.head++
	q.compact()
	return p
}

// Drain removes all queued packets and returns their bytes concatenated,
// in enqueue order.
func (q *Queue) Drain() []byte {
	q.mu.Lock()
	pending := q.buf[q.head:]
	q.buf = nil
	q.head = 0
	q.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	n := 0
	for _, p := range pending {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range pending {
		out = append(out, p...)
	}
	return out
}

// Len returns the number of queued packets.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) - q.head
}

// compact reclaims consumed head space once it dominates the slice.
// Caller must hold q.mu.
func (q *Queue) compact() {
	if q.head > 64 && q.head*2 >= len(q.buf) {
		q.buf = append(q.buf[:0:0], q.buf[q.head:]...)
		q.head = 0
	}
}
