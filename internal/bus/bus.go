package bus

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is one published packet with its monotonic id and optional
// expiry. Payload bytes are reference-shared across all subscribers.
type Message struct {
	ID      uuid.UUID
	Packet  []byte
	Sender  int32     // publishing user id, 0 for system traffic
	Expires time.Time // zero = never
}

// Expired reports whether the message is past its expiry at now.
func (m *Message) Expired(now time.Time) bool {
	return !m.Expires.IsZero() && now.After(m.Expires)
}

// Bus is an id-ordered store of fan-out packets. Publications get a
// time-ordered UUIDv7 id; subscribers track their own read cursor and
// pull messages with id greater than it. One publication stores one
// message regardless of subscriber count.
type Bus struct {
	mu   sync.RWMutex
	msgs []Message // ascending by ID
}

func New() *Bus {
	return &Bus{}
}

// Publish stores a packet and returns its assigned id. A zero ttl means
// the message never expires on its own.
func (b *Bus) Publish(pkt []byte, ttl time.Duration) uuid.UUID {
	return b.PublishFrom(pkt, ttl, 0)
}

// PublishFrom stores a packet tagged with the publishing user id, so
// receivers can suppress the sender's own copy.
func (b *Bus) PublishFrom(pkt []byte, ttl time.Duration, sender int32) uuid.UUID {
	id := uuid.Must(uuid.NewV7())
	m := Message{ID: id, Packet: pkt, Sender: sender}
	if ttl > 0 {
		m.Expires = time.Now().Add(ttl)
	}
	b.mu.Lock()
	b.msgs = append(b.msgs, m)
	b.mu.Unlock()
	return id
}

// Receive returns up to limit unexpired messages with id > cursor, in id
// order, along with the advanced cursor. limit <= 0 means no limit.
func (b *Bus) Receive(cursor uuid.UUID, limit int) ([]Message, uuid.UUID) {
	now := time.Now()
	b.mu.RLock()
	defer b.mu.RUnlock()

	i := sort.Search(len(b.msgs), func(i int) bool {
		return bytes.Compare(b.msgs[i].ID[:], cursor[:]) > 0
	})
	var out []Message
	newCursor := cursor
	for ; i < len(b.msgs); i++ {
		if limit > 0 && len(out) >= limit {
			break
		}
		m := b.msgs[i]
		newCursor = m.ID
		if m.Expired(now) {
			continue
		}
		out = append(out, m)
	}
	return out, newCursor
}

// RemoveBefore reclaims all messages with id <= watermark.
func (b *Bus) RemoveBefore(watermark uuid.UUID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := sort.Search(len(b.msgs), func(i int) bool {
		return bytes.Compare(b.msgs[i].ID[:], watermark[:]) > 0
	})
	if i == 0 {
		return 0
	}
	remaining := len(b.msgs) - i
	kept := make([]Message, remaining)
	copy(kept, b.msgs[i:])
	b.msgs = kept
	return i
}

// RemoveInvalid reclaims all expired messages regardless of cursors.
func (b *Bus) RemoveInvalid() int {
	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.msgs[:0]
	removed := 0
	for _, m := range b.msgs {
		if m.Expired(now) {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	b.msgs = kept
	return removed
}

// Len returns the number of stored messages.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.msgs)
}

// Latest returns the id of the newest message, or uuid.Nil when empty.
// New subscribers start their cursor here so they only see traffic
// published after they joined.
func (b *Bus) Latest() uuid.UUID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.msgs) == 0 {
		return uuid.Nil
	}
	return b.msgs[len(b.msgs)-1].ID
}
