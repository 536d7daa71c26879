package channel

import (
	"bytes"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gobancho/server/internal/bus"
	"github.com/gobancho/server/internal/packet"
	"github.com/gobancho/server/internal/session"
)

// Channel is a named chat room. Membership here is authoritative; the
// session's joined-channel set is the cached back-index and is updated in
// the same critical section.
type Channel struct {
	Name      string
	Topic     string
	ReadPriv  int32 // capability bitmask required to join/read
	WritePriv int32 // capability bitmask required to write
	AutoJoin  bool
	AutoClose bool // destroy when the last member leaves

	mu      sync.RWMutex
	members map[int32]*member

	msgs *bus.Bus
	ttl  time.Duration
}

type member struct {
	sess   *session.Session
	cursor uuid.UUID
}

func newChannel(name, topic string, readPriv, writePriv int32, autoJoin, autoClose bool, ttl time.Duration) *Channel {
	return &Channel{
		Name:      name,
		Topic:     topic,
		ReadPriv:  readPriv,
		WritePriv: writePriv,
		AutoJoin:  autoJoin,
		AutoClose: autoClose,
		members:   make(map[int32]*member),
		msgs:      bus.New(),
		ttl:       ttl,
	}
}

// CanRead reports whether the privilege mask satisfies the read capability.
func (c *Channel) CanRead(priv int32) bool {
	return priv&c.ReadPriv == c.ReadPriv
}

// CanWrite reports whether the privilege mask satisfies the write capability.
func (c *Channel) CanWrite(priv int32) bool {
	return priv&c.WritePriv == c.WritePriv
}

// Join adds the session to the member set and records the channel in the
// session's joined set. The member's cursor starts at the newest message,
// so history from before the join is not delivered.
func (c *Channel) Join(s *session.Session) bool {
	if !c.CanRead(s.Privileges.Load()) {
		return false
	}
	c.mu.Lock()
	if _, ok := c.members[s.UserID]; !ok {
		c.members[s.UserID] = &member{sess: s, cursor: c.msgs.Latest()}
		s.JoinChannel(c.Name)
	}
	c.mu.Unlock()
	return true
}

// Leave removes the session from the member set; reports whether the
// channel is now empty.
func (c *Channel) Leave(s *session.Session) (empty bool) {
	c.mu.Lock()
	delete(c.members, s.UserID)
	s.LeaveChannel(c.Name)
	empty = len(c.members) == 0
	c.mu.Unlock()
	return empty
}

// Contains reports whether the user is a member.
func (c *Channel) Contains(userID int32) bool {
	c.mu.RLock()
	_, ok := c.members[userID]
	c.mu.RUnlock()
	return ok
}

// MemberCount returns the current member count.
func (c *Channel) MemberCount() int {
	c.mu.RLock()
	n := len(c.members)
	c.mu.RUnlock()
	return n
}

// Members returns a snapshot of member sessions.
func (c *Channel) Members() []*session.Session {
	c.mu.RLock()
	out := make([]*session.Session, 0, len(c.members))
	for _, m := range c.members {
		out = append(out, m.sess)
	}
	c.mu.RUnlock()
	return out
}

// Info returns the channel-info view of this channel.
func (c *Channel) Info() packet.ChannelInfo {
	return packet.ChannelInfo{
		Name:        c.Name,
		Topic:       c.Topic,
		MemberCount: int16(c.MemberCount()),
	}
}

// Broadcast publishes a message from sender to the channel's message log.
// The sender reads their own copy from their client, never from the log.
func (c *Channel) Broadcast(sender *session.Session, body string) bool {
	if !c.CanWrite(sender.Privileges.Load()) {
		return false
	}
	pkt := packet.SendMessage(packet.Message{
		Sender:   sender.Username,
		SenderID: sender.UserID,
		Body:     body,
		Target:   c.Name,
	})
	c.msgs.PublishFrom(pkt, c.ttl, sender.UserID)
	return true
}

// PublishSystem publishes a server-originated packet to all members.
func (c *Channel) PublishSystem(pkt []byte) {
	c.msgs.Publish(pkt, c.ttl)
}

// DrainFor returns all pending message bytes for the member and advances
// its cursor. The member's own publications are skipped (no echo).
func (c *Channel) DrainFor(s *session.Session) []byte {
	c.mu.Lock()
	m, ok := c.members[s.UserID]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	msgs, cursor := c.msgs.Receive(m.cursor, 0)
	c.mu.Lock()
	// Re-check membership: a concurrent Leave must not resurrect the cursor.
	if cur, ok := c.members[s.UserID]; ok && bytes.Compare(cursor[:], cur.cursor[:]) > 0 {
		cur.cursor = cursor
	}
	c.mu.Unlock()

	var out []byte
	for _, msg := range msgs {
		if msg.Sender == s.UserID {
			continue
		}
		out = append(out, msg.Packet...)
	}
	return out
}

// GC reclaims messages every member has read, plus expired ones.
func (c *Channel) GC() {
	c.mu.RLock()
	var min uuid.UUID
	found := false
	for _, m := range c.members {
		if !found || bytes.Compare(m.cursor[:], min[:]) < 0 {
			min = m.cursor
			found = true
		}
	}
	c.mu.RUnlock()
	if found {
		c.msgs.RemoveBefore(min)
	}
	c.msgs.RemoveInvalid()
}

// PendingMessages returns the size of the message log, for metrics.
func (c *Channel) PendingMessages() int { return c.msgs.Len() }
