package presence

import (
	"go.uber.org/zap"

	"github.com/gobancho/server/internal/packet"
	"github.com/gobancho/server/internal/session"
)

// Engine fans user-stats and user-presence packets out to sessions whose
// presence filter accepts the sender. Delivery is a direct enqueue on each
// recipient's FIFO; the broadcast bus is reserved for untargeted traffic.
type Engine struct {
	store *session.Store
	log   *zap.Logger
}

func NewEngine(store *session.Store, log *zap.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// Accepts reports whether the recipient's filter selects traffic from
// sender. A session never accepts its own fan-out.
func Accepts(recipient, sender *session.Session) bool {
	if recipient.UserID == sender.UserID {
		return false
	}
	switch recipient.PresenceFilter() {
	case session.FilterAll:
		return true
	case session.FilterFriends:
		return recipient.IsFriend(sender.UserID)
	default:
		return false
	}
}

// BroadcastStats enqueues the sender's stats packet to every accepting
// recipient, in store iteration order.
func (e *Engine) BroadcastStats(sender *session.Session) {
	pkt := packet.Stats(sender.StatsPacket())
	e.broadcast(sender, pkt)
}

// BroadcastPresence enqueues the sender's presence packet to every
// accepting recipient.
func (e *Engine) BroadcastPresence(sender *session.Session) {
	pkt := packet.Presence(sender.PresencePacket())
	e.broadcast(sender, pkt)
}

func (e *Engine) broadcast(sender *session.Session, pkt []byte) {
	for _, rec := range e.store.Snapshot() {
		if !Accepts(rec, sender) {
			continue
		}
		if !rec.Queue.Push(pkt) {
			e.log.Warn("presence packet dropped, queue full",
				zap.Int32("recipient", rec.UserID),
				zap.Int32("sender", sender.UserID),
			)
		}
	}
}

// SendAllPresences enqueues one presence packet per online session to the
// recipient, subject to the recipient's filter.
func (e *Engine) SendAllPresences(to *session.Session) {
	for _, sender := range e.store.Snapshot() {
		if !Accepts(to, sender) {
			continue
		}
		to.Queue.Push(packet.Presence(sender.PresencePacket()))
	}
}

// BatchSendStats enqueues the stats packets of the given senders to the
// recipient, subject to the recipient's filter.
func (e *Engine) BatchSendStats(senders []*session.Session, to *session.Session) {
	for _, sender := range senders {
		if sender == nil {
			continue
		}
		if sender.UserID != to.UserID && !Accepts(to, sender) {
			continue
		}
		to.Queue.Push(packet.Stats(sender.StatsPacket()))
	}
}

// BatchSendPresences enqueues the presence packets of the given senders to
// the recipient, subject to the recipient's filter.
func (e *Engine) BatchSendPresences(senders []*session.Session, to *session.Session) {
	for _, sender := range senders {
		if sender == nil {
			continue
		}
		if sender.UserID != to.UserID && !Accepts(to, sender) {
			continue
		}
		to.Queue.Push(packet.Presence(sender.PresencePacket()))
	}
}
