package handler

import (
	"github.com/gobancho/server/internal/packet"
	"github.com/gobancho/server/internal/session"
)

// HandlePresenceRequestAll queues a presence packet for every online user
// the session's filter accepts.
func HandlePresenceRequestAll(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	deps.State.Presence.SendAllPresences(s)
	return nil, nil
}

// lookupOnline resolves user ids against the store, dropping offline ids.
func lookupOnline(ids []int32, deps *Deps) []*session.Session {
	out := make([]*session.Session, 0, len(ids))
	for _, id := range ids {
		if other := deps.State.Store.Get(session.QueryByUserID(id)); other != nil {
			out = append(out, other)
		}
	}
	return out
}

// HandleUserStatsRequest queues stats packets for the explicitly requested
// user ids, subject to the session's filter; own stats are always allowed.
func HandleUserStatsRequest(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	ids := r.ReadI32List()
	if err := r.Err(); err != nil {
		return nil, err
	}
	deps.State.Presence.BatchSendStats(lookupOnline(ids, deps), s)
	return nil, nil
}

// HandleUserPresenceRequest queues presence packets for the explicitly
// requested user ids.
func HandleUserPresenceRequest(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	ids := r.ReadI32List()
	if err := r.Err(); err != nil {
		return nil, err
	}
	deps.State.Presence.BatchSendPresences(lookupOnline(ids, deps), s)
	return nil, nil
}
