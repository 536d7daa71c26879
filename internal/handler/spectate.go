package handler

import (
	"fmt"

	"github.com/gobancho/server/internal/bancho"
	"github.com/gobancho/server/internal/packet"
	"github.com/gobancho/server/internal/session"
)

// HandleStartSpectating attaches the session to a host. Switching hosts
// detaches from the previous one first.
func HandleStartSpectating(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	hostID := r.ReadI32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if hostID == s.UserID {
		return nil, fmt.Errorf("%w: cannot spectate self", bancho.ErrInvalidArgument)
	}

	host := deps.State.Store.Get(session.QueryByUserID(hostID))
	if host == nil {
		return nil, fmt.Errorf("%w: user %d offline", bancho.ErrSessionNotExists, hostID)
	}

	if prevID := s.Spectating.Load(); prevID != 0 && prevID != hostID {
		if prev := deps.State.Store.Get(session.QueryByUserID(prevID)); prev != nil {
			deps.State.DetachSpectator(s, prev)
		}
	}
	deps.State.AttachSpectator(s, host)
	return nil, nil
}

// HandleStopSpectating detaches the session from its host, if any.
func HandleStopSpectating(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	hostID := s.Spectating.Load()
	if hostID == 0 {
		return nil, nil
	}
	host := deps.State.Store.Get(session.QueryByUserID(hostID))
	if host == nil {
		s.Spectating.Store(0)
		return nil, nil
	}
	deps.State.DetachSpectator(s, host)
	return nil, nil
}

// HandleSpectateFrames relays a replay frame bundle to every spectator.
// The payload is opaque to the server.
func HandleSpectateFrames(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	frames := r.ReadBytes(r.Remaining())
	if err := r.Err(); err != nil {
		return nil, err
	}
	pkt := packet.SpectateFramesOut(frames)
	for _, id := range s.Spectators() {
		if spec := deps.State.Store.Get(session.QueryByUserID(id)); spec != nil {
			spec.Queue.Push(pkt)
		}
	}
	return nil, nil
}

// HandleCantSpectate tells the host and fellow spectators that this
// session lacks the beatmap.
func HandleCantSpectate(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	hostID := s.Spectating.Load()
	if hostID == 0 {
		return nil, nil
	}
	host := deps.State.Store.Get(session.QueryByUserID(hostID))
	if host == nil {
		return nil, nil
	}
	pkt := packet.CantSpectate(s.UserID)
	host.Queue.Push(pkt)
	for _, id := range host.Spectators() {
		if id == s.UserID {
			continue
		}
		if fellow := deps.State.Store.Get(session.QueryByUserID(id)); fellow != nil {
			fellow.Queue.Push(pkt)
		}
	}
	return nil, nil
}
