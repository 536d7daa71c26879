package handler

import (
	"fmt"

	"github.com/gobancho/server/internal/bancho"
	"github.com/gobancho/server/internal/packet"
	"github.com/gobancho/server/internal/session"
)

// HandleChangeAction swaps the session's activity bundle and broadcasts
// the refreshed stats to accepting recipients.
func HandleChangeAction(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	st := &session.Status{
		Action:     r.ReadU8(),
		InfoText:   r.ReadString(),
		BeatmapMD5: r.ReadString(),
		Mods:       r.ReadI32(),
		Mode:       r.ReadU8(),
		BeatmapID:  r.ReadI32(),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	s.SetStatus(st)
	deps.State.Presence.BroadcastStats(s)
	return nil, nil
}

// HandleRequestStatusUpdate returns the session's own stats packet.
func HandleRequestStatusUpdate(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	return packet.Stats(s.StatsPacket()), nil
}

// HandleReceiveUpdates stores the presence filter carried by the client's
// receive-updates packet.
func HandleReceiveUpdates(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	v := r.ReadI32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	f := session.PresenceFilter(v)
	switch f {
	case session.FilterNone, session.FilterAll, session.FilterFriends:
		s.SetPresenceFilter(f)
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: presence filter %d", bancho.ErrInvalidArgument, v)
	}
}

// HandleToggleBlockNonFriendDms flips the only-friend-DMs flag.
func HandleToggleBlockNonFriendDms(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	v := r.ReadI32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	s.OnlyFriendDMs.Store(v == 1)
	return nil, nil
}
