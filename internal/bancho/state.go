package bancho

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"github.com/gobancho/server/internal/bus"
	"github.com/gobancho/server/internal/channel"
	"github.com/gobancho/server/internal/config"
	"github.com/gobancho/server/internal/metrics"
	"github.com/gobancho/server/internal/packet"
	"github.com/gobancho/server/internal/presence"
	"github.com/gobancho/server/internal/session"
)

// State wires the session store, the broadcast bus, the channel registry
// and the presence engine into the shared core every handler touches.
type State struct {
	Store    *session.Store
	Notify   *bus.Bus
	Channels *channel.Registry
	Presence *presence.Engine
	Cfg      *config.Config
	Metrics  *metrics.Metrics // nil when metrics are disabled
	Log      *zap.Logger
}

func NewState(cfg *config.Config, m *metrics.Metrics, log *zap.Logger) *State {
	store := session.NewStore()
	return &State{
		Store:    store,
		Notify:   bus.New(),
		Channels: channel.NewRegistry(cfg.Messages.NotifyExpire, log),
		Presence: presence.NewEngine(store, log),
		Cfg:      cfg,
		Metrics:  m,
		Log:      log,
	}
}

// EnqueueTo pushes packets onto the matching session's FIFO.
func (st *State) EnqueueTo(q session.Query, packets ...[]byte) error {
	s := st.Store.Get(q)
	if s == nil {
		return ErrSessionNotExists
	}
	for _, p := range packets {
		if !s.Queue.Push(p) {
			if st.Metrics != nil {
				st.Metrics.PacketsDropped.Inc()
			}
			st.Log.Warn("queue overflow, packet dropped", zap.Int32("user", s.UserID))
		}
	}
	return nil
}

// BroadcastAll publishes a packet to the broadcast bus for every session
// to pick up on its next poll.
func (st *State) BroadcastAll(pkt []byte) {
	st.Notify.Publish(pkt, st.Cfg.Messages.NotifyExpire)
}

// DrainFor collects all pending outbound bytes for one session: the
// session FIFO, then broadcast-bus traffic since the session's cursor,
// then joined-channel messages. Called from the owning HTTP poll only.
func (st *State) DrainFor(s *session.Session) []byte {
	var out bytes.Buffer
	out.Write(s.Queue.Drain())

	msgs, cursor := st.Notify.Receive(s.BusCursor(), 0)
	for _, m := range msgs {
		if m.Sender == s.UserID {
			continue
		}
		out.Write(m.Packet)
	}
	s.SetBusCursor(cursor)

	for _, name := range s.Channels() {
		if c := st.Channels.Get(name); c != nil {
			out.Write(c.DrainFor(s))
		}
	}
	return out.Bytes()
}

// SpectatorChannelName returns the on-demand channel backing a host's
// spectator chat. Clients address it as "#spectator".
func SpectatorChannelName(hostID int32) string {
	return fmt.Sprintf("#spect_%d", hostID)
}

// Logout removes the session from the store, detaches it from channels and
// spectating relations, and broadcasts a user-logout packet to everyone
// else. Safe to call for a session already displaced out of the store.
func (st *State) Logout(s *session.Session) {
	if cur := st.Store.Get(session.QueryByID(s.ID)); cur == s {
		st.Store.Delete(session.QueryByID(s.ID))
	}

	// Detach from the spectated host, and release own spectators.
	if hostID := s.Spectating.Load(); hostID != 0 {
		if host := st.Store.Get(session.QueryByUserID(hostID)); host != nil {
			st.DetachSpectator(s, host)
		}
	}
	for _, id := range s.Spectators() {
		if spec := st.Store.Get(session.QueryByUserID(id)); spec != nil {
			st.DetachSpectator(spec, s)
		}
	}

	for _, name := range s.Channels() {
		if c := st.Channels.Get(name); c != nil {
			c.Leave(s)
			st.Channels.RemoveIfClosed(c)
		}
	}

	st.BroadcastAll(packet.Logout(s.UserID))
	if st.Metrics != nil {
		st.Metrics.OnlineUsers.Set(float64(st.Store.Len()))
	}
	st.Log.Info("user logged out",
		zap.Int32("user", s.UserID),
		zap.String("username", s.Username),
	)
}

// DetachSpectator unlinks spec from host: membership, channel, and the
// host/fellow notification packets.
func (st *State) DetachSpectator(spec, host *session.Session) {
	spec.Spectating.Store(0)
	empty := host.RemoveSpectator(spec.UserID)

	name := SpectatorChannelName(host.UserID)
	if c := st.Channels.Get(name); c != nil {
		c.Leave(spec)
		if empty {
			// The last spectator is gone; the host leaves too so the
			// channel can close.
			c.Leave(host)
		}
		st.Channels.RemoveIfClosed(c)
	}

	host.Queue.Push(packet.SpectatorLeft(spec.UserID))
	for _, id := range host.Spectators() {
		if fellow := st.Store.Get(session.QueryByUserID(id)); fellow != nil {
			fellow.Queue.Push(packet.FellowSpectatorLeft(spec.UserID))
		}
	}
}

// AttachSpectator links spec to host: membership, the on-demand spectator
// channel, and the host/fellow notification packets.
func (st *State) AttachSpectator(spec, host *session.Session) {
	spec.Spectating.Store(host.UserID)
	host.AddSpectator(spec.UserID)

	name := SpectatorChannelName(host.UserID)
	c := st.Channels.Get(name)
	if c == nil {
		topic := fmt.Sprintf("Spectating %s", host.Username)
		c = st.Channels.Create(name, topic, 0, 0, false, true)
		c.Join(host)
		host.Queue.Push(packet.ChanJoinSuccess("#spectator"))
	}
	c.Join(spec)
	spec.Queue.Push(packet.ChanJoinSuccess("#spectator"))

	for _, id := range host.Spectators() {
		if id == spec.UserID {
			continue
		}
		if fellow := st.Store.Get(session.QueryByUserID(id)); fellow != nil {
			fellow.Queue.Push(packet.FellowSpectatorJoined(spec.UserID))
		}
	}
	host.Queue.Push(packet.SpectatorJoined(spec.UserID))
}
