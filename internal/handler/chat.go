package handler

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gobancho/server/internal/bancho"
	"github.com/gobancho/server/internal/channel"
	"github.com/gobancho/server/internal/packet"
	"github.com/gobancho/server/internal/scripting"
	"github.com/gobancho/server/internal/session"
)

func readMessage(r *packet.Reader) packet.Message {
	return packet.Message{
		Sender:   r.ReadString(),
		SenderID: r.ReadI32(),
		Body:     r.ReadString(),
		Target:   r.ReadString(),
	}
}

// resolveChannel maps a client-facing channel name to the backing channel.
// "#spectator" resolves to the spectator channel of the session's host, or
// of the session itself when it is the one being watched.
func resolveChannel(s *session.Session, name string, deps *Deps) *channel.Channel {
	switch name {
	case "#spectator":
		hostID := s.Spectating.Load()
		if hostID == 0 {
			hostID = s.UserID
		}
		name = bancho.SpectatorChannelName(hostID)
	}
	return deps.State.Channels.Get(name)
}

// HandlePublicMessage routes send-public-message to a channel broadcast.
// Lines starting with "!" are offered to the chat-command engine first and
// are not broadcast when a script claims them.
func HandlePublicMessage(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	msg := readMessage(r)
	if err := r.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.Body) == "" {
		return nil, bancho.ErrInvalidArgument
	}

	c := resolveChannel(s, msg.Target, deps)
	if c == nil {
		return nil, fmt.Errorf("%w: no channel %q", bancho.ErrInvalidArgument, msg.Target)
	}
	if !c.Contains(s.UserID) {
		return nil, fmt.Errorf("%w: not a member of %q", bancho.ErrInvalidArgument, msg.Target)
	}

	cfg := deps.State.Cfg
	body := channel.Censor(msg.Body, cfg.Messages.MaxLength, cfg.Messages.SensitiveWords)

	if reply, handled := runCommand(s, body, msg.Target, deps); handled {
		return packet.Notification(reply), nil
	}

	if !c.Broadcast(s, body) {
		return nil, fmt.Errorf("%w: no write capability on %q", bancho.ErrInvalidArgument, c.Name)
	}
	deps.Log.Debug("public message",
		zap.String("channel", c.Name),
		zap.Int32("sender", s.UserID),
	)
	return nil, nil
}

// HandlePrivateMessage routes send-private-message to the peer's queue.
// A peer with only-friend-DMs set and no friendship silently blocks the
// message; the sender gets a dm-blocked packet and the handler succeeds.
func HandlePrivateMessage(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	msg := readMessage(r)
	if err := r.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.Body) == "" {
		return nil, bancho.ErrInvalidArgument
	}

	peer := deps.State.Store.Get(session.QueryByName(msg.Target))
	if peer == nil {
		return nil, fmt.Errorf("%w: %q offline", bancho.ErrSessionNotExists, msg.Target)
	}
	if peer.OnlyFriendDMs.Load() && !peer.IsFriend(s.UserID) {
		deps.Log.Debug("private message blocked",
			zap.Int32("sender", s.UserID),
			zap.Int32("target", peer.UserID),
		)
		return packet.UserDMBlocked(peer.Username), nil
	}

	cfg := deps.State.Cfg
	body := channel.Censor(msg.Body, cfg.Messages.MaxLength, cfg.Messages.SensitiveWords)

	if reply, handled := runCommand(s, body, "", deps); handled {
		return packet.Notification(reply), nil
	}

	peer.Queue.Push(packet.SendMessage(packet.Message{
		Sender:   s.Username,
		SenderID: s.UserID,
		Body:     body,
		Target:   peer.Username,
	}))
	return nil, nil
}

// runCommand offers a "!" line to the Lua engine.
func runCommand(s *session.Session, body, chanName string, deps *Deps) (string, bool) {
	if deps.Scripting == nil || !strings.HasPrefix(body, "!") {
		return "", false
	}
	fields := strings.Fields(body[1:])
	if len(fields) == 0 {
		return "", false
	}
	return deps.Scripting.OnCommand(fields[0], fields[1:], scripting.CommandContext{
		UserID:     s.UserID,
		Username:   s.Username,
		Privileges: s.Privileges.Load(),
		Channel:    chanName,
		Online:     deps.State.Store.Len(),
	})
}

// HandleChannelJoin joins the session to a channel by name.
func HandleChannelJoin(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	name := r.ReadString()
	if err := r.Err(); err != nil {
		return nil, err
	}
	c := resolveChannel(s, name, deps)
	if c == nil {
		return nil, fmt.Errorf("%w: no channel %q", bancho.ErrInvalidArgument, name)
	}
	if !c.Join(s) {
		return packet.ChanKick(name), fmt.Errorf("%w: no read capability on %q", bancho.ErrInvalidArgument, name)
	}
	return packet.Concat(
		packet.ChanJoinSuccess(name),
		packet.ChanInfo(c.Info()),
	), nil
}

// HandleChannelPart removes the session from a channel by name.
func HandleChannelPart(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	name := r.ReadString()
	if err := r.Err(); err != nil {
		return nil, err
	}
	c := resolveChannel(s, name, deps)
	if c == nil {
		// Client may part a channel already auto-closed; not an error.
		return nil, nil
	}
	c.Leave(s)
	deps.State.Channels.RemoveIfClosed(c)
	return nil, nil
}
