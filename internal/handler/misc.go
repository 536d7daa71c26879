package handler

import (
	"time"

	"go.uber.org/zap"

	"github.com/gobancho/server/internal/packet"
	"github.com/gobancho/server/internal/session"
)

// HandlePing keeps the session alive. The poll itself already touched
// last-active; nothing to send back.
func HandlePing(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	return nil, nil
}

// HandleLogout tears the session down. Logouts within a second of login
// are ignored; the client fires one spuriously while restarting after a
// login reply.
func HandleLogout(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	if r.Remaining() >= 4 {
		_ = r.ReadI32() // reserved
	}
	if time.Since(s.CreatedAt) < time.Second {
		deps.Log.Debug("ignored early logout", zap.Int32("user", s.UserID))
		return nil, nil
	}
	deps.State.Logout(s)
	return nil, nil
}

// HandleJoinLobby acknowledges the lobby screen. Multiplayer rooms are
// not hosted here, so there are no matches to list.
func HandleJoinLobby(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	return nil, nil
}

// HandlePartLobby acknowledges leaving the lobby screen.
func HandlePartLobby(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	return nil, nil
}
