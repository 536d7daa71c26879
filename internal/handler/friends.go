package handler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gobancho/server/internal/bancho"
	"github.com/gobancho/server/internal/packet"
	"github.com/gobancho/server/internal/session"
)

// HandleFriendAdd adds a friend edge to the live session and persists it.
// A persistence failure keeps the in-memory edge and is only logged; the
// next login reloads the authoritative set.
func HandleFriendAdd(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	friendID := r.ReadI32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if friendID == s.UserID {
		return nil, fmt.Errorf("%w: cannot friend self", bancho.ErrInvalidArgument)
	}
	s.AddFriend(friendID)
	if deps.Friends != nil {
		if err := deps.Friends.AddFriend(context.Background(), s.UserID, friendID); err != nil {
			deps.Log.Warn("persist friend add failed",
				zap.Int32("user", s.UserID),
				zap.Int32("friend", friendID),
				zap.Error(err),
			)
		}
	}
	return nil, nil
}

// HandleFriendRemove removes a friend edge from the live session and the
// database.
func HandleFriendRemove(s *session.Session, r *packet.Reader, deps *Deps) ([]byte, error) {
	friendID := r.ReadI32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	s.RemoveFriend(friendID)
	if deps.Friends != nil {
		if err := deps.Friends.RemoveFriend(context.Background(), s.UserID, friendID); err != nil {
			deps.Log.Warn("persist friend remove failed",
				zap.Int32("user", s.UserID),
				zap.Int32("friend", friendID),
				zap.Error(err),
			)
		}
	}
	return nil, nil
}
