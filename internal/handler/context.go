package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/gobancho/server/internal/bancho"
	"github.com/gobancho/server/internal/packet"
	"github.com/gobancho/server/internal/scripting"
)

// FriendStore persists friendship edges mutated by friend add/remove
// packets. *persist.UserRepo implements it.
type FriendStore interface {
	AddFriend(ctx context.Context, userID, friendID int32) error
	RemoveFriend(ctx context.Context, userID, friendID int32) error
}

// Deps holds shared dependencies injected into all packet handlers.
type Deps struct {
	State     *bancho.State
	Friends   FriendStore       // nil when persistence is disabled
	Scripting *scripting.Engine // nil when scripting is disabled
	Log       *zap.Logger
}

// RegisterAll registers every packet handler into the registry.
func RegisterAll(reg *Registry) {
	reg.Register(packet.ClientPing, HandlePing)
	reg.Register(packet.ClientSendPublicMessage, HandlePublicMessage)
	reg.Register(packet.ClientSendPrivateMessage, HandlePrivateMessage)
	reg.Register(packet.ClientChannelJoin, HandleChannelJoin)
	reg.Register(packet.ClientChannelPart, HandleChannelPart)
	reg.Register(packet.ClientRequestStatusUpdate, HandleRequestStatusUpdate)
	reg.Register(packet.ClientPresenceRequestAll, HandlePresenceRequestAll)
	reg.Register(packet.ClientUserStatsRequest, HandleUserStatsRequest)
	reg.Register(packet.ClientUserPresenceRequest, HandleUserPresenceRequest)
	reg.Register(packet.ClientChangeAction, HandleChangeAction)
	reg.Register(packet.ClientReceiveUpdates, HandleReceiveUpdates)
	reg.Register(packet.ClientToggleBlockNonFriendDms, HandleToggleBlockNonFriendDms)
	reg.Register(packet.ClientLogout, HandleLogout)
	reg.Register(packet.ClientFriendAdd, HandleFriendAdd)
	reg.Register(packet.ClientFriendRemove, HandleFriendRemove)
	reg.Register(packet.ClientJoinLobby, HandleJoinLobby)
	reg.Register(packet.ClientPartLobby, HandlePartLobby)
	reg.Register(packet.ClientStartSpectating, HandleStartSpectating)
	reg.Register(packet.ClientStopSpectating, HandleStopSpectating)
	reg.Register(packet.ClientSpectateFrames, HandleSpectateFrames)
	reg.Register(packet.ClientCantSpectate, HandleCantSpectate)
}
