package packet

import "fmt"

// Kind is the one-byte packet identifier of the bancho wire protocol.
type Kind uint8

// Client → server packet kinds. Values are fixed by client compatibility.
const (
	ClientChangeAction          Kind = 0
	ClientSendPublicMessage     Kind = 1
	ClientLogout                Kind = 2
	ClientRequestStatusUpdate   Kind = 3
	ClientPing                  Kind = 4
	ClientStartSpectating       Kind = 16
	ClientStopSpectating        Kind = 17
	ClientSpectateFrames        Kind = 18
	ClientErrorReport           Kind = 20
	ClientCantSpectate          Kind = 21
	ClientSendPrivateMessage    Kind = 25
	ClientPartLobby             Kind = 29
	ClientJoinLobby             Kind = 30
	ClientChannelJoin           Kind = 63
	ClientFriendAdd             Kind = 73
	ClientFriendRemove          Kind = 74
	ClientChannelPart           Kind = 78
	ClientReceiveUpdates        Kind = 79
	ClientSetAwayMessage        Kind = 82
	ClientUserStatsRequest      Kind = 85
	ClientUserPresenceRequest   Kind = 97
	ClientPresenceRequestAll    Kind = 99
	ClientToggleBlockNonFriendDms Kind = 100
)

// Server → client packet kinds.
const (
	ServerLoginReply          Kind = 5
	ServerSendMessage         Kind = 7
	ServerPong                Kind = 8
	ServerUserStats           Kind = 11
	ServerUserLogout          Kind = 12
	ServerSpectatorJoined     Kind = 13
	ServerSpectatorLeft       Kind = 14
	ServerSpectateFrames      Kind = 15
	ServerSpectatorCantSpectate Kind = 22
	ServerGetAttention        Kind = 23
	ServerNotification        Kind = 24
	ServerChannelJoinSuccess  Kind = 64
	ServerChannelInfo         Kind = 65
	ServerChannelKick         Kind = 66
	ServerChannelAutoJoin     Kind = 67
	ServerPrivileges          Kind = 71
	ServerFriendsList         Kind = 72
	ServerProtocolVersion     Kind = 75
	ServerMainMenuIcon        Kind = 76
	ServerFellowSpectatorJoined Kind = 42
	ServerFellowSpectatorLeft Kind = 43
	ServerUserPresence        Kind = 83
	ServerRestart             Kind = 86
	ServerChannelInfoEnd      Kind = 89
	ServerSilenceEnd          Kind = 92
	ServerUserSilenced        Kind = 94
	ServerUserDMBlocked       Kind = 100
	ServerTargetIsSilenced    Kind = 101
	ServerSwitchServer        Kind = 102
	ServerAccountRestricted   Kind = 103
)

// ProtocolVersion is the bancho protocol revision advertised in the
// cho-protocol header and the protocol-version packet.
const ProtocolVersion = 19

// Login reply codes carried by ServerLoginReply. Values > 0 are the
// logged-in user id.
const (
	LoginInvalidCredentials int32 = -1
	LoginOutdatedClient     int32 = -2
	LoginUserBanned         int32 = -3
	LoginServerError        int32 = -5
	LoginNeedSupporter      int32 = -6
	LoginPasswordReset      int32 = -7
	LoginNeedVerification   int32 = -8
)

var clientKindNames = map[Kind]string{
	ClientChangeAction:            "ChangeAction",
	ClientSendPublicMessage:       "SendPublicMessage",
	ClientLogout:                  "Logout",
	ClientRequestStatusUpdate:     "RequestStatusUpdate",
	ClientPing:                    "Ping",
	ClientStartSpectating:         "StartSpectating",
	ClientStopSpectating:          "StopSpectating",
	ClientSpectateFrames:          "SpectateFrames",
	ClientErrorReport:             "ErrorReport",
	ClientCantSpectate:            "CantSpectate",
	ClientSendPrivateMessage:      "SendPrivateMessage",
	ClientPartLobby:               "PartLobby",
	ClientJoinLobby:               "JoinLobby",
	ClientChannelJoin:             "ChannelJoin",
	ClientFriendAdd:               "FriendAdd",
	ClientFriendRemove:            "FriendRemove",
	ClientChannelPart:             "ChannelPart",
	ClientReceiveUpdates:          "ReceiveUpdates",
	ClientSetAwayMessage:          "SetAwayMessage",
	ClientUserStatsRequest:        "UserStatsRequest",
	ClientUserPresenceRequest:     "UserPresenceRequest",
	ClientPresenceRequestAll:      "PresenceRequestAll",
	ClientToggleBlockNonFriendDms: "ToggleBlockNonFriendDms",
}

// ClientKindName returns a readable name for an inbound kind, for logs.
func ClientKindName(k Kind) string {
	if n, ok := clientKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Unknown(%d)", uint8(k))
}
