package rpc

import (
	"time"

	"github.com/gobancho/server/internal/session"
)

// LoginArgs carries the parsed login request fields. The client IP travels
// as an explicit argument locally and as x-real-ip metadata remotely.
type LoginArgs struct {
	Username      string `json:"username"`
	PasswordMD5   string `json:"password_md5"`
	ClientVersion string `json:"client_version"`
	UTCOffset     int8   `json:"utc_offset"`
	DisplayCity   bool   `json:"display_city"`
	OnlyFriendDMs bool   `json:"only_friend_dms"`
}

// LoginSuccess is the success half of a login outcome.
type LoginSuccess struct {
	SessionID string `json:"session_id"`
	Signature string `json:"signature"`
	UserID    int32  `json:"user_id"`
	Packets   []byte `json:"packets"`
}

type ProcessPacketArgs struct {
	UserID  int32  `json:"user_id"`
	Kind    uint8  `json:"kind"`
	Payload []byte `json:"payload,omitempty"`
}

type BatchProcessArgs struct {
	UserID  int32  `json:"user_id"`
	Packets []byte `json:"packets"`
}

type CreateSessionArgs struct {
	UserID          int32  `json:"user_id"`
	Username        string `json:"username"`
	UsernameUnicode string `json:"username_unicode,omitempty"`
	Privileges      int32  `json:"privileges"`
	UTCOffset       int8   `json:"utc_offset"`
	DisplayCity     bool   `json:"display_city"`
	IP              string `json:"ip,omitempty"`
}

type CreateSessionReply struct {
	SessionID string `json:"session_id"`
	Signature string `json:"signature"`
}

// SessionView is the read-only snapshot returned by session lookups.
type SessionView struct {
	SessionID       string    `json:"session_id"`
	UserID          int32     `json:"user_id"`
	Username        string    `json:"username"`
	UsernameUnicode string    `json:"username_unicode,omitempty"`
	Privileges      int32     `json:"privileges"`
	IP              string    `json:"ip,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	LastActive      int64     `json:"last_active"`
}

func viewOf(s *session.Session) *SessionView {
	return &SessionView{
		SessionID:       s.ID.String(),
		UserID:          s.UserID,
		Username:        s.Username,
		UsernameUnicode: s.UsernameUnicode,
		Privileges:      s.Privileges.Load(),
		IP:              s.IP,
		CreatedAt:       s.CreatedAt,
		LastActive:      s.LastActive(),
	}
}

type EnqueueArgs struct {
	Target  session.Query `json:"target"`
	Packets [][]byte      `json:"packets"`
}

type BroadcastArgs struct {
	Packets [][]byte `json:"packets"`
}

type DequeueReply struct {
	Data []byte `json:"data"`
}

type BatchPresencesArgs struct {
	Queries []session.Query `json:"queries"`
	To      session.Query   `json:"to"`
}

type StatusUpdateArgs struct {
	Query      session.Query `json:"query"`
	Action     uint8         `json:"action"`
	InfoText   string        `json:"info_text,omitempty"`
	BeatmapMD5 string        `json:"beatmap_md5,omitempty"`
	Mods       int32         `json:"mods"`
	Mode       uint8         `json:"mode"`
	BeatmapID  int32         `json:"beatmap_id"`
}

type PresenceFilterArgs struct {
	Query  session.Query `json:"query"`
	Filter int32         `json:"filter"`
}

type TokenArgs struct {
	Token string `json:"token"`
}

type GeoLookupArgs struct {
	IP string `json:"ip"`
}

type PasswordVerifyArgs struct {
	Hash     string `json:"hash"`
	Password string `json:"password"`
}
