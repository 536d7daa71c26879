package packet

// UserStats is the payload of a ServerUserStats packet, in wire order.
type UserStats struct {
	UserID      int32
	Action      uint8
	InfoText    string
	BeatmapMD5  string
	Mods        int32
	Mode        uint8
	BeatmapID   int32
	RankedScore int64
	Accuracy    float32
	Playcount   int32
	TotalScore  int64
	GlobalRank  int32
	PP          int16
}

// UserPresence is the payload of a ServerUserPresence packet, in wire order.
type UserPresence struct {
	UserID      int32
	Username    string
	UTCOffset   int8
	CountryCode uint8
	BanchoPriv  uint8
	Longitude   float32
	Latitude    float32
	GlobalRank  int32
}

// Message is the payload of a ServerSendMessage packet, in wire order.
type Message struct {
	Sender   string
	SenderID int32
	Body     string
	Target   string
}

// ChannelInfo is the payload of channel-info / channel-auto-join packets.
type ChannelInfo struct {
	Name        string
	Topic       string
	MemberCount int16
}

// LoginReply builds a login-reply packet. Positive codes are user ids;
// negative codes are the Login* constants.
func LoginReply(code int32) []byte {
	w := NewWriter()
	w.WriteI32(code)
	return Pack(ServerLoginReply, w.Bytes())
}

// Notification builds a client toast notification.
func Notification(text string) []byte {
	w := NewWriter()
	w.WriteString(text)
	return Pack(ServerNotification, w.Bytes())
}

// ProtoVersion builds a protocol-version packet.
func ProtoVersion(v int32) []byte {
	w := NewWriter()
	w.WriteI32(v)
	return Pack(ServerProtocolVersion, w.Bytes())
}

// BanchoPrivileges builds a bancho-privileges packet.
func BanchoPrivileges(priv int32) []byte {
	w := NewWriter()
	w.WriteI32(priv)
	return Pack(ServerPrivileges, w.Bytes())
}

// SilenceEnd builds a silence-end packet (seconds remaining).
func SilenceEnd(secs int32) []byte {
	w := NewWriter()
	w.WriteI32(secs)
	return Pack(ServerSilenceEnd, w.Bytes())
}

// FriendsList builds a friends-list packet.
func FriendsList(ids []int32) []byte {
	w := NewWriter()
	w.WriteI32List(ids)
	return Pack(ServerFriendsList, w.Bytes())
}

// MainMenuIcon builds a main-menu-icon packet from "image_url|click_url".
func MainMenuIcon(icon string) []byte {
	w := NewWriter()
	w.WriteString(icon)
	return Pack(ServerMainMenuIcon, w.Bytes())
}

// Pong builds an empty pong packet.
func Pong() []byte {
	return Pack(ServerPong, nil)
}

func channelInfoPayload(ci ChannelInfo) []byte {
	w := NewWriter()
	w.WriteString(ci.Name)
	w.WriteString(ci.Topic)
	w.WriteI16(ci.MemberCount)
	return w.Bytes()
}

// ChanInfo builds a channel-info packet.
func ChanInfo(ci ChannelInfo) []byte {
	return Pack(ServerChannelInfo, channelInfoPayload(ci))
}

// ChanAutoJoin builds a channel-auto-join packet (same payload as info).
func ChanAutoJoin(ci ChannelInfo) []byte {
	return Pack(ServerChannelAutoJoin, channelInfoPayload(ci))
}

// ChanJoinSuccess builds a channel-join packet.
func ChanJoinSuccess(name string) []byte {
	w := NewWriter()
	w.WriteString(name)
	return Pack(ServerChannelJoinSuccess, w.Bytes())
}

// ChanKick builds a channel-kick packet.
func ChanKick(name string) []byte {
	w := NewWriter()
	w.WriteString(name)
	return Pack(ServerChannelKick, w.Bytes())
}

// ChanInfoEnd builds an empty channel-info-end packet.
func ChanInfoEnd() []byte {
	return Pack(ServerChannelInfoEnd, nil)
}

// SendMessage builds a chat message packet.
func SendMessage(m Message) []byte {
	w := NewWriter()
	w.WriteString(m.Sender)
	w.WriteI32(m.SenderID)
	w.WriteString(m.Body)
	w.WriteString(m.Target)
	return Pack(ServerSendMessage, w.Bytes())
}

// UserDMBlocked tells a sender their private message was blocked.
func UserDMBlocked(target string) []byte {
	return Pack(ServerUserDMBlocked, NewWriter().bytesOfMessage(Message{Target: target}))
}

// TargetSilenced tells a sender their private message target is silenced.
func TargetSilenced(target string) []byte {
	return Pack(ServerTargetIsSilenced, NewWriter().bytesOfMessage(Message{Target: target}))
}

func (w *Writer) bytesOfMessage(m Message) []byte {
	w.WriteString(m.Sender)
	w.WriteI32(m.SenderID)
	w.WriteString(m.Body)
	w.WriteString(m.Target)
	return w.Bytes()
}

// Stats builds a user-stats packet.
func Stats(s UserStats) []byte {
	w := NewWriter()
	w.WriteI32(s.UserID)
	w.WriteU8(s.Action)
	w.WriteString(s.InfoText)
	w.WriteString(s.BeatmapMD5)
	w.WriteI32(s.Mods)
	w.WriteU8(s.Mode)
	w.WriteI32(s.BeatmapID)
	w.WriteI64(s.RankedScore)
	w.WriteF32(s.Accuracy)
	w.WriteI32(s.Playcount)
	w.WriteI64(s.TotalScore)
	w.WriteI32(s.GlobalRank)
	w.WriteI16(s.PP)
	return Pack(ServerUserStats, w.Bytes())
}

// Presence builds a user-presence packet.
func Presence(p UserPresence) []byte {
	w := NewWriter()
	w.WriteI32(p.UserID)
	w.WriteString(p.Username)
	w.WriteU8(uint8(p.UTCOffset + 24))
	w.WriteU8(p.CountryCode)
	w.WriteU8(p.BanchoPriv)
	w.WriteF32(p.Longitude)
	w.WriteF32(p.Latitude)
	w.WriteI32(p.GlobalRank)
	return Pack(ServerUserPresence, w.Bytes())
}

// Logout builds a user-logout packet.
func Logout(userID int32) []byte {
	w := NewWriter()
	w.WriteI32(userID)
	w.WriteU8(0)
	return Pack(ServerUserLogout, w.Bytes())
}

// SpectatorJoined notifies a host that a user started spectating them.
func SpectatorJoined(userID int32) []byte {
	w := NewWriter()
	w.WriteI32(userID)
	return Pack(ServerSpectatorJoined, w.Bytes())
}

// SpectatorLeft notifies a host that a spectator left.
func SpectatorLeft(userID int32) []byte {
	w := NewWriter()
	w.WriteI32(userID)
	return Pack(ServerSpectatorLeft, w.Bytes())
}

// FellowSpectatorJoined notifies co-spectators of a new arrival.
func FellowSpectatorJoined(userID int32) []byte {
	w := NewWriter()
	w.WriteI32(userID)
	return Pack(ServerFellowSpectatorJoined, w.Bytes())
}

// FellowSpectatorLeft notifies co-spectators of a departure.
func FellowSpectatorLeft(userID int32) []byte {
	w := NewWriter()
	w.WriteI32(userID)
	return Pack(ServerFellowSpectatorLeft, w.Bytes())
}

// SpectateFramesOut relays a raw replay-frame bundle to spectators.
func SpectateFramesOut(frames []byte) []byte {
	return Pack(ServerSpectateFrames, frames)
}

// CantSpectate notifies a host that a spectator lacks the beatmap.
func CantSpectate(userID int32) []byte {
	w := NewWriter()
	w.WriteI32(userID)
	return Pack(ServerSpectatorCantSpectate, w.Bytes())
}

// Restart asks clients to reconnect after the given delay.
func Restart(delayMS int32) []byte {
	w := NewWriter()
	w.WriteI32(delayMS)
	return Pack(ServerRestart, w.Bytes())
}
