package session

import (
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/gobancho/server/internal/geo"
	"github.com/gobancho/server/internal/packet"
)

// PresenceFilter selects which senders' presence traffic a session receives.
// Values match the client's receive-updates packet.
type PresenceFilter int32

const (
	FilterNone    PresenceFilter = 0
	FilterAll     PresenceFilter = 1
	FilterFriends PresenceFilter = 2
)

// Bancho action kinds reported by the client in change-action.
const (
	ActionIdle      uint8 = 0
	ActionAfk       uint8 = 1
	ActionPlaying   uint8 = 2
	ActionEditing   uint8 = 3
	ActionModding   uint8 = 4
	ActionMultiplayer uint8 = 5
	ActionWatching  uint8 = 6
	ActionTesting   uint8 = 8
	ActionSubmitting uint8 = 9
	ActionPaused    uint8 = 10
	ActionLobby     uint8 = 11
	ActionMultiplaying uint8 = 12
	ActionOsuDirect uint8 = 13
)

// Status is the client-reported activity bundle, swapped atomically as one
// unit so readers never observe a half-updated action/beatmap pair.
type Status struct {
	Action     uint8
	InfoText   string
	BeatmapMD5 string
	BeatmapID  int32
	Mods       int32
	Mode       uint8
}

// Session is the server-side record of one logged-in user. Identity fields
// are immutable after creation; mutable scalars are atomics so any holder
// of the pointer may read them without the store lock.
type Session struct {
	ID              uuid.UUID
	UserID          int32
	Username        string
	UsernameUnicode string // empty when the user has no unicode name

	ClientVersion string
	UTCOffset     int8
	DisplayCity   bool
	IP            string

	Privileges    atomic.Int32
	OnlyFriendDMs atomic.Bool

	geoRecord atomic.Pointer[geo.Record]
	status    atomic.Pointer[Status]

	RankedScore atomic.Int64
	TotalScore  atomic.Int64
	Playcount   atomic.Int32
	GlobalRank  atomic.Int32
	PP          atomic.Int32
	accuracy    atomic.Uint32 // float32 bits

	presenceFilter atomic.Int32

	mu         sync.RWMutex
	friends    map[int32]struct{}
	channels   map[string]struct{}
	spectators map[int32]struct{}

	Spectating atomic.Int32 // user id of the spectated host, 0 = none

	Queue     *Queue
	busCursor atomic.Pointer[uuid.UUID]

	CreatedAt  time.Time
	lastActive atomic.Int64 // unix seconds, monotone non-decreasing
}

// New creates a session with a fresh time-ordered id and an empty queue.
func New(userID int32, username, usernameUnicode string, queueCap int) *Session {
	s := &Session{
		ID:              uuid.Must(uuid.NewV7()),
		UserID:          userID,
		Username:        username,
		UsernameUnicode: usernameUnicode,
		friends:         make(map[int32]struct{}),
		channels:        make(map[string]struct{}),
		spectators:      make(map[int32]struct{}),
		Queue:           NewQueue(queueCap),
		CreatedAt:       time.Now(),
	}
	s.status.Store(&Status{})
	s.busCursor.Store(&uuid.UUID{})
	s.Touch()
	return s
}

// Touch advances last-active to now. Never moves backwards.
func (s *Session) Touch() {
	now := time.Now().Unix()
	for {
		prev := s.lastActive.Load()
		if prev >= now || s.lastActive.CompareAndSwap(prev, now) {
			return
		}
	}
}

// LastActive returns the last-active unix timestamp.
func (s *Session) LastActive() int64 { return s.lastActive.Load() }

// Status returns the current activity bundle.
func (s *Session) Status() *Status { return s.status.Load() }

// SetStatus swaps the activity bundle.
func (s *Session) SetStatus(st *Status) { s.status.Store(st) }

// Geo returns the geo record, or nil when lookup failed at login.
func (s *Session) Geo() *geo.Record { return s.geoRecord.Load() }

// SetGeo stores the geo record.
func (s *Session) SetGeo(r *geo.Record) { s.geoRecord.Store(r) }

// Accuracy returns the accuracy as a fraction (0..1).
func (s *Session) Accuracy() float32 {
	return math.Float32frombits(s.accuracy.Load())
}

// SetAccuracy stores the accuracy fraction.
func (s *Session) SetAccuracy(v float32) {
	s.accuracy.Store(math.Float32bits(v))
}

// PresenceFilter returns the session's presence filter.
func (s *Session) PresenceFilter() PresenceFilter {
	return PresenceFilter(s.presenceFilter.Load())
}

// SetPresenceFilter stores the presence filter.
func (s *Session) SetPresenceFilter(f PresenceFilter) {
	s.presenceFilter.Store(int32(f))
}

// BusCursor returns the broadcast-bus read cursor.
func (s *Session) BusCursor() uuid.UUID { return *s.busCursor.Load() }

// SetBusCursor stores the broadcast-bus read cursor.
func (s *Session) SetBusCursor(c uuid.UUID) { s.busCursor.Store(&c) }

// SetFriends replaces the friends set.
func (s *Session) SetFriends(ids []int32) {
	m := make(map[int32]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	s.mu.Lock()
	s.friends = m
	s.mu.Unlock()
}

// AddFriend inserts one friend id.
func (s *Session) AddFriend(id int32) {
	s.mu.Lock()
	s.friends[id] = struct{}{}
	s.mu.Unlock()
}

// RemoveFriend removes one friend id.
func (s *Session) RemoveFriend(id int32) {
	s.mu.Lock()
	delete(s.friends, id)
	s.mu.Unlock()
}

// IsFriend reports whether id is in the friends set.
func (s *Session) IsFriend(id int32) bool {
	s.mu.RLock()
	_, ok := s.friends[id]
	s.mu.RUnlock()
	return ok
}

// Friends returns a snapshot of the friends set.
func (s *Session) Friends() []int32 {
	s.mu.RLock()
	out := make([]int32, 0, len(s.friends))
	for id := range s.friends {
		out = append(out, id)
	}
	s.mu.RUnlock()
	return out
}

// JoinChannel records a joined channel name. The channel's member set is
// authoritative; this is the cached back-index.
func (s *Session) JoinChannel(name string) {
	s.mu.Lock()
	s.channels[name] = struct{}{}
	s.mu.Unlock()
}

// LeaveChannel removes a joined channel name.
func (s *Session) LeaveChannel(name string) {
	s.mu.Lock()
	delete(s.channels, name)
	s.mu.Unlock()
}

// InChannel reports whether the session has joined the named channel.
func (s *Session) InChannel(name string) bool {
	s.mu.RLock()
	_, ok := s.channels[name]
	s.mu.RUnlock()
	return ok
}

// Channels returns a snapshot of joined channel names.
func (s *Session) Channels() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.channels))
	for name := range s.channels {
		out = append(out, name)
	}
	s.mu.RUnlock()
	return out
}

// AddSpectator records a user spectating this session.
func (s *Session) AddSpectator(id int32) {
	s.mu.Lock()
	s.spectators[id] = struct{}{}
	s.mu.Unlock()
}

// RemoveSpectator removes a spectator; reports whether the set is now empty.
func (s *Session) RemoveSpectator(id int32) bool {
	s.mu.Lock()
	delete(s.spectators, id)
	empty := len(s.spectators) == 0
	s.mu.Unlock()
	return empty
}

// Spectators returns a snapshot of spectator user ids.
func (s *Session) Spectators() []int32 {
	s.mu.RLock()
	out := make([]int32, 0, len(s.spectators))
	for id := range s.spectators {
		out = append(out, id)
	}
	s.mu.RUnlock()
	return out
}

// StatsPacket assembles the user-stats view of this session.
func (s *Session) StatsPacket() packet.UserStats {
	st := s.Status()
	return packet.UserStats{
		UserID:      s.UserID,
		Action:      st.Action,
		InfoText:    st.InfoText,
		BeatmapMD5:  st.BeatmapMD5,
		Mods:        st.Mods,
		Mode:        st.Mode,
		BeatmapID:   st.BeatmapID,
		RankedScore: s.RankedScore.Load(),
		Accuracy:    s.Accuracy(),
		Playcount:   s.Playcount.Load(),
		TotalScore:  s.TotalScore.Load(),
		GlobalRank:  s.GlobalRank.Load(),
		PP:          int16(s.PP.Load()),
	}
}

// PresencePacket assembles the user-presence view of this session.
func (s *Session) PresencePacket() packet.UserPresence {
	p := packet.UserPresence{
		UserID:     s.UserID,
		Username:   s.Username,
		UTCOffset:  s.UTCOffset,
		BanchoPriv: uint8(s.Privileges.Load()&0xff) | s.Status().Mode<<5,
		GlobalRank: s.GlobalRank.Load(),
	}
	if g := s.Geo(); g != nil {
		p.CountryCode = g.CountryCode
		if s.DisplayCity {
			p.Longitude = g.Longitude
			p.Latitude = g.Latitude
		}
	}
	return p
}

// SafeName canonicalizes a username for index lookups: NFKC-normalized,
// lowercased, spaces folded to underscores.
func SafeName(name string) string {
	n := norm.NFKC.String(name)
	n = strings.ToLower(strings.TrimSpace(n))
	return strings.ReplaceAll(n, " ", "_")
}
