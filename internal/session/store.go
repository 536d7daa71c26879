package session

import (
	"bytes"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Query selects a session by exactly one key. The first set field wins,
// checked in the order: SessionID, UserID, Username, UsernameUnicode.
type Query struct {
	SessionID       uuid.UUID `json:"session_id,omitempty"`
	UserID          int32     `json:"user_id,omitempty"`
	Username        string    `json:"username,omitempty"`
	UsernameUnicode string    `json:"username_unicode,omitempty"`
}

// QueryByID builds a session-id query.
func QueryByID(id uuid.UUID) Query { return Query{SessionID: id} }

// QueryByUserID builds a user-id query.
func QueryByUserID(id int32) Query { return Query{UserID: id} }

// QueryByName builds a username query.
func QueryByName(name string) Query { return Query{Username: name} }

// Store is the four-index registry of live sessions. All indices point at
// the same records; structural changes hold the write lock, field reads on
// an obtained record never need it.
type Store struct {
	mu            sync.RWMutex
	bySessionID   map[uuid.UUID]*Session
	byUserID      map[int32]*Session
	byName        map[string]*Session
	byNameUnicode map[string]*Session
}

func NewStore() *Store {
	return &Store{
		bySessionID:   make(map[uuid.UUID]*Session),
		byUserID:      make(map[int32]*Session),
		byName:        make(map[string]*Session),
		byNameUnicode: make(map[string]*Session),
	}
}

// Create inserts a session into all indices. If a session for the same
// user id already exists it is removed first and returned so the caller
// can run logout side effects. At most one session per user.
func (st *Store) Create(s *Session) (displaced *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if old, ok := st.byUserID[s.UserID]; ok {
		st.removeLocked(old)
		displaced = old
	}
	st.bySessionID[s.ID] = s
	st.byUserID[s.UserID] = s
	st.byName[SafeName(s.Username)] = s
	if s.UsernameUnicode != "" {
		st.byNameUnicode[SafeName(s.UsernameUnicode)] = s
	}
	return displaced
}

// Get returns the session matching the query, or nil.
func (st *Store) Get(q Query) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.getLocked(q)
}

func (st *Store) getLocked(q Query) *Session {
	switch {
	case q.SessionID != uuid.Nil:
		return st.bySessionID[q.SessionID]
	case q.UserID != 0:
		return st.byUserID[q.UserID]
	case q.Username != "":
		return st.byName[SafeName(q.Username)]
	case q.UsernameUnicode != "":
		return st.byNameUnicode[SafeName(q.UsernameUnicode)]
	}
	return nil
}

// Exists reports whether a session matches the query.
func (st *Store) Exists(q Query) bool { return st.Get(q) != nil }

// Delete removes the matching session from all indices and returns it,
// or nil on a miss.
func (st *Store) Delete(q Query) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.getLocked(q)
	if s == nil {
		return nil
	}
	st.removeLocked(s)
	return s
}

// removeLocked drops s from every index. Caller must hold the write lock.
func (st *Store) removeLocked(s *Session) {
	delete(st.bySessionID, s.ID)
	delete(st.byUserID, s.UserID)
	delete(st.byName, SafeName(s.Username))
	if s.UsernameUnicode != "" {
		delete(st.byNameUnicode, SafeName(s.UsernameUnicode))
	}
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.bySessionID)
}

// Snapshot returns the live sessions ordered by session id. Session ids
// are time-ordered, so iteration order is stable login order.
func (st *Store) Snapshot() []*Session {
	st.mu.RLock()
	out := make([]*Session, 0, len(st.bySessionID))
	for _, s := range st.bySessionID {
		out = append(out, s)
	}
	st.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out
}

// MinBusCursor returns the smallest broadcast-bus cursor across all live
// sessions, and false when the store is empty. Feeds the bus GC watermark.
func (st *Store) MinBusCursor() (uuid.UUID, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	var min uuid.UUID
	found := false
	for _, s := range st.bySessionID {
		c := s.BusCursor()
		if !found || bytes.Compare(c[:], min[:]) < 0 {
			min = c
			found = true
		}
	}
	return min, found
}
