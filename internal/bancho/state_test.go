package bancho

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gobancho/server/internal/config"
	"github.com/gobancho/server/internal/packet"
	"github.com/gobancho/server/internal/session"
)

func newTestState(t *testing.T, cfg *config.Config) *State {
	t.Helper()
	if cfg == nil {
		cfg = config.Defaults()
	}
	return NewState(cfg, nil, zap.NewNop())
}

func online(t *testing.T, st *State, userID int32, name string) *session.Session {
	t.Helper()
	s := session.New(userID, name, "", 64)
	s.Privileges.Store(session.PrivNormal)
	s.SetPresenceFilter(session.FilterAll)
	s.SetBusCursor(st.Notify.Latest())
	if displaced := st.Store.Create(s); displaced != nil {
		t.Fatalf("unexpected displacement for %d", userID)
	}
	return s
}

func kindsOf(t *testing.T, raw []byte) []packet.Kind {
	t.Helper()
	fr := packet.NewFrameReader(raw)
	var kinds []packet.Kind
	for {
		f, err := fr.Next()
		if err != nil {
			t.Fatalf("frame: %v", err)
		}
		if f == nil {
			return kinds
		}
		kinds = append(kinds, f.Kind)
	}
}

func TestDrainForOrdering(t *testing.T) {
	st := newTestState(t, nil)
	osu := st.Channels.Create("#osu", "general", session.PrivNormal, session.PrivNormal, true, false)
	alice := online(t, st, 1001, "alice")
	bob := online(t, st, 1002, "bob")
	osu.Join(alice)
	osu.Join(bob)

	// Channel traffic, then a broadcast, then targeted traffic: the drain
	// must come out queue first, bus second, channels last.
	osu.Broadcast(alice, "channel line")
	st.BroadcastAll(packet.Notification("broadcast line"))
	bob.Queue.Push(packet.Stats(alice.StatsPacket()))

	kinds := kindsOf(t, st.DrainFor(bob))
	want := []packet.Kind{
		packet.ServerUserStats,    // FIFO
		packet.ServerNotification, // bus
		packet.ServerSendMessage,  // channel
	}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}

	// Everything was consumed; a second drain is empty.
	if rest := st.DrainFor(bob); len(rest) != 0 {
		t.Fatalf("second drain = % x", rest)
	}
}

func TestDrainForSkipsOwnBusTraffic(t *testing.T) {
	st := newTestState(t, nil)
	alice := online(t, st, 1001, "alice")
	bob := online(t, st, 1002, "bob")

	st.Notify.PublishFrom(packet.Notification("from alice"), time.Minute, 1001)

	if got := st.DrainFor(alice); len(got) != 0 {
		t.Fatalf("alice drained her own publication: % x", got)
	}
	if got := st.DrainFor(bob); len(got) == 0 {
		t.Fatalf("bob missed the publication")
	}
}

func TestEnqueueTo(t *testing.T) {
	st := newTestState(t, nil)
	alice := online(t, st, 1001, "alice")

	err := st.EnqueueTo(session.QueryByUserID(1001), packet.Notification("hi"))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if kinds := kindsOf(t, alice.Queue.Drain()); len(kinds) != 1 || kinds[0] != packet.ServerNotification {
		t.Fatalf("kinds = %v", kinds)
	}

	if err := st.EnqueueTo(session.QueryByUserID(9999), packet.Notification("hi")); err != ErrSessionNotExists {
		t.Fatalf("err = %v, want ErrSessionNotExists", err)
	}
}

func TestLogoutCleansUp(t *testing.T) {
	st := newTestState(t, nil)
	osu := st.Channels.Create("#osu", "general", session.PrivNormal, session.PrivNormal, true, false)
	alice := online(t, st, 1001, "alice")
	bob := online(t, st, 1002, "bob")
	osu.Join(alice)
	osu.Join(bob)

	st.Logout(alice)

	if st.Store.Get(session.QueryByUserID(1001)) != nil {
		t.Fatalf("session still indexed")
	}
	if osu.Contains(1001) {
		t.Fatalf("channel membership survived logout")
	}
	if !containsKind(kindsOf(t, st.DrainFor(bob)), packet.ServerUserLogout) {
		t.Fatalf("bob missed the logout broadcast")
	}
}

func containsKind(kinds []packet.Kind, k packet.Kind) bool {
	for _, got := range kinds {
		if got == k {
			return true
		}
	}
	return false
}

func TestSweepReapsIdleSessions(t *testing.T) {
	cfg := config.Defaults()
	// Negative timeout: last-active only moves forward, so any session is
	// immediately "idle" without sleeping in the test.
	cfg.Session.Timeout = -2 * time.Second
	st := newTestState(t, cfg)
	alice := online(t, st, 1001, "alice")

	NewReaper(st).SweepOnce()

	if st.Store.Get(session.QueryByID(alice.ID)) != nil {
		t.Fatalf("idle session survived the sweep")
	}
	if st.Store.Len() != 0 {
		t.Fatalf("store len = %d, want 0", st.Store.Len())
	}
}

func TestSweepKeepsActiveSessions(t *testing.T) {
	st := newTestState(t, nil) // 180s timeout
	alice := online(t, st, 1001, "alice")
	alice.Touch()

	NewReaper(st).SweepOnce()

	if st.Store.Get(session.QueryByID(alice.ID)) == nil {
		t.Fatalf("active session reaped")
	}
}

func TestSweepBroadcastsReapedLogout(t *testing.T) {
	cfg := config.Defaults()
	cfg.Session.Timeout = -2 * time.Second
	st := newTestState(t, cfg)
	online(t, st, 1001, "idle")

	cursor := st.Notify.Latest()
	NewReaper(st).SweepOnce()

	msgs, _ := st.Notify.Receive(cursor, 0)
	if len(msgs) != 1 {
		t.Fatalf("bus received %d messages, want the reaped logout", len(msgs))
	}
	fr := packet.NewFrameReader(msgs[0].Packet)
	f, err := fr.Next()
	if err != nil || f == nil || f.Kind != packet.ServerUserLogout {
		t.Fatalf("broadcast frame = %+v, %v", f, err)
	}
	r := packet.NewReader(f.Payload)
	if id := r.ReadI32(); id != 1001 {
		t.Fatalf("logout user id = %d, want 1001", id)
	}
}

func TestLateJoinerSkipsStaleBroadcasts(t *testing.T) {
	cfg := config.Defaults()
	cfg.Session.Timeout = -2 * time.Second
	st := newTestState(t, cfg)
	online(t, st, 1001, "idle")
	NewReaper(st).SweepOnce()

	late := online(t, st, 1002, "late")
	if got := st.DrainFor(late); len(got) != 0 {
		t.Fatalf("late joiner drained stale traffic: % x", got)
	}
}

func TestSweepAdvancesBusWatermark(t *testing.T) {
	st := newTestState(t, nil)
	alice := online(t, st, 1001, "alice")
	bob := online(t, st, 1002, "bob")

	st.BroadcastAll(packet.Notification("one"))
	st.BroadcastAll(packet.Notification("two"))
	if st.Notify.Len() != 2 {
		t.Fatalf("bus len = %d, want 2", st.Notify.Len())
	}

	// Both sessions read everything; the sweep can reclaim it all.
	st.DrainFor(alice)
	st.DrainFor(bob)
	NewReaper(st).SweepOnce()
	if st.Notify.Len() != 0 {
		t.Fatalf("bus len after sweep = %d, want 0", st.Notify.Len())
	}
}
