package handler

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gobancho/server/internal/bancho"
	"github.com/gobancho/server/internal/packet"
)

func i32Payload(v int32) []byte {
	w := packet.NewWriter()
	w.WriteI32(v)
	return w.Bytes()
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

func containsKind(kinds []packet.Kind, k packet.Kind) bool {
	for _, got := range kinds {
		if got == k {
			return true
		}
	}
	return false
}

func TestStartStopSpectating(t *testing.T) {
	reg, deps := newTestRegistry(t)
	host := onlineSession(t, deps, 1001, "host")
	spec := onlineSession(t, deps, 1002, "watcher")

	if _, err := reg.Dispatch(spec, packet.ClientStartSpectating, i32Payload(1001)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if spec.Spectating.Load() != 1001 {
		t.Fatalf("spectating = %d, want 1001", spec.Spectating.Load())
	}
	if got := host.Spectators(); len(got) != 1 || got[0] != 1002 {
		t.Fatalf("host spectators = %v", got)
	}
	if !containsKind(kindsOf(t, host.Queue.Drain()), packet.ServerSpectatorJoined) {
		t.Fatalf("host missed spectator-joined")
	}
	// The on-demand spectator channel exists and both sides are members.
	c := deps.State.Channels.Get(bancho.SpectatorChannelName(1001))
	if c == nil || !c.Contains(1001) || !c.Contains(1002) {
		t.Fatalf("spectator channel membership incomplete")
	}

	if _, err := reg.Dispatch(spec, packet.ClientStopSpectating, nil); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if spec.Spectating.Load() != 0 || len(host.Spectators()) != 0 {
		t.Fatalf("detach incomplete")
	}
	if !containsKind(kindsOf(t, host.Queue.Drain()), packet.ServerSpectatorLeft) {
		t.Fatalf("host missed spectator-left")
	}
	// The empty auto-close channel is gone.
	if deps.State.Channels.Get(bancho.SpectatorChannelName(1001)) != nil {
		t.Fatalf("spectator channel survived the last leave")
	}
}

func TestSpectateSelf(t *testing.T) {
	reg, deps := newTestRegistry(t)
	alice := onlineSession(t, deps, 1001, "alice")
	if _, err := reg.Dispatch(alice, packet.ClientStartSpectating, i32Payload(1001)); !errors.Is(err, bancho.ErrInvalidArgument) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
}

func TestSpectateOfflineHost(t *testing.T) {
	reg, deps := newTestRegistry(t)
	alice := onlineSession(t, deps, 1001, "alice")
	if _, err := reg.Dispatch(alice, packet.ClientStartSpectating, i32Payload(9999)); !errors.Is(err, bancho.ErrSessionNotExists) {
		t.Fatalf("err = %v, want session-not-exists", err)
	}
}

func TestSwitchHosts(t *testing.T) {
	reg, deps := newTestRegistry(t)
	hostA := onlineSession(t, deps, 1001, "hosta")
	hostB := onlineSession(t, deps, 1002, "hostb")
	spec := onlineSession(t, deps, 1003, "watcher")

	reg.Dispatch(spec, packet.ClientStartSpectating, i32Payload(1001))
	if _, err := reg.Dispatch(spec, packet.ClientStartSpectating, i32Payload(1002)); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if spec.Spectating.Load() != 1002 {
		t.Fatalf("spectating = %d, want 1002", spec.Spectating.Load())
	}
	if len(hostA.Spectators()) != 0 {
		t.Fatalf("old host keeps the spectator")
	}
	if got := hostB.Spectators(); len(got) != 1 || got[0] != 1003 {
		t.Fatalf("new host spectators = %v", got)
	}
}

func TestSpectateFramesRelay(t *testing.T) {
	reg, deps := newTestRegistry(t)
	host := onlineSession(t, deps, 1001, "host")
	specA := onlineSession(t, deps, 1002, "a")
	specB := onlineSession(t, deps, 1003, "b")
	reg.Dispatch(specA, packet.ClientStartSpectating, i32Payload(1001))
	reg.Dispatch(specB, packet.ClientStartSpectating, i32Payload(1001))
	specA.Queue.Drain()
	specB.Queue.Drain()

	frames := []byte{0xde, 0xad, 0xbe, 0xef}
	if _, err := reg.Dispatch(host, packet.ClientSpectateFrames, frames); err != nil {
		t.Fatalf("frames: %v", err)
	}

	for _, spec := range []struct {
		name string
		raw  []byte
	}{
		{"a", specA.Queue.Drain()},
		{"b", specB.Queue.Drain()},
	} {
		fr := packet.NewFrameReader(spec.raw)
		f, err := fr.Next()
		if err != nil || f == nil || f.Kind != packet.ServerSpectateFrames {
			t.Fatalf("spectator %s frame = %+v, %v", spec.name, f, err)
		}
		if !bytes.Equal(f.Payload, frames) {
			t.Fatalf("spectator %s payload = % x", spec.name, f.Payload)
		}
	}
}

func TestCantSpectate(t *testing.T) {
	reg, deps := newTestRegistry(t)
	host := onlineSession(t, deps, 1001, "host")
	specA := onlineSession(t, deps, 1002, "a")
	specB := onlineSession(t, deps, 1003, "b")
	reg.Dispatch(specA, packet.ClientStartSpectating, i32Payload(1001))
	reg.Dispatch(specB, packet.ClientStartSpectating, i32Payload(1001))
	host.Queue.Drain()
	specA.Queue.Drain()
	specB.Queue.Drain()

	if _, err := reg.Dispatch(specA, packet.ClientCantSpectate, nil); err != nil {
		t.Fatalf("cant-spectate: %v", err)
	}
	if !containsKind(kindsOf(t, host.Queue.Drain()), packet.ServerSpectatorCantSpectate) {
		t.Fatalf("host missed cant-spectate")
	}
	if !containsKind(kindsOf(t, specB.Queue.Drain()), packet.ServerSpectatorCantSpectate) {
		t.Fatalf("fellow missed cant-spectate")
	}
	if kinds := kindsOf(t, specA.Queue.Drain()); containsKind(kinds, packet.ServerSpectatorCantSpectate) {
		t.Fatalf("reporter echoed their own cant-spectate")
	}
}

func TestLogoutOnDisconnectReleasesSpectators(t *testing.T) {
	reg, deps := newTestRegistry(t)
	host := onlineSession(t, deps, 1001, "host")
	spec := onlineSession(t, deps, 1002, "watcher")
	reg.Dispatch(spec, packet.ClientStartSpectating, i32Payload(1001))

	deps.State.Logout(host)
	if spec.Spectating.Load() != 0 {
		t.Fatalf("spectator still attached to a logged-out host")
	}
	if deps.State.Channels.Get(bancho.SpectatorChannelName(1001)) != nil {
		t.Fatalf("spectator channel survived the host logout")
	}
}
