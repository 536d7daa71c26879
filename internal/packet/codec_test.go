package packet

import (
	"bytes"
	"errors"
	"testing"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteU8(0xfe)
	w.WriteBool(true)
	w.WriteI16(-1234)
	w.WriteI32(-123456789)
	w.WriteU32(0xdeadbeef)
	w.WriteI64(-1234567890123)
	w.WriteU64(0xfeedfacecafebeef)
	w.WriteF32(0.985)
	w.WriteF64(-273.15)

	r := NewReader(w.Bytes())
	if got := r.ReadU8(); got != 0xfe {
		t.Fatalf("ReadU8 = %#x, want 0xfe", got)
	}
	if !r.ReadBool() {
		t.Fatalf("ReadBool = false, want true")
	}
	if got := r.ReadI16(); got != -1234 {
		t.Fatalf("ReadI16 = %d, want -1234", got)
	}
	if got := r.ReadI32(); got != -123456789 {
		t.Fatalf("ReadI32 = %d, want -123456789", got)
	}
	if got := r.ReadU32(); got != 0xdeadbeef {
		t.Fatalf("ReadU32 = %#x, want 0xdeadbeef", got)
	}
	if got := r.ReadI64(); got != -1234567890123 {
		t.Fatalf("ReadI64 = %d", got)
	}
	if got := r.ReadU64(); got != 0xfeedfacecafebeef {
		t.Fatalf("ReadU64 = %#x", got)
	}
	if got := r.ReadF32(); got != 0.985 {
		t.Fatalf("ReadF32 = %v, want 0.985", got)
	}
	if got := r.ReadF64(); got != -273.15 {
		t.Fatalf("ReadF64 = %v, want -273.15", got)
	}
	if err := r.Err(); err != nil {
		t.Fatalf("reader error: %v", err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("remaining = %d, want 0", r.Remaining())
	}
}

func TestStringRoundTrip(t *testing.T) {
	cases := []string{"", "a", "hello world", "日本語テスト", "#osu"}
	for _, s := range cases {
		w := NewWriter()
		w.WriteString(s)
		r := NewReader(w.Bytes())
		if got := r.ReadString(); got != s {
			t.Fatalf("round trip %q: got %q", s, got)
		}
		if err := r.Err(); err != nil {
			t.Fatalf("round trip %q: %v", s, err)
		}
	}
}

func TestEmptyStringTag(t *testing.T) {
	w := NewWriter()
	w.WriteString("")
	if got := w.Bytes(); len(got) != 1 || got[0] != 0x00 {
		t.Fatalf("empty string encoded as % x, want 00", got)
	}
}

func TestI32ListRoundTrip(t *testing.T) {
	in := []int32{1, -2, 30000, -400000}
	w := NewWriter()
	w.WriteI32List(in)
	r := NewReader(w.Bytes())
	got := r.ReadI32List()
	if len(got) != len(in) {
		t.Fatalf("list length = %d, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Fatalf("list[%d] = %d, want %d", i, got[i], in[i])
		}
	}
}

func TestPackHeader(t *testing.T) {
	pkt := Pack(ServerNotification, []byte{1, 2, 3})
	if len(pkt) != headerSize+3 {
		t.Fatalf("packet length = %d, want %d", len(pkt), headerSize+3)
	}
	if Kind(pkt[0]) != ServerNotification {
		t.Fatalf("kind byte = %d, want %d", pkt[0], ServerNotification)
	}
	if pkt[1] != 0 {
		t.Fatalf("reserved byte = %d, want 0", pkt[1])
	}
	if pkt[2] != 3 || pkt[3] != 0 || pkt[4] != 0 || pkt[5] != 0 {
		t.Fatalf("length field = % x, want 03 00 00 00", pkt[2:6])
	}
}

func TestFrameReaderSequence(t *testing.T) {
	body := Concat(
		Pack(ClientPing, nil),
		Pack(ClientChannelJoin, []byte{0x00}),
	)
	fr := NewFrameReader(body)

	f1, err := fr.Next()
	if err != nil || f1 == nil {
		t.Fatalf("first frame: %v, %v", f1, err)
	}
	if f1.Kind != ClientPing || len(f1.Payload) != 0 {
		t.Fatalf("first frame = %+v", f1)
	}

	f2, err := fr.Next()
	if err != nil || f2 == nil {
		t.Fatalf("second frame: %v, %v", f2, err)
	}
	if f2.Kind != ClientChannelJoin || len(f2.Payload) != 1 {
		t.Fatalf("second frame = %+v", f2)
	}

	f3, err := fr.Next()
	if err != nil || f3 != nil {
		t.Fatalf("expected exhausted reader, got %v, %v", f3, err)
	}
}

func TestFrameReaderTruncated(t *testing.T) {
	body := Pack(ClientPing, nil)
	body = append(body, 0x01, 0x00) // short trailing fragment
	fr := NewFrameReader(body)

	if f, err := fr.Next(); err != nil || f == nil {
		t.Fatalf("first frame: %v, %v", f, err)
	}
	if _, err := fr.Next(); !errors.Is(err, ErrTruncated) {
		t.Fatalf("trailing fragment error = %v, want ErrTruncated", err)
	}
}

func TestReaderStickyError(t *testing.T) {
	r := NewReader([]byte{0x01})
	_ = r.ReadI32()
	if !errors.Is(r.Err(), ErrTruncated) {
		t.Fatalf("short read error = %v, want ErrTruncated", r.Err())
	}
	// Subsequent reads stay at zero without panicking.
	if got := r.ReadString(); got != "" {
		t.Fatalf("read after error = %q, want empty", got)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	in := Message{Sender: "alice", SenderID: 1001, Body: "hi bob", Target: "#osu"}
	pkt := SendMessage(in)

	fr := NewFrameReader(pkt)
	f, err := fr.Next()
	if err != nil || f == nil {
		t.Fatalf("frame: %v, %v", f, err)
	}
	if f.Kind != ServerSendMessage {
		t.Fatalf("kind = %d, want %d", f.Kind, ServerSendMessage)
	}

	r := NewReader(f.Payload)
	got := Message{
		Sender:   r.ReadString(),
		SenderID: r.ReadI32(),
		Body:     r.ReadString(),
		Target:   r.ReadString(),
	}
	if err := r.Err(); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != in {
		t.Fatalf("round trip = %+v, want %+v", got, in)
	}
}

func TestChannelInfoRoundTrip(t *testing.T) {
	pkt := ChanInfo(ChannelInfo{Name: "#osu", Topic: "general", MemberCount: 42})
	fr := NewFrameReader(pkt)
	f, err := fr.Next()
	if err != nil || f == nil {
		t.Fatalf("frame: %v, %v", f, err)
	}
	if f.Kind != ServerChannelInfo {
		t.Fatalf("kind = %d, want %d", f.Kind, ServerChannelInfo)
	}
	r := NewReader(f.Payload)
	if name := r.ReadString(); name != "#osu" {
		t.Fatalf("name = %q", name)
	}
	if topic := r.ReadString(); topic != "general" {
		t.Fatalf("topic = %q", topic)
	}
	if n := r.ReadI16(); n != 42 {
		t.Fatalf("member count = %d", n)
	}
}

func TestStatsRoundTrip(t *testing.T) {
	in := UserStats{
		UserID:      1001,
		Action:      2,
		InfoText:    "playing",
		BeatmapMD5:  "0123456789abcdef",
		Mods:        64,
		Mode:        0,
		BeatmapID:   42,
		RankedScore: 123456789,
		Accuracy:    0.9876,
		Playcount:   1000,
		TotalScore:  987654321,
		GlobalRank:  17,
		PP:          321,
	}
	pkt := Stats(in)
	fr := NewFrameReader(pkt)
	f, err := fr.Next()
	if err != nil || f == nil {
		t.Fatalf("frame: %v, %v", f, err)
	}
	if f.Kind != ServerUserStats {
		t.Fatalf("kind = %d, want %d", f.Kind, ServerUserStats)
	}
	r := NewReader(f.Payload)
	var got UserStats
	got.UserID = r.ReadI32()
	got.Action = r.ReadU8()
	got.InfoText = r.ReadString()
	got.BeatmapMD5 = r.ReadString()
	got.Mods = r.ReadI32()
	got.Mode = r.ReadU8()
	got.BeatmapID = r.ReadI32()
	got.RankedScore = r.ReadI64()
	got.Accuracy = r.ReadF32()
	got.Playcount = r.ReadI32()
	got.TotalScore = r.ReadI64()
	got.GlobalRank = r.ReadI32()
	got.PP = r.ReadI16()
	if err := r.Err(); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != in {
		t.Fatalf("round trip = %+v, want %+v", got, in)
	}
}

func TestLogoutShape(t *testing.T) {
	pkt := Logout(1001)
	fr := NewFrameReader(pkt)
	f, err := fr.Next()
	if err != nil || f == nil {
		t.Fatalf("frame: %v, %v", f, err)
	}
	if f.Kind != ServerUserLogout {
		t.Fatalf("kind = %d, want %d", f.Kind, ServerUserLogout)
	}
	if !bytes.Equal(f.Payload, []byte{0xe9, 0x03, 0x00, 0x00, 0x00}) {
		t.Fatalf("payload = % x, want e9 03 00 00 00", f.Payload)
	}
}

func TestFriendsListRoundTrip(t *testing.T) {
	pkt := FriendsList([]int32{2, 3, 5})
	fr := NewFrameReader(pkt)
	f, err := fr.Next()
	if err != nil || f == nil {
		t.Fatalf("frame: %v, %v", f, err)
	}
	if f.Kind != ServerFriendsList {
		t.Fatalf("kind = %d, want %d", f.Kind, ServerFriendsList)
	}
	r := NewReader(f.Payload)
	got := r.ReadI32List()
	if len(got) != 3 || got[0] != 2 || got[1] != 3 || got[2] != 5 {
		t.Fatalf("friends = %v, want [2 3 5]", got)
	}
}
