package bus

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestReceiveFromNilCursor(t *testing.T) {
	b := New()
	b.Publish([]byte{1}, 0)
	b.Publish([]byte{2}, 0)
	b.Publish([]byte{3}, 0)

	msgs, cursor := b.Receive(uuid.Nil, 0)
	if len(msgs) != 3 {
		t.Fatalf("received %d messages, want 3", len(msgs))
	}
	for i, m := range msgs {
		if m.Packet[0] != byte(i+1) {
			t.Fatalf("message %d = % x, out of publish order", i, m.Packet)
		}
	}
	if cursor != msgs[2].ID {
		t.Fatalf("cursor = %v, want %v", cursor, msgs[2].ID)
	}

	// The advanced cursor sees nothing until a new publication.
	if again, _ := b.Receive(cursor, 0); len(again) != 0 {
		t.Fatalf("re-receive returned %d messages, want 0", len(again))
	}
	b.Publish([]byte{4}, 0)
	more, _ := b.Receive(cursor, 0)
	if len(more) != 1 || more[0].Packet[0] != 4 {
		t.Fatalf("post-publish receive = %v", more)
	}
}

func TestReceiveLimit(t *testing.T) {
	b := New()
	for i := 0; i < 5; i++ {
		b.Publish([]byte{byte(i)}, 0)
	}
	msgs, cursor := b.Receive(uuid.Nil, 2)
	if len(msgs) != 2 {
		t.Fatalf("received %d messages, want 2", len(msgs))
	}
	rest, _ := b.Receive(cursor, 0)
	if len(rest) != 3 {
		t.Fatalf("remainder = %d messages, want 3", len(rest))
	}
}

func TestExpiredSkippedButCursorAdvances(t *testing.T) {
	b := New()
	b.Publish([]byte{1}, -time.Second) // already expired
	id2 := b.Publish([]byte{2}, 0)

	msgs, cursor := b.Receive(uuid.Nil, 0)
	if len(msgs) != 1 || msgs[0].Packet[0] != 2 {
		t.Fatalf("receive = %v, want only the live message", msgs)
	}
	if cursor != id2 {
		t.Fatalf("cursor = %v, want %v", cursor, id2)
	}
}

func TestRemoveBefore(t *testing.T) {
	b := New()
	b.Publish([]byte{1}, 0)
	mid := b.Publish([]byte{2}, 0)
	b.Publish([]byte{3}, 0)

	if n := b.RemoveBefore(mid); n != 2 {
		t.Fatalf("removed %d, want 2", n)
	}
	if b.Len() != 1 {
		t.Fatalf("len = %d, want 1", b.Len())
	}
	msgs, _ := b.Receive(uuid.Nil, 0)
	if len(msgs) != 1 || msgs[0].Packet[0] != 3 {
		t.Fatalf("surviving message = %v", msgs)
	}
}

func TestRemoveInvalid(t *testing.T) {
	b := New()
	b.Publish([]byte{1}, -time.Second)
	b.Publish([]byte{2}, 0)
	b.Publish([]byte{3}, -time.Second)

	if n := b.RemoveInvalid(); n != 2 {
		t.Fatalf("removed %d, want 2", n)
	}
	if b.Len() != 1 {
		t.Fatalf("len = %d, want 1", b.Len())
	}
}

func TestLatest(t *testing.T) {
	b := New()
	if b.Latest() != uuid.Nil {
		t.Fatalf("empty bus latest = %v, want nil", b.Latest())
	}
	b.Publish([]byte{1}, 0)
	last := b.Publish([]byte{2}, 0)
	if b.Latest() != last {
		t.Fatalf("latest = %v, want %v", b.Latest(), last)
	}
	// Starting a cursor at Latest skips the backlog.
	if msgs, _ := b.Receive(b.Latest(), 0); len(msgs) != 0 {
		t.Fatalf("receive from latest = %d messages, want 0", len(msgs))
	}
}

func TestSenderTag(t *testing.T) {
	b := New()
	b.PublishFrom([]byte{1}, 0, 1001)
	msgs, _ := b.Receive(uuid.Nil, 0)
	if len(msgs) != 1 || msgs[0].Sender != 1001 {
		t.Fatalf("sender tag = %v", msgs)
	}
}
