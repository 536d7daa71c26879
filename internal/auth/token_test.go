package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTokenFormatAndSplit(t *testing.T) {
	signer := NewTokenSigner("secret")
	id := uuid.Must(uuid.NewV7())

	token := signer.Format(id, 1001)
	gotID, sig, ok := SplitToken(token)
	if !ok {
		t.Fatalf("split rejected a freshly formatted token")
	}
	if gotID != id {
		t.Fatalf("session id = %v, want %v", gotID, id)
	}
	if !signer.Matches(id, 1001, sig) {
		t.Fatalf("signature does not verify")
	}
}

func TestTokenTamperDetection(t *testing.T) {
	signer := NewTokenSigner("secret")
	id := uuid.Must(uuid.NewV7())
	sig := signer.Sign(id, 1001)

	// Wrong user id behind the same session id.
	if signer.Matches(id, 1002, sig) {
		t.Fatalf("signature verified for a different user id")
	}
	// Flipped signature byte.
	bad := []byte(sig)
	bad[0] ^= 1
	if signer.Matches(id, 1001, string(bad)) {
		t.Fatalf("tampered signature verified")
	}
	// Different key.
	other := NewTokenSigner("other-secret")
	if other.Matches(id, 1001, sig) {
		t.Fatalf("signature verified under a different key")
	}
}

func TestSplitTokenMalformed(t *testing.T) {
	cases := []string{
		"",
		"no-dot",
		"not-a-uuid.deadbeef",
		uuid.Must(uuid.NewV7()).String(),       // no signature part
		uuid.Must(uuid.NewV7()).String() + ".", // empty signature
	}
	for _, tok := range cases {
		if _, _, ok := SplitToken(tok); ok {
			t.Fatalf("SplitToken(%q) accepted malformed input", tok)
		}
	}
}

func TestRetryCache(t *testing.T) {
	c := NewRetryCache(time.Minute)

	if c.Count("1.2.3.4") != 0 {
		t.Fatalf("fresh ip has a count")
	}
	if n := c.Fail("1.2.3.4"); n != 1 {
		t.Fatalf("first fail = %d, want 1", n)
	}
	if n := c.Fail("1.2.3.4"); n != 2 {
		t.Fatalf("second fail = %d, want 2", n)
	}
	if c.Count("1.2.3.4") != 2 {
		t.Fatalf("count = %d, want 2", c.Count("1.2.3.4"))
	}
	if c.Count("5.6.7.8") != 0 {
		t.Fatalf("counts must be per ip")
	}
	if d := c.Cooldown("1.2.3.4"); d <= 0 || d > time.Minute {
		t.Fatalf("cooldown = %v", d)
	}
}

func TestRetryCacheExpiry(t *testing.T) {
	c := NewRetryCache(-time.Second) // entries are born expired
	c.Fail("1.2.3.4")
	if c.Count("1.2.3.4") != 0 {
		t.Fatalf("expired entry still counted")
	}
	c.Fail("5.6.7.8")
	c.Prune()
	if c.Count("5.6.7.8") != 0 {
		t.Fatalf("prune left an expired entry")
	}
}
