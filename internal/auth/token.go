package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// TokenSigner produces and checks the signature half of a login token.
// Token wire form: "<session_id>.<signature>". The session id alone is
// guessable from presence traffic; the keyed signature is what makes the
// bearer string unforgeable.
type TokenSigner struct {
	key []byte
}

func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{key: []byte(secret)}
}

// Sign computes the signature over session id and user id.
func (t *TokenSigner) Sign(sessionID uuid.UUID, userID int32) string {
	mac := hmac.New(sha256.New, t.key)
	mac.Write(sessionID[:])
	var uid [4]byte
	binary.LittleEndian.PutUint32(uid[:], uint32(userID))
	mac.Write(uid[:])
	return hex.EncodeToString(mac.Sum(nil))
}

// Format assembles the bearer token.
func (t *TokenSigner) Format(sessionID uuid.UUID, userID int32) string {
	return sessionID.String() + "." + t.Sign(sessionID, userID)
}

// SplitToken parses a bearer token into session id and signature.
// ok is false for malformed input.
func SplitToken(token string) (sessionID uuid.UUID, sig string, ok bool) {
	head, sig, found := strings.Cut(token, ".")
	if !found || sig == "" {
		return uuid.Nil, "", false
	}
	id, err := uuid.Parse(head)
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, sig, true
}

// Matches checks sig against the expected signature in constant time.
func (t *TokenSigner) Matches(sessionID uuid.UUID, userID int32, sig string) bool {
	expected := t.Sign(sessionID, userID)
	return hmac.Equal([]byte(expected), []byte(sig))
}
