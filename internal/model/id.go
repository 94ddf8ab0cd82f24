package model

import (
	"crypto/rand"
	"fmt"
)

// idAlphabet is lowercase alphanumeric, avoiding ambiguous characters is not
// a concern here since these IDs are never read aloud or hand-typed.
const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// IDLength is the fixed length of every user-facing entity ID in this
// system (users, library entries, ranking events).
const IDLength = 12

// NewID generates an opaque, URL-safe, fixed-length identifier. It is not
// a UUID: the system intentionally uses short tokens for entities that
// appear in client-visible JSON and URLs.
func NewID() string {
	buf := make([]byte, IDLength)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("model: read random bytes: %w", err))
	}
	out := make([]byte, IDLength)
	for i, b := range buf {
		out[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(out)
}
