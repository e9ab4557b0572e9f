package helper

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Hasher produces the stored password digest: unsalted SHA-256, hex encoded.
// The format matches the digests already persisted for existing accounts, so
// changing it would lock every user out.
type Hasher struct{}

func (Hasher) Hash(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func (h Hasher) Verify(plain, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(h.Hash(plain)), []byte(digest)) == 1
}
