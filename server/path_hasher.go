package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// PathHasher derives deterministic, salted digests for audited paths, so
// the audit trail stays useful for correlation without keeping user paths
// in the clear.
type PathHasher struct {
	salt []byte
}

// NewPathHasher constructs a hasher with the provided salt bytes.
func NewPathHasher(salt []byte) PathHasher {
	return PathHasher{salt: append([]byte(nil), salt...)}
}

// HashString hashes the given path using HMAC-SHA256 and returns a base64 string.
func (h PathHasher) HashString(path string) string {
	mac := hmac.New(sha256.New, h.salt)
	mac.Write([]byte(path))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
