package id

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// DeriveOfferID derives a deterministic 32-char hex identifier from the
// offerer, their per-offerer nonce, and a digest of the offer parameters.
// The same triple always yields the same id, so a replayed submission can
// never mint a second offer under a fresh identifier.
func DeriveOfferID(offerer string, nonce uint64, paramsDigest []byte) string {
	h := sha256.New()
	h.Write([]byte(offerer))
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	h.Write(n[:])
	h.Write(paramsDigest)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
