package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/carelens/carelens/pkg/domain/types"
)

// Fingerprint is the content hash of a normalized stage-1 summary
type Fingerprint string

// QueryHash identifies an (owner, mode, query) submission before any model call
type QueryHash string

// NormalizeText trims, collapses internal whitespace runs to a single space and lowercases.
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// NewFingerprint hashes the normalized summary scoped by flow and mode.
// The scope keeps records whose payload shapes differ from ever sharing a fingerprint.
func NewFingerprint(kind types.SearchKind, mode types.MedicineMode, summary string) Fingerprint {
	return Fingerprint(digest(string(kind), string(mode), NormalizeText(summary)))
}

// NewQueryHash hashes the owner, mode and normalized query
func NewQueryHash(owner OwnerID, mode types.MedicineMode, query string) QueryHash {
	return QueryHash(digest(string(owner), string(mode), NormalizeText(query)))
}

func digest(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
