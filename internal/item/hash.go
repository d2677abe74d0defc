package item

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows a future
// algorithm change without ambiguity between old and new values.
const (
	DomainFingerprint = "wishrank/fingerprint/v1"
)

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint folds the ordering-relevant state of a snapshot into one value.
//
// Each item contributes (id, key, updated_at); items are folded in total
// order, so the result changes when any item is added, removed, re-keyed or
// touched, and only then. Titles do not participate.
func Fingerprint(items []Item) (string, error) {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	Sort(sorted)

	entries := make([]any, len(sorted))
	for i, it := range sorted {
		entries[i] = map[string]any{
			"id":         it.ID,
			"key":        it.Key.String(),
			"updated_at": it.UpdatedAt.UnixMilli(),
		}
	}

	canonical, err := MarshalCanonical(entries)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainFingerprint, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(items []Item) string {
	fp, err := Fingerprint(items)
	if err != nil {
		panic(err)
	}
	return fp
}
