// Package determinism provides primitives for guaranteeing deterministic execution.
// Tariff tables and quotes are hashed and identified with these helpers so that
// the same data always produces the same identifiers.
package determinism

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// ContentHash is a SHA-256 hash for content integrity
type ContentHash [32]byte

// ComputeHash computes a content hash from bytes
func ComputeHash(data []byte) ContentHash {
	return sha256.Sum256(data)
}

// ParseContentHash decodes a hex string produced by Hex
func ParseContentHash(s string) (ContentHash, error) {
	var h ContentHash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid content hash: %w", err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("invalid content hash length %d", len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// Hex returns the hash as a hex string
func (h ContentHash) Hex() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 12 hex characters
func (h ContentHash) Short() string {
	return h.Hex()[:12]
}

// IsZero reports whether the hash was never set
func (h ContentHash) IsZero() bool {
	return h == ContentHash{}
}

// String implements Stringer
func (h ContentHash) String() string {
	return h.Hex()[:16] + "..."
}

// SortedKeys returns the keys of m in a stable order
func SortedKeys[K comparable, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
	})
	return keys
}
