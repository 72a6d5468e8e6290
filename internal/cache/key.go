package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"slices"
)

// Key identifies a cached analysis result.
type Key string

// EmptyKey is the key for a request without subtopics. Nothing is ever cached under it.
const EmptyKey Key = ""

// DeriveKey builds the key for (subtopics, location, timeRange).
//
// Subtopics are sorted first, so their order never changes the key. Location and
// timeRange are compared byte for byte: "US" and "us" are different keys, and so
// are strings that differ only in invalid UTF-8.
func DeriveKey(subtopics []string, location, timeRange string) Key {
	if len(subtopics) == 0 {
		return EmptyKey
	}

	sorted := slices.Clone(subtopics)
	slices.Sort(sorted)

	h := sha256.New()
	writeUint(h, uint64(len(sorted)))
	for _, s := range sorted {
		writeString(h, s)
	}
	writeString(h, location)
	writeString(h, timeRange)
	return Key(hex.EncodeToString(h.Sum(nil)))
}

// writeString writes s with a length prefix so adjacent parts cannot run together.
func writeString(h hash.Hash, s string) {
	writeUint(h, uint64(len(s)))
	h.Write([]byte(s))
}

func writeUint(h hash.Hash, n uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	h.Write(buf[:])
}
