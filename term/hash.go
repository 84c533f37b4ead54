package term

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// fingerprint computes a structural hash of a node's shape from its
// already-interned children's sequence numbers, used as the Store's
// intern-table bucket key. This is what makes intern() O(1) amortized:
// the recursive structural comparison only ever runs within the
// (almost always singleton) bucket that shares a fingerprint,
// never over the whole table.
func fingerprint(tag string, sortSeq uint64, childSeqs ...uint64) uint64 {
	h, err := blake2b.New(8, nil)
	if err != nil {
		// blake2b.New only fails for an invalid requested size or key;
		// both are compile-time constants here.
		panic(err)
	}
	_, _ = h.Write([]byte(tag))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], sortSeq)
	_, _ = h.Write(buf[:])
	for _, s := range childSeqs {
		binary.LittleEndian.PutUint64(buf[:], s)
		_, _ = h.Write(buf[:])
	}
	return binary.LittleEndian.Uint64(h.Sum(nil))
}

func hashString(s string) uint64 {
	return fnv64(s)
}

func mixHash(parts ...uint64) uint64 {
	var x uint64 = 0xcbf29ce484222325
	for _, p := range parts {
		x ^= p
		x *= 0x100000001b3
	}
	return x
}

func fnv64(s string) uint64 {
	var h uint64 = 0xcbf29ce484222325
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 0x100000001b3
	}
	return h
}
