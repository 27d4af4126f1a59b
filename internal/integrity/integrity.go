// Package integrity fingerprints search corpus documents. Content hashes let
// the indexer skip re-embedding unchanged documents; a Merkle root over a
// corpus gives a single digest to compare across reseeds.
// All functions are pure and deterministic.
package integrity

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"slices"
	"strings"
)

const hashPrefix = "v1:"

// ContentHash returns a versioned SHA-256 hex digest of the fields an
// embedding is computed from. Fields are length-prefixed so text containing
// separators cannot collide.
func ContentHash(title, content, source string) string {
	h := sha256.New()
	for _, s := range []string{title, content, source} {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s))) //nolint:gosec // documents are far below 4 GiB
		h.Write(lenBuf[:])
		h.Write([]byte(s))
	}
	return hashPrefix + hex.EncodeToString(h.Sum(nil))
}

// VerifyContentHash reports whether stored matches the hash of the fields.
// Hashes without a known version prefix never verify.
func VerifyContentHash(stored, title, content, source string) bool {
	if !strings.HasPrefix(stored, hashPrefix) {
		return false
	}
	return stored == ContentHash(title, content, source)
}

// CorpusDigest returns the Merkle root of a corpus's content hashes. Order of
// the input does not matter.
func CorpusDigest(hashes []string) string {
	leaves := slices.Clone(hashes)
	slices.Sort(leaves)
	return BuildMerkleRoot(leaves)
}

// hashPair produces SHA-256(0x01 || a || b) as a hex string.
// The 0x01 prefix separates internal nodes from leaves (RFC 6962).
func hashPair(a, b string) string {
	h := sha256.New()
	h.Write([]byte{0x01})
	h.Write([]byte(a))
	h.Write([]byte(b))
	return hex.EncodeToString(h.Sum(nil))
}

// BuildMerkleRoot constructs a Merkle tree from leaf hashes and returns the root.
// Leaves must be sorted by the caller for determinism.
// If leaves is empty, returns an empty string.
// If leaves has one element, the root is that element.
// Odd-length levels hash the last node with itself.
func BuildMerkleRoot(leaves []string) string {
	if len(leaves) == 0 {
		return ""
	}
	level := slices.Clone(leaves)
	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, hashPair(level[i], level[i+1]))
			} else {
				next = append(next, hashPair(level[i], level[i]))
			}
		}
		level = next
	}
	return level[0]
}
