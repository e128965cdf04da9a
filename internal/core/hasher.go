package core

import (
	"crypto/sha256"
	"encoding/binary"
)

const GenesisHashSeed = "BuildingDex:genesis:v1"

// StateHasher computes the deterministic state hash chain. Each block's
// hash covers the previous hash, the block height and a canonical digest of
// the full state, so two nodes that processed the same blocks agree on
// every hash, and a replay that diverges anywhere is caught immediately.
type StateHasher struct {
	prevHash [32]byte
}

// NewStateHasher initializes with the genesis hash.
func NewStateHasher() *StateHasher {
	genesis := sha256.Sum256([]byte(GenesisHashSeed))
	return &StateHasher{
		prevHash: genesis,
	}
}

// ComputeHash calculates state_hash[N] = SHA-256(prev_hash || height || state_digest)
func (h *StateHasher) ComputeHash(height uint64, stateDigest []byte) [32]byte {
	hasher := sha256.New()

	hasher.Write(h.prevHash[:])

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], height)
	hasher.Write(buf[:])

	hasher.Write(stateDigest)

	var hash [32]byte
	copy(hash[:], hasher.Sum(nil))

	h.prevHash = hash

	return hash
}

// GetPrevHash returns the current chain tip hash.
func (h *StateHasher) GetPrevHash() [32]byte {
	return h.prevHash
}

// Restore rewinds the chain to an earlier tip. Used when a block is
// detached.
func (h *StateHasher) Restore(prev [32]byte) {
	h.prevHash = prev
}
