// Copyright 2025 Certen Protocol

package merkle

// RootOf computes the Merkle root over leaves exactly as Tree.build() does
// (SHA-256 pairwise hashing, odd leaf duplicated), without the bookkeeping a
// full Tree carries for proof generation. Callers that need a one-shot root
// — the knowledge graph's triplet commitment, a content-store chunk
// manifest — use this instead of standing up a Tree.
//
// An empty leaf set returns 32 zero bytes, matching the knowledge graph's
// documented empty-set root.
func RootOf(leaves [][]byte) [32]byte {
	var zero [32]byte
	if len(leaves) == 0 {
		return zero
	}

	current := make([][]byte, len(leaves))
	for i, l := range leaves {
		buf := make([]byte, 32)
		copy(buf, l)
		current[i] = buf
	}

	for len(current) > 1 {
		next := make([][]byte, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			if i+1 < len(current) {
				next = append(next, hashPair(current[i], current[i+1]))
			} else {
				next = append(next, hashPair(current[i], current[i]))
			}
		}
		current = next
	}

	var root [32]byte
	copy(root[:], current[0])
	return root
}
