package multiparty

import (
	"encoding/binary"
	"math/bits"

	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/zeebo/blake3"
)

// FindAutoIndex2n maps a signed slot shift k to the automorphism index
// realizing it on a power-of-two cyclotomic ring of order M, i.e. g^k mod M
// for the generator g = 5 of the order-M/4 subgroup of odd residues.
func FindAutoIndex2n(k int, M uint64) uint64 {
	return ring.ModExp(ring.GaloisGen, uint64(k)&(M-1), M)
}

// FindAutoIndex2nComplex maps a signed slot shift k to the automorphism index
// realizing it on the complex-packed slots of a CKKS-style scheme, where the
// M/4 slot positions come in conjugate pairs.
func FindAutoIndex2nComplex(k int, M uint64) uint64 {
	slots := int(M >> 2)
	k = ((k % slots) + slots) % slots
	return ring.ModExp(ring.GaloisGen, uint64(k), M)
}

// sumKeyIndices returns the automorphism indices g, g^2, g^4, ... (mod M)
// enabling a baby-step/giant-step inner sum over batchSize slots. A batch
// size of 1 requires no automorphism and yields an empty list.
func sumKeyIndices(batchSize int, M uint64) []uint64 {
	indices := make([]uint64, bits.Len(uint(batchSize-1)))
	g := ring.GaloisGen
	for j := range indices {
		indices[j] = g
		g = g * g % M
	}
	return indices
}

// childSeed derives the sampler seed of a single automorphism index from the
// builder's root seed, making the generated keys independent of the order in
// which the indices are processed.
func childSeed(root []byte, galEl uint64) []byte {
	h := blake3.New()
	h.Write(root)
	var el [8]byte
	binary.LittleEndian.PutUint64(el[:], galEl)
	h.Write(el[:])
	return h.Sum(nil)
}
