// Package bloom implements the optional Bloom-filter sidecar written
// next to each SST (`<collection>.lsm/<id>.sst.bloom`). It is purely
// an optimization artifact: nothing in pkg/lsm's read path consults a
// sidecar to decide visibility, so it can never change query results.
// A future point-lookup path could use it to skip SSTs that
// definitely lack an id.
package bloom

import (
	"hash/fnv"
	"math"
)

// Filter is a probabilistic set-membership sidecar: false positives
// are possible, false negatives are not.
type Filter struct {
	bits      []bool
	size      int
	hashCount int
}

// New sizes a filter for expectedItems at the given false-positive
// rate using the standard m = -(n ln p) / (ln 2)^2, k = (m/n) ln 2
// formulas.
func New(expectedItems int, falsePositiveRate float64) *Filter {
	if expectedItems <= 0 {
		expectedItems = 1
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	size := int(math.Ceil(-float64(expectedItems) * math.Log(falsePositiveRate) / (math.Ln2 * math.Ln2)))
	hashCount := int(math.Ceil((float64(size) / float64(expectedItems)) * math.Ln2))

	if size < 1 {
		size = 1
	}
	if hashCount < 1 {
		hashCount = 1
	}
	if hashCount > 32 {
		hashCount = 32
	}

	return &Filter{bits: make([]bool, size), size: size, hashCount: hashCount}
}

// Add records key as present.
func (f *Filter) Add(key []byte) {
	for i := 0; i < f.hashCount; i++ {
		f.bits[f.hash(key, i)] = true
	}
}

// MayContain reports whether key might be present. false means it
// definitely is not.
func (f *Filter) MayContain(key []byte) bool {
	for i := 0; i < f.hashCount; i++ {
		if !f.bits[f.hash(key, i)] {
			return false
		}
	}
	return true
}

func (f *Filter) hash(key []byte, i int) int {
	h1 := fnv.New64a()
	h1.Write(key)
	hash1 := h1.Sum64()

	h2 := fnv.New64a()
	h2.Write(key)
	h2.Write([]byte{0xFF})
	hash2 := h2.Sum64()
	if hash2%2 == 0 {
		hash2++
	}

	return int((hash1 + uint64(i)*hash2) % uint64(f.size))
}

// MarshalBinary packs the filter's bitset 8-to-a-byte, preceded by its
// bit count and hash count so UnmarshalBinary can reconstruct it.
func (f *Filter) MarshalBinary() []byte {
	byteCount := (f.size + 7) / 8
	out := make([]byte, 9+byteCount)
	putUint32(out[0:4], uint32(f.size))
	putUint32(out[4:8], uint32(f.hashCount))
	out[8] = 0
	for i := 0; i < f.size; i++ {
		if f.bits[i] {
			out[9+i/8] |= 1 << (i % 8)
		}
	}
	return out
}

// UnmarshalBinary reconstructs a filter written by MarshalBinary.
func UnmarshalBinary(data []byte) (*Filter, error) {
	if len(data) < 9 {
		return nil, errShortSidecar
	}
	size := int(getUint32(data[0:4]))
	hashCount := int(getUint32(data[4:8]))
	bits := make([]bool, size)
	for i := 0; i < size && 9+i/8 < len(data); i++ {
		bits[i] = data[9+i/8]&(1<<(i%8)) != 0
	}
	return &Filter{bits: bits, size: size, hashCount: hashCount}, nil
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

type sidecarError string

func (e sidecarError) Error() string { return string(e) }

const errShortSidecar = sidecarError("bloom: sidecar too short to decode")
