package embedding

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/memcore/memcore/internal/memcoreerr"
)

// normalize scales vec to unit length. A zero vector (degenerate oracle
// output) is returned unchanged rather than dividing by zero.
func normalize(vec []float32) []float32 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sumSquares))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

// ToBlob packs a float32 vector as a little-endian byte slice, the storage
// representation spec requires (byte_length == 4 * dimensions). Unlike the
// teacher's embedding provider, which bit-casts float64s through
// unsafe.Pointer, this uses math.Float32bits — no unsafe, and the right
// width for the f32 vectors the oracle produces.
func ToBlob(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// FromBlob unpacks a blob produced by ToBlob back into a float32 vector.
func FromBlob(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("%w: embedding blob length %d is not a multiple of 4", memcoreerr.ErrInvalidInput, len(buf))
	}
	n := len(buf) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(buf[i*4:])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}

// CosineSimilarity computes cosine similarity between two equal-length
// vectors. Vectors produced by Embed are already unit-length, so this
// reduces to a dot product for them, but callers may pass arbitrary
// vectors (e.g. during tests), so the full normalized form is computed.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
