// Package ids generates memory, entity, and goal identifiers. Every ID is a
// 26-character Crockford base32 string: a 48-bit millisecond timestamp
// prefix followed by an 80-bit segment taken from a random UUID, so IDs
// sort lexicographically in
// creation order while remaining globally unique across processes.
package ids

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const encoding = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// New returns a fresh sortable ID for the current instant.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns a sortable ID timestamped at t, used by tests that need
// deterministic ordering without sleeping between calls.
func NewAt(t time.Time) string {
	ms := uint64(t.UnixMilli())

	// The 10-byte (80-bit) segment ULID reserves for randomness is the
	// first 10 bytes of one v4 UUID; 6 of those bits are the UUID's fixed
	// version and variant bits.
	u := uuid.New()
	var rnd [10]byte
	copy(rnd[:], u[:10])

	var buf [16]byte
	buf[0] = byte(ms >> 40)
	buf[1] = byte(ms >> 32)
	buf[2] = byte(ms >> 24)
	buf[3] = byte(ms >> 16)
	buf[4] = byte(ms >> 8)
	buf[5] = byte(ms)
	copy(buf[6:], rnd[:])

	return encode(buf)
}

// encode base32-encodes the 128-bit buffer (48 timestamp bits + 80 random
// bits) into the 26-character Crockford alphabet, 5 bits at a time.
func encode(buf [16]byte) string {
	var sb strings.Builder
	sb.Grow(26)

	var bits uint64
	var bitCount uint
	bufIdx := 0

	for sb.Len() < 26 {
		for bitCount < 5 && bufIdx < len(buf) {
			bits = bits<<8 | uint64(buf[bufIdx])
			bitCount += 8
			bufIdx++
		}
		if bitCount < 5 {
			sb.WriteByte(encoding[(bits<<(5-bitCount))&0x1F])
			bitCount = 0
			continue
		}
		shift := bitCount - 5
		sb.WriteByte(encoding[(bits>>shift)&0x1F])
		bitCount -= 5
	}
	return sb.String()
}

// Valid reports whether s has the shape of an ID produced by New, without
// decoding it. Storage layers use this to reject malformed caller-supplied
// IDs before they ever reach a query.
func Valid(s string) bool {
	if len(s) != 26 {
		return false
	}
	for _, r := range s {
		if strings.IndexRune(encoding, r) < 0 {
			return false
		}
	}
	return true
}

// Timestamp extracts the creation instant encoded in the ID's first 48
// bits. Used by the backfill and timeline paths when an ID's embedded time
// is cheaper to read than the row's created_at column.
func Timestamp(id string) (time.Time, bool) {
	if !Valid(id) {
		return time.Time{}, false
	}
	var ms uint64
	for i := 0; i < 10; i++ { // 10 chars * 5 bits = 50 bits, top 48 used
		idx := strings.IndexRune(encoding, rune(id[i]))
		if idx < 0 {
			return time.Time{}, false
		}
		ms = ms<<5 | uint64(idx)
	}
	ms >>= 2 // drop the 2 low bits spilling past the 48-bit timestamp
	return time.UnixMilli(int64(ms)).UTC(), true
}
