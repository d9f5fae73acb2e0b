package ids

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsValidAndUnique(t *testing.T) {
	a := New()
	b := New()
	require.True(t, Valid(a))
	require.True(t, Valid(b))
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 26)
}

func TestNewAtSortsByTime(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(5 * time.Second)

	ids := make([]string, 0, 20)
	for i := 0; i < 10; i++ {
		ids = append(ids, NewAt(t2))
	}
	for i := 0; i < 10; i++ {
		ids = append(ids, NewAt(t1))
	}

	for i := 10; i < 20; i++ {
		for j := 0; j < 10; j++ {
			assert.Less(t, ids[i], ids[j], "id timestamped earlier must sort first")
		}
	}
}

func TestValidRejectsMalformed(t *testing.T) {
	assert.False(t, Valid("too-short"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("llllllllllllllllllllllllll")) // 'l' not in alphabet
	assert.True(t, Valid(New()))
}

func TestTimestampRoundTrips(t *testing.T) {
	want := time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC)
	id := NewAt(want)
	got, ok := Timestamp(id)
	require.True(t, ok)
	assert.WithinDuration(t, want, got, time.Millisecond)
}

func TestTimestampRejectsMalformed(t *testing.T) {
	_, ok := Timestamp("not-an-id")
	assert.False(t, ok)
}
