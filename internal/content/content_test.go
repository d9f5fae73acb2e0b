package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memcore/memcore/internal/memcoreerr"
)

func TestStripPrivateRemovesBlocks(t *testing.T) {
	raw := "keep this\n<PRIVATE>secret stuff\nmore secret</PRIVATE>\n\n\n\nafter"
	got, err := StripPrivate(raw)
	require.NoError(t, err)
	assert.Equal(t, "keep this\n\nafter", got)
	assert.NotContains(t, got, "secret")
}

func TestStripPrivateEmptyResultIsInvalid(t *testing.T) {
	_, err := StripPrivate("<private>only secret content</private>")
	assert.ErrorIs(t, err, memcoreerr.ErrInvalidInput)
}

func TestStripPrivateMultipleBlocks(t *testing.T) {
	raw := "a <private>one</private> b <private>two</private> c"
	got, err := StripPrivate(raw)
	require.NoError(t, err)
	assert.Equal(t, "a  b  c", got)
}

func TestHashIsCaseAndWhitespaceInsensitive(t *testing.T) {
	a := Hash("Hello   World.")
	b := Hash("hello world")
	assert.Equal(t, a, b)
}

func TestHashIsDeterministic(t *testing.T) {
	a := Hash("some content here")
	b := Hash("some content here")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // hex-encoded sha256
}

func TestHashDiffersOnSubstance(t *testing.T) {
	assert.NotEqual(t, Hash("alpha"), Hash("beta"))
}

func TestChunkShortTextIsSingleChunk(t *testing.T) {
	chunks := Chunk("short text", 500)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestChunkLongTextSplitsAndReconstructs(t *testing.T) {
	para := strings.Repeat("This is a sentence about testing. ", 30)
	text := para + "\n\n" + para + "\n\n" + para
	chunks := Chunk(text, 500)
	require.GreaterOrEqual(t, len(chunks), 3)
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
	joined := strings.Join(chunks, " ")
	assert.Contains(t, joined, "sentence about testing")
}

func TestChunkHandlesOversizedSingleSentence(t *testing.T) {
	word := strings.Repeat("x", 2000)
	chunks := Chunk(word, 100)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.NotEmpty(t, c)
	}
}
