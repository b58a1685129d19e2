package upstream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFramesSplitsOnDelimiter(t *testing.T) {
	acc := []byte("one\ntwo\nthree")
	frames, rest, breach := extractFrames(acc)
	require.False(t, breach)
	require.Len(t, frames, 2)
	assert.Equal(t, "one", string(frames[0]))
	assert.Equal(t, "two", string(frames[1]))
	assert.Equal(t, "three", string(rest))
}

func TestExtractFramesHasNoPerReadCap(t *testing.T) {
	var acc []byte
	for i := 0; i < 200; i++ {
		acc = append(acc, []byte("x\n")...)
	}

	frames, rest, breach := extractFrames(acc)
	require.False(t, breach)
	assert.Len(t, frames, 200)
	assert.Empty(t, rest)
}

func TestExtractFramesDropsOversizeFrame(t *testing.T) {
	oversized := append(bytes.Repeat([]byte("a"), maxUpstreamFrameSize+1), '\n')
	acc := append(oversized, []byte("ok\n")...)

	frames, rest, breach := extractFrames(acc)
	require.False(t, breach)
	require.Len(t, frames, 1)
	assert.Equal(t, "ok", string(frames[0]))
	assert.Empty(t, rest)
}

func TestExtractFramesOversizeAccumulatorWithoutDelimiterBreaches(t *testing.T) {
	acc := bytes.Repeat([]byte("a"), maxUpstreamAccumulatorSize+1)
	frames, rest, breach := extractFrames(acc)
	assert.True(t, breach)
	assert.Empty(t, frames)
	assert.Nil(t, rest)
}

func TestExtractFramesReturnsCopiesIndependentOfSourceBuffer(t *testing.T) {
	acc := []byte("abc\n")
	frames, _, breach := extractFrames(acc)
	require.False(t, breach)
	require.Len(t, frames, 1)
	acc[0] = 'z'
	assert.Equal(t, "abc", string(frames[0]))
}
