package upstream

import "bytes"

// maxUpstreamFrameSize mirrors the game server's own 12096-byte read
// buffer: extractFrames drops a complete line longer than this without
// logging it.
const maxUpstreamFrameSize = 12096

// maxUpstreamAccumulatorSize bounds how much unterminated data this link
// will buffer waiting for a '\n' before giving up on the connection.
const maxUpstreamAccumulatorSize = 4 * maxUpstreamFrameSize

// extractFrames pulls every complete \n-delimited frame out of acc. Unlike
// transport's client-facing version this has no per-read frame cap — the
// upstream link is a single trusted connection, not one of many client
// sockets sharing a read-loop budget.
func extractFrames(acc []byte) (frames [][]byte, rest []byte, breach bool) {
	for {
		idx := bytes.IndexByte(acc, '\n')
		if idx < 0 {
			break
		}
		frame := acc[:idx]
		acc = acc[idx+1:]
		if len(frame) > maxUpstreamFrameSize {
			continue
		}
		frames = append(frames, append([]byte(nil), frame...))
	}
	if len(acc) > maxUpstreamAccumulatorSize {
		return frames, nil, true
	}
	return frames, acc, false
}
