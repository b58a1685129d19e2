package transport

import "bytes"

// extractFrames pulls up to maxFramesPerRead complete \n-delimited frames out
// of acc. Returned frames are freshly allocated copies so the caller's
// accumulator slice can keep being reused across reads. rest is what's left
// in acc after extraction (always a suffix of the caller's own backing
// array, never a copy). breach reports a size-limit violation the caller
// must treat as fatal: either a single frame exceeded maxFrameSize, or the
// leftover accumulator — still waiting on a delimiter — exceeded
// maxAccumulatorSize.
func extractFrames(acc []byte) (frames [][]byte, rest []byte, breach bool) {
	for i := 0; i < maxFramesPerRead; i++ {
		idx := bytes.IndexByte(acc, '\n')
		if idx < 0 {
			break
		}
		frame := acc[:idx]
		acc = acc[idx+1:]
		if len(frame) > maxFrameSize {
			return frames, nil, true
		}
		frames = append(frames, append([]byte(nil), frame...))
	}
	if len(acc) > maxAccumulatorSize {
		return frames, nil, true
	}
	return frames, acc, false
}

// compactAccumulator copies acc into a right-sized buffer once its backing
// array has grown much larger than what's actually buffered, so one burst of
// traffic doesn't pin an oversized array for the rest of the connection's
// life.
func compactAccumulator(acc []byte) []byte {
	if cap(acc) < 4*1024 || cap(acc) <= len(acc)*4 {
		return acc
	}
	compacted := make([]byte, len(acc))
	copy(compacted, acc)
	return compacted
}
