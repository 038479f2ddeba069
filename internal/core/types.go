// internal/core/types.go
package core

// Fixed output geometry for every decoded stream. Workers rescale whatever the
// camera sends down to this format so the consumer never has to care about the
// source resolution.
const (
	FrameWidth         = 1280
	FrameHeight        = 720
	FrameBytesPerPixel = 3 // packed RGB24
	FrameBufSize       = FrameWidth * FrameHeight * FrameBytesPerPixel
)

// Frame is one decoded, rescaled video frame.
//
// Data is packed RGB24, FrameWidth x FrameHeight, row-major with no scanline
// padding. The producing worker fills it once before publishing; after that it
// is shared read-only (workers reuse scratch buffers, never a published Data
// slice).
type Frame struct {
	Data []byte

	// URL identifies the source camera. Camera URLs are unique, so the
	// consumer uses this tag to discard frames from non-selected streams.
	URL string
}
