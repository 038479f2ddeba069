// internal/decode/scaler.go
package decode

import (
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/vbaud/cctv-kiosk/internal/core"
)

// scaler converts decoded frames of whatever source geometry into the fixed
// packed RGB24 output format. The swscale context, the destination frame and
// the packed buffer are all allocated once per connection and reused, so the
// per-frame cost is one scale pass plus one stride-aware copy.
type scaler struct {
	ssc    *astiav.SoftwareScaleContext
	dst    *astiav.Frame
	packed []byte

	srcW, srcH int
	srcPix     astiav.PixelFormat
}

func (s *scaler) close() {
	if s.dst != nil {
		s.dst.Free()
		s.dst = nil
	}
	if s.ssc != nil {
		s.ssc.Free()
		s.ssc = nil
	}
}

func (s *scaler) ensure(src *astiav.Frame) error {
	sw, sh := src.Width(), src.Height()
	sp := src.PixelFormat()
	if s.ssc != nil && sw == s.srcW && sh == s.srcH && sp == s.srcPix {
		return nil
	}

	// Source geometry changed mid-stream (or first frame): rebuild.
	s.close()

	ssc, err := astiav.CreateSoftwareScaleContext(
		sw, sh, sp,
		core.FrameWidth, core.FrameHeight, astiav.PixelFormatRgb24,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagPoint),
	)
	if err != nil {
		return fmt.Errorf("create scale context (%dx%d %s -> rgb24): %w", sw, sh, sp, err)
	}

	dst := astiav.AllocFrame()
	dst.SetWidth(core.FrameWidth)
	dst.SetHeight(core.FrameHeight)
	dst.SetPixelFormat(astiav.PixelFormatRgb24)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		ssc.Free()
		return fmt.Errorf("alloc scale dst buffer: %w", err)
	}

	s.ssc = ssc
	s.dst = dst
	if s.packed == nil {
		s.packed = make([]byte, core.FrameBufSize)
	}
	s.srcW, s.srcH, s.srcPix = sw, sh, sp
	return nil
}

// pack rescales src into the fixed output format and returns the packed RGB24
// bytes. The returned slice is the scaler's reusable buffer: callers must copy
// it before handing it to anyone else. ImageCopyToBuffer with align=1 drops any
// scanline padding the scale destination carries, so only the meaningful
// width*3 bytes of each row land in the buffer.
func (s *scaler) pack(src *astiav.Frame) ([]byte, error) {
	if err := s.ensure(src); err != nil {
		return nil, err
	}
	if err := s.ssc.ScaleFrame(src, s.dst); err != nil {
		return nil, fmt.Errorf("scale frame: %w", err)
	}
	if _, err := s.dst.ImageCopyToBuffer(s.packed, 1); err != nil {
		return nil, fmt.Errorf("pack frame: %w", err)
	}
	return s.packed, nil
}
