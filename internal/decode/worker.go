// internal/decode/worker.go
package decode

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/asticode/go-astiav"

	"github.com/vbaud/cctv-kiosk/internal/core"
)

// reconnectDelay is the fixed backoff between connection attempts. Retrying is
// unbounded: a camera that is down simply shows no new frames until it is back.
const reconnectDelay = 5 * time.Second

// Options tunes one worker. All fields come straight from the kiosk config.
type Options struct {
	// WaitForKeyframe gates decode on the next keyframe after connect and
	// after every pause->resume transition.
	WaitForKeyframe bool

	// UseTCP asks the demuxer to carry RTSP over TCP instead of UDP.
	UseTCP bool

	// HWDecoder names a hardware decoder (e.g. "h264_v4l2m2m") to try
	// before the stream's default software decoder.
	HWDecoder string

	// InitialActive marks the camera selected at startup; everyone else
	// starts paused.
	InitialActive bool
}

// Worker maintains a live decode of one camera. It owns its network input,
// decoder and scale context exclusively; the only contact with the rest of the
// process is the control channel it polls and the frame channel it publishes
// to, both non-blocking.
type Worker struct {
	url  string
	name string
	opts Options

	ctrl   <-chan bool
	frames chan<- core.Frame

	sess session

	// stream is swapped out in tests; production workers always run
	// streamOnce.
	stream func(ctx context.Context) error
}

func NewWorker(url, name string, opts Options, ctrl <-chan bool, frames chan<- core.Frame) *Worker {
	w := &Worker{
		url:    url,
		name:   name,
		opts:   opts,
		ctrl:   ctrl,
		frames: frames,
		sess:   newSession(opts.InitialActive, opts.WaitForKeyframe),
	}
	w.stream = w.streamOnce
	return w
}

// Run connects, decodes and reconnects until ctx is canceled. Stream errors
// never escape this loop; they are logged and answered with a fixed backoff.
func (w *Worker) Run(ctx context.Context) {
	for {
		if err := w.stream(ctx); err != nil {
			log.Printf("[decode %s] stream ended: %v (reconnect in %s)", w.name, err, reconnectDelay)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (w *Worker) streamOnce(ctx context.Context) error {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return errors.New("alloc format context")
	}
	defer fc.Free()

	opts := astiav.NewDictionary()
	defer opts.Free()
	if w.opts.UseTCP {
		_ = opts.Set("rtsp_transport", "tcp", 0)
	}
	_ = opts.Set("flags", "+low_delay", 0)
	_ = opts.Set("fflags", "+nobuffer+discardcorrupt", 0)
	_ = opts.Set("stimeout", "5000000", 0)

	if err := fc.OpenInput(w.url, nil, opts); err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer fc.CloseInput()

	if err := fc.FindStreamInfo(nil); err != nil {
		return fmt.Errorf("find stream info: %w", err)
	}

	var vst *astiav.Stream
	for _, s := range fc.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			vst = s
			break
		}
	}
	if vst == nil {
		return errors.New("no video stream")
	}
	vIdx := vst.Index()

	vctx, err := w.openDecoder(vst)
	if err != nil {
		return err
	}
	defer vctx.Free()

	var sc scaler
	defer sc.close()

	pkt := astiav.AllocPacket()
	defer pkt.Free()
	frame := astiav.AllocFrame()
	defer frame.Free()

	// Fresh connection: the first packets are mid-GOP.
	w.sess.rearm()

	log.Printf("[decode %s] connected", w.name)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		w.sess.poll(w.ctrl)

		if err := fc.ReadFrame(pkt); err != nil {
			return fmt.Errorf("read packet: %w", err)
		}

		if pkt.StreamIndex() != vIdx {
			pkt.Unref()
			continue
		}

		// Paused or waiting for a keyframe: the packet has already been
		// drained from the socket, which keeps the stream live.
		if !w.sess.admit(pkt.Flags().Has(astiav.PacketFlagKey)) {
			pkt.Unref()
			continue
		}

		// Decode faults are isolated per packet.
		if err := vctx.SendPacket(pkt); err != nil {
			pkt.Unref()
			continue
		}
		for {
			if err := vctx.ReceiveFrame(frame); err != nil {
				break
			}
			packed, err := sc.pack(frame)
			if err != nil {
				log.Printf("[decode %s] %v", w.name, err)
				frame.Unref()
				continue
			}
			w.publish(packed)
			frame.Unref()
		}
		pkt.Unref()
	}
}

// openDecoder tries the configured hardware decoder first, then falls back to
// the default decoder negotiated from the stream's parameters.
func (w *Worker) openDecoder(vst *astiav.Stream) (*astiav.CodecContext, error) {
	par := vst.CodecParameters()

	if name := w.opts.HWDecoder; name != "" {
		if cc, err := openCodec(astiav.FindDecoderByName(name), par); err == nil {
			log.Printf("[decode %s] using hardware decoder %s", w.name, name)
			return cc, nil
		}
		log.Printf("[decode %s] hardware decoder %s unavailable, using software decoder", w.name, name)
	}

	cc, err := openCodec(astiav.FindDecoder(par.CodecID()), par)
	if err != nil {
		return nil, fmt.Errorf("open decoder %s: %w", par.CodecID(), err)
	}
	return cc, nil
}

func openCodec(codec *astiav.Codec, par *astiav.CodecParameters) (*astiav.CodecContext, error) {
	if codec == nil {
		return nil, errors.New("decoder not found")
	}
	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, errors.New("alloc codec context")
	}
	if err := par.ToCodecContext(cc); err != nil {
		cc.Free()
		return nil, fmt.Errorf("apply codec parameters: %w", err)
	}
	if err := cc.Open(codec, nil); err != nil {
		cc.Free()
		return nil, fmt.Errorf("open codec: %w", err)
	}
	return cc, nil
}

// publish copies the packed buffer into a fresh Frame and offers it to the
// output channel. If the consumer is behind, the frame is dropped: only the
// latest one matters.
func (w *Worker) publish(packed []byte) {
	buf := make([]byte, len(packed))
	copy(buf, packed)
	select {
	case w.frames <- core.Frame{Data: buf, URL: w.url}:
	default:
	}
}
