// cmd/stream-probe/main.go
//
// Debug tool: decode one camera stream for a while and print frame statistics.
// Useful for checking credentials, transport settings and decoder selection
// without bringing up the whole kiosk.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/vbaud/cctv-kiosk/internal/core"
	"github.com/vbaud/cctv-kiosk/internal/decode"
)

func main() {
	url := flag.String("url", "", "stream url (required)")
	tcp := flag.Bool("tcp", true, "use TCP for RTSP")
	hw := flag.String("hw", "", "hardware decoder name to try first")
	dur := flag.Duration("duration", 15*time.Second, "how long to probe")
	flag.Parse()

	if *url == "" {
		log.Fatal("[probe] -url is required")
	}

	frames := make(chan core.Frame, 8)
	ctrl := make(chan bool, 4)

	w := decode.NewWorker(*url, "probe", decode.Options{
		WaitForKeyframe: true,
		UseTCP:          *tcp,
		HWDecoder:       *hw,
		InitialActive:   true,
	}, ctrl, frames)

	ctx, cancel := context.WithTimeout(context.Background(), *dur)
	defer cancel()

	go w.Run(ctx)

	var count int
	var first time.Time
	for {
		select {
		case <-ctx.Done():
			if count == 0 {
				log.Printf("[probe] no frames decoded")
				return
			}
			elapsed := time.Since(first).Seconds()
			log.Printf("[probe] %d frames in %.1fs (%.1f fps, %dx%d rgb24)",
				count, elapsed, float64(count)/elapsed, core.FrameWidth, core.FrameHeight)
			return
		case <-frames:
			if count == 0 {
				first = time.Now()
				log.Printf("[probe] first frame received")
			}
			count++
		}
	}
}
