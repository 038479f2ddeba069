package decode

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vbaud/cctv-kiosk/internal/core"
)

// TestWorkerRetriesAfterStreamFailure simulates a connection failure on start
// and checks that the worker keeps retrying instead of terminating.
func TestWorkerRetriesAfterStreamFailure(t *testing.T) {
	frames := make(chan core.Frame, 1)
	ctrl := make(chan bool, 4)
	w := NewWorker("rtsp://test/1", "test", Options{InitialActive: true}, ctrl, frames)

	var attempts int32
	w.stream = func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("connection refused")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// The backoff between attempts is fixed at reconnectDelay, so after a
	// bit more than one delay there must be at least two attempts.
	time.Sleep(reconnectDelay + 500*time.Millisecond)
	if got := atomic.LoadInt32(&attempts); got < 2 {
		t.Fatalf("expected at least 2 connection attempts, got %d", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(reconnectDelay + time.Second):
		t.Fatal("worker did not stop on cancellation")
	}
}

func TestWorkerStopsOnCancellation(t *testing.T) {
	frames := make(chan core.Frame, 1)
	ctrl := make(chan bool, 4)
	w := NewWorker("rtsp://test/1", "test", Options{}, ctrl, frames)

	w.stream = func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after cancel")
	}
}

func TestPublishDropsWhenChannelFull(t *testing.T) {
	frames := make(chan core.Frame, 1)
	ctrl := make(chan bool, 4)
	w := NewWorker("rtsp://test/1", "test", Options{}, ctrl, frames)

	w.publish([]byte{1})
	done := make(chan struct{})
	go func() {
		w.publish([]byte{2}) // channel full: must drop, not block
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("publish blocked on a full channel")
	}

	f := <-frames
	if f.Data[0] != 1 {
		t.Errorf("expected first frame retained, got %v", f.Data)
	}
	if f.URL != "rtsp://test/1" {
		t.Errorf("frame not tagged with camera url: %q", f.URL)
	}
}

func TestPublishCopiesPackedBuffer(t *testing.T) {
	frames := make(chan core.Frame, 1)
	ctrl := make(chan bool, 4)
	w := NewWorker("rtsp://test/1", "test", Options{}, ctrl, frames)

	scratch := []byte{1, 2, 3}
	w.publish(scratch)
	scratch[0] = 9 // worker reuses its scratch buffer after publishing

	f := <-frames
	if f.Data[0] != 1 {
		t.Error("published frame shares the worker's scratch buffer")
	}
}
