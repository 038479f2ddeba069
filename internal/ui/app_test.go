package ui

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"

	"github.com/vbaud/cctv-kiosk/internal/config"
	"github.com/vbaud/cctv-kiosk/internal/supervisor"
)

var testCameras = []config.Camera{
	{Name: "Front", URL: "rtsp://cam/front"},
	{Name: "Garden", URL: "rtsp://cam/garden"},
}

func testRoot(cursorVisible bool) *config.Root {
	return &config.Root{
		Options: config.Options{
			CapturePath:   "captures",
			CursorVisible: cursorVisible,
		},
		Cameras: testCameras,
	}
}

func TestCursorHiddenByDefault(t *testing.T) {
	sup := supervisor.New(testCameras, time.Minute)
	a := newApp(testRoot(false), sup, test.NewApp())

	if got := a.area.Cursor(); got != desktop.HiddenCursor {
		t.Errorf("expected hidden cursor, got %v", got)
	}
}

func TestCursorVisibleWhenConfigured(t *testing.T) {
	sup := supervisor.New(testCameras, time.Minute)
	a := newApp(testRoot(true), sup, test.NewApp())

	if got := a.area.Cursor(); got != desktop.DefaultCursor {
		t.Errorf("expected default cursor, got %v", got)
	}
}

func TestVideoAreaReportsPointerActivity(t *testing.T) {
	test.NewApp()

	var calls int
	v := newVideoArea(canvas.NewRectangle(color.Black), true, func() { calls++ })

	v.MouseIn(&desktop.MouseEvent{})
	v.MouseMoved(&desktop.MouseEvent{})
	v.MouseMoved(&desktop.MouseEvent{})
	v.MouseOut()

	if calls != 3 {
		t.Errorf("expected 3 activity reports, got %d", calls)
	}
}

// TestPointerMovementResumesFromIdle drives the real supervisor: once the idle
// policy has paused everything, moving the mouse over the video must resume
// the selected camera, same as a key press.
func TestPointerMovementResumesFromIdle(t *testing.T) {
	sup := supervisor.New(testCameras, 50*time.Millisecond)
	a := newApp(testRoot(false), sup, test.NewApp())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	ctrl := sup.Control("rtsp://cam/front")
	select {
	case v := <-ctrl:
		if v {
			t.Fatal("expected idle pause (false) first")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for idle pause")
	}

	a.area.MouseMoved(&desktop.MouseEvent{})

	select {
	case v := <-ctrl:
		if !v {
			t.Fatal("expected resume (true) after pointer movement")
		}
	case <-time.After(time.Second):
		t.Fatal("pointer movement did not resume the selected camera")
	}
}

func TestSnapshotFlashClears(t *testing.T) {
	test.NewApp()

	v := newVideoArea(canvas.NewRectangle(color.Black), false, func() {})
	v.flash()

	if !v.flashRect.Visible() {
		t.Fatal("flash overlay not shown")
	}
	time.Sleep(flashDuration + 100*time.Millisecond)
	if v.flashRect.Visible() {
		t.Error("flash overlay still visible after the acknowledgment window")
	}
}

// TestDisplayConcurrentWithClearView exercises the two writers of the view
// image, the updater goroutine and the fyne callbacks, at the same time.
// Meaningful under the race detector.
func TestDisplayConcurrentWithClearView(t *testing.T) {
	sup := supervisor.New(testCameras, time.Minute)
	a := newApp(testRoot(false), sup, test.NewApp())

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			a.display(img)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			a.clearView()
		}
	}()
	wg.Wait()
}
