// internal/ui/app.go
package ui

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/vbaud/cctv-kiosk/internal/config"
	"github.com/vbaud/cctv-kiosk/internal/core"
	"github.com/vbaud/cctv-kiosk/internal/snapshot"
	"github.com/vbaud/cctv-kiosk/internal/supervisor"
)

const refreshInterval = 33 * time.Millisecond

// App is the kiosk window. It consumes frames through the supervisor's
// latest-frame poll, issues switch commands, and reports every interaction as
// activity so the idle policy stays armed.
type App struct {
	cfg *config.Root
	sup *supervisor.Supervisor

	fyneApp fyne.App
	win     fyne.Window

	view    *canvas.Image
	spinner *widget.ProgressBarInfinite
	area    *videoArea

	mu        sync.Mutex
	lastFrame core.Frame
	haveFrame bool

	showGallery  bool
	galleryPaths []string
	galleryIdx   int

	galleryBtn *widget.Button

	stop chan struct{}
}

func New(cfg *config.Root, sup *supervisor.Supervisor) *App {
	return newApp(cfg, sup, app.New())
}

func newApp(cfg *config.Root, sup *supervisor.Supervisor, fyneApp fyne.App) *App {
	a := &App{
		cfg:     cfg,
		sup:     sup,
		fyneApp: fyneApp,
		stop:    make(chan struct{}),
	}

	a.win = a.fyneApp.NewWindow("CCTV Kiosk")
	a.win.Resize(fyne.NewSize(core.FrameWidth, core.FrameHeight))
	if cfg.Options.Fullscreen {
		a.win.SetFullScreen(true)
	}

	a.view = canvas.NewImageFromImage(nil)
	a.view.FillMode = canvas.ImageFillContain
	a.view.ScaleMode = canvas.ImageScaleFastest

	a.spinner = widget.NewProgressBarInfinite()

	prevBtn := widget.NewButton("◀", func() { a.previous() })
	snapBtn := widget.NewButton("●", func() { a.takeSnapshot() })
	a.galleryBtn = widget.NewButton("🖼", func() { a.toggleGallery() })
	nextBtn := widget.NewButton("▶", func() { a.next() })
	controls := container.NewCenter(container.NewHBox(prevBtn, snapBtn, a.galleryBtn, nextBtn))

	a.area = newVideoArea(
		container.NewStack(a.view, container.NewCenter(a.spinner)),
		!cfg.Options.CursorVisible,
		a.sup.Activity,
	)
	a.win.SetContent(container.NewBorder(nil, controls, nil, nil, a.area))

	a.win.Canvas().SetOnTypedKey(func(e *fyne.KeyEvent) {
		switch e.Name {
		case fyne.KeyLeft:
			a.previous()
		case fyne.KeyRight:
			a.next()
		case fyne.KeySpace:
			a.takeSnapshot()
		case fyne.KeyG:
			a.toggleGallery()
		case fyne.KeyQ, fyne.KeyEscape:
			a.fyneApp.Quit()
		}
	})

	return a
}

// Run shows the window and blocks until the window closes or ctx is canceled.
func (a *App) Run(ctx context.Context) {
	go a.updater()
	go func() {
		<-ctx.Done()
		a.fyneApp.Quit()
	}()
	a.win.ShowAndRun()
	close(a.stop)
}

// updater polls the supervisor for the newest frame of the selected camera and
// paints it. While the gallery is open the live view is left alone.
func (a *App) updater() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
		}

		a.mu.Lock()
		inGallery := a.showGallery
		a.mu.Unlock()
		if inGallery {
			continue
		}

		f, ok := a.sup.LatestFrame()
		if !ok {
			continue
		}

		a.mu.Lock()
		a.lastFrame = f
		a.haveFrame = true
		a.mu.Unlock()

		img := snapshot.ToImage(f)
		drawLabel(img, a.cfg.CameraName(f.URL))
		a.display(img)
	}
}

// display is called from the updater goroutine and from fyne callbacks; the
// Image assignment is the only shared write, so it goes under the mutex.
func (a *App) display(img image.Image) {
	a.mu.Lock()
	a.view.Image = img
	a.mu.Unlock()
	a.view.Refresh()
	if a.spinner.Visible() {
		a.spinner.Hide()
	}
}

// clearView drops the current picture and shows the spinner until the next
// frame of the (new) selection arrives.
func (a *App) clearView() {
	a.mu.Lock()
	a.haveFrame = false
	a.view.Image = nil
	a.mu.Unlock()
	a.view.Refresh()
	a.spinner.Show()
}

func (a *App) next() {
	a.sup.Activity()
	a.mu.Lock()
	inGallery := a.showGallery
	a.mu.Unlock()
	if inGallery {
		a.galleryStep(1)
		return
	}
	a.sup.Next()
	a.clearView()
}

func (a *App) previous() {
	a.sup.Activity()
	a.mu.Lock()
	inGallery := a.showGallery
	a.mu.Unlock()
	if inGallery {
		a.galleryStep(-1)
		return
	}
	a.sup.Previous()
	a.clearView()
}

// takeSnapshot writes the currently shown frame to disk, acknowledged with a
// brief flash. Write failure is logged, never surfaced into the UI.
func (a *App) takeSnapshot() {
	a.sup.Activity()
	a.mu.Lock()
	f, ok := a.lastFrame, a.haveFrame
	a.mu.Unlock()
	if !ok {
		return
	}

	a.area.flash()

	name := a.cfg.CameraName(f.URL)
	dir := a.cfg.Options.CapturePath
	go func() {
		if err := snapshot.Save(f, dir, name); err != nil {
			log.Printf("[ui] snapshot failed: %v", err)
		}
	}()
}

func (a *App) toggleGallery() {
	a.sup.Activity()

	a.mu.Lock()
	if a.showGallery {
		a.showGallery = false
		a.mu.Unlock()
		a.galleryBtn.SetText("🖼")
		a.clearView()
		return
	}
	a.galleryPaths = snapshot.Gallery(a.cfg.Options.CapturePath)
	a.galleryIdx = 0
	a.showGallery = true
	a.mu.Unlock()

	a.galleryBtn.SetText("❌")
	a.showGalleryImage()
}

func (a *App) galleryStep(step int) {
	a.mu.Lock()
	n := len(a.galleryPaths)
	if n == 0 {
		a.mu.Unlock()
		return
	}
	a.galleryIdx = (a.galleryIdx + step + n) % n
	a.mu.Unlock()
	a.showGalleryImage()
}

func (a *App) showGalleryImage() {
	a.mu.Lock()
	var path string
	if len(a.galleryPaths) > 0 {
		path = a.galleryPaths[a.galleryIdx]
	}
	a.mu.Unlock()

	if path == "" {
		a.mu.Lock()
		a.view.Image = nil
		a.mu.Unlock()
		a.view.Refresh()
		return
	}

	img, err := loadImage(path)
	if err != nil {
		log.Printf("[ui] gallery image %s: %v", path, err)
		return
	}
	a.display(img)
}

func loadImage(path string) (image.Image, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	img, _, err := image.Decode(fd)
	return img, err
}

// drawLabel paints the camera name into the frame's top-left corner.
func drawLabel(img *image.RGBA, text string) {
	if text == "" {
		return
	}

	face := basicfont.Face7x13
	pad := 6
	w := font.MeasureString(face, text).Ceil() + 2*pad
	h := face.Height + 2*pad

	bg := image.Rect(10, 10, 10+w, 10+h)
	draw.Draw(img, bg, image.NewUniform(color.RGBA{A: 0xb0}), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(10+pad, 10+pad+face.Ascent),
	}
	d.DrawString(text)
}
