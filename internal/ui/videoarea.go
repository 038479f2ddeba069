// internal/ui/videoarea.go
package ui

import (
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// flashDuration is how long the capture acknowledgment overlay stays visible.
const flashDuration = 150 * time.Millisecond

// videoArea hosts the live view. It owns the two desktop-only behaviors of the
// kiosk surface: hiding the pointer when configured, and reporting pointer
// movement as activity so mouse-only users keep the idle policy armed.
type videoArea struct {
	widget.BaseWidget

	content    fyne.CanvasObject
	flashRect  *canvas.Rectangle
	hideCursor bool
	onActivity func()
}

func newVideoArea(content fyne.CanvasObject, hideCursor bool, onActivity func()) *videoArea {
	v := &videoArea{
		content:    content,
		flashRect:  canvas.NewRectangle(color.White),
		hideCursor: hideCursor,
		onActivity: onActivity,
	}
	v.flashRect.Hide()
	v.ExtendBaseWidget(v)
	return v
}

func (v *videoArea) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewStack(v.content, v.flashRect))
}

// Cursor implements desktop.Cursorable.
func (v *videoArea) Cursor() desktop.Cursor {
	if v.hideCursor {
		return desktop.HiddenCursor
	}
	return desktop.DefaultCursor
}

// Hoverable: any pointer motion over the video counts as user activity, same
// as a key or button press.
func (v *videoArea) MouseIn(*desktop.MouseEvent)    { v.onActivity() }
func (v *videoArea) MouseMoved(*desktop.MouseEvent) { v.onActivity() }
func (v *videoArea) MouseOut()                      {}

// flash paints a brief white overlay acknowledging a snapshot capture.
func (v *videoArea) flash() {
	v.flashRect.Show()
	v.flashRect.Refresh()
	time.AfterFunc(flashDuration, func() {
		v.flashRect.Hide()
		v.flashRect.Refresh()
	})
}
