// internal/snapshot/snapshot.go
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vbaud/cctv-kiosk/internal/core"
)

// ToImage expands a packed RGB24 frame into an RGBA image. Used by the viewer
// and by the PNG encoder; the alpha channel is always opaque.
func ToImage(f core.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, core.FrameWidth, core.FrameHeight))
	src := f.Data
	dst := img.Pix
	for i, j := 0, 0; i+2 < len(src); i, j = i+3, j+4 {
		dst[j] = src[i]
		dst[j+1] = src[i+1]
		dst[j+2] = src[i+2]
		dst[j+3] = 0xff
	}
	return img
}

// Save writes a frame as a timestamped PNG under dir. PNG is lossless, so a
// re-read snapshot carries the exact pixel data of the in-memory frame. The
// file is also mirrored to the remote store when one is configured.
func Save(f core.Frame, dir, cameraName string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create capture dir: %w", err)
	}

	ts := time.Now().Format("2006-01-02_15-04-05")
	name := fmt.Sprintf("%s_%s.png", ts, strings.ReplaceAll(cameraName, " ", "_"))
	path := filepath.Join(dir, name)

	var buf bytes.Buffer
	if err := png.Encode(&buf, ToImage(f)); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	log.Printf("[snapshot] saved %s", path)

	if DefaultStore != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		url, err := DefaultStore.SaveSnapshot(ctx, name, buf.Bytes(), "image/png")
		if err != nil {
			log.Printf("[snapshot] remote mirror failed: %v", err)
		} else {
			log.Printf("[snapshot] mirrored to %s", url)
		}
	}
	return nil
}

// Gallery lists the image files under dir, newest first. A missing or
// unreadable directory is an empty gallery, not an error.
func Gallery(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}

	// Filenames start with the timestamp, so lexical order is capture order.
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	return paths
}
