package video

import (
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"
)

const (
	placeholderWidth  = 640
	placeholderHeight = 480
)

var (
	noSignalOnce  sync.Once
	noSignalFrame image.Image
)

// NoSignalFrame returns the placeholder shown when a source has no frame
// yet (or has lost its camera): a black frame with a "No Signal" marker.
// The frame is built once and shared; it is never written to afterwards.
func NoSignalFrame() image.Image {
	noSignalOnce.Do(func() {
		mat := gocv.NewMatWithSize(placeholderHeight, placeholderWidth, gocv.MatTypeCV8UC3)
		defer mat.Close()

		gocv.PutText(&mat, "No Signal",
			image.Pt(placeholderWidth/2-110, placeholderHeight/2),
			gocv.FontHersheySimplex, 1.0,
			color.RGBA{R: 255, G: 255, B: 255, A: 255}, 2)

		img, err := mat.ToImage()
		if err != nil {
			// Fallback: plain black frame without the marker text.
			img = image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
		}
		noSignalFrame = img
	})
	return noSignalFrame
}
