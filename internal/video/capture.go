package video

import (
	"errors"
	"fmt"
	"image"
	"os"
	"strconv"

	"gocv.io/x/gocv"
)

// OpenCapture opens a local device (numeric index) or a network stream URL.
// Network streams prefer RTSP over UDP and a single-frame buffer so the
// latest frame stays fresh rather than queueing behind stale ones.
// Production OpenFunc.
func OpenCapture(url string) (Capture, error) {
	var (
		vc  *gocv.VideoCapture
		err error
	)
	if idx, convErr := strconv.Atoi(url); convErr == nil {
		vc, err = gocv.VideoCaptureDevice(idx)
	} else {
		os.Setenv("OPENCV_FFMPEG_CAPTURE_OPTIONS", "rtsp_transport;udp")
		vc, err = gocv.VideoCaptureFileWithAPI(url, gocv.VideoCaptureFFmpeg)
	}
	if err != nil {
		return nil, fmt.Errorf("open capture %s: %w", url, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("capture %s did not open", url)
	}
	vc.Set(gocv.VideoCaptureBufferSize, 1)

	return &gocvCapture{vc: vc, mat: gocv.NewMat()}, nil
}

type gocvCapture struct {
	vc  *gocv.VideoCapture
	mat gocv.Mat
}

func (c *gocvCapture) Read() (image.Image, error) {
	if ok := c.vc.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, errors.New("frame read failed")
	}
	return c.mat.ToImage()
}

func (c *gocvCapture) Close() error {
	_ = c.mat.Close()
	return c.vc.Close()
}
