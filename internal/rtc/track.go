package rtc

import (
	"image"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Techsolutions2024/RFID/internal/video"
)

// frameSource adapts a FramePuller to the mediadevices VideoSource
// interface: each encoder tick pulls the latest frame, substituting the
// "No Signal" placeholder when the source has nothing yet.  Reads are
// paced to the target frame rate; presentation timestamps are stamped by
// the media stack from the read cadence.
type frameSource struct {
	pull     FramePuller
	id       string
	interval time.Duration
	next     time.Time

	closeOnce sync.Once
	closed    chan struct{}
}

func newFrameSource(pull FramePuller, frameRate int) *frameSource {
	if frameRate <= 0 {
		frameRate = 30
	}
	return &frameSource{
		pull:     pull,
		id:       uuid.NewString(),
		interval: time.Second / time.Duration(frameRate),
		closed:   make(chan struct{}),
	}
}

func (s *frameSource) Read() (image.Image, func(), error) {
	select {
	case <-s.closed:
		return nil, nil, io.EOF
	default:
	}

	if now := time.Now(); !s.next.IsZero() && now.Before(s.next) {
		select {
		case <-time.After(s.next.Sub(now)):
		case <-s.closed:
			return nil, nil, io.EOF
		}
	}
	s.next = time.Now().Add(s.interval)

	img, ok := s.pull()
	if !ok {
		img = video.NoSignalFrame()
	}
	return img, func() {}, nil
}

func (s *frameSource) ID() string { return s.id }

func (s *frameSource) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
