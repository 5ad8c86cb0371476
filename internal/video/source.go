package video

import (
	"image"
	"log"
	"sync"
	"time"

	"github.com/Techsolutions2024/RFID/internal/station/types"
)

// Capture is an open video device or stream handle.
type Capture interface {
	// Read returns the next decoded frame, or an error when the device
	// has failed and must be reopened.
	Read() (image.Image, error)
	Close() error
}

// OpenFunc opens a capture for a device index or stream URL.
type OpenFunc func(url string) (Capture, error)

type Config struct {
	// MaxRetries is the failure budget for the whole source lifetime,
	// shared between open and read failures.  Default 5.
	MaxRetries int
	// FrameInterval bounds the pull rate while streaming.  Default ~30 Hz.
	FrameInterval time.Duration
	// OpenBackoff is the sleep after a failed open.  Default 2s.
	OpenBackoff time.Duration
	// ReadBackoff is the sleep after a failed read.  Default 1s.
	ReadBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = time.Second / 30
	}
	if c.OpenBackoff <= 0 {
		c.OpenBackoff = 2 * time.Second
	}
	if c.ReadBackoff <= 0 {
		c.ReadBackoff = time.Second
	}
	return c
}

// Source is a background worker that keeps the latest decoded frame from
// one camera available.  Lifecycle: Connecting -> Streaming, back to
// Connecting on frame loss, and terminally Exhausted once the retry
// budget runs out.
//
// The ready latch fires on the first successful open only; reconnects do
// not re-signal it.  Stop is idempotent and returns only after the worker
// has exited and released the device.  Start must be called before Stop.
type Source struct {
	url       string
	direction types.Direction
	open      OpenFunc
	cfg       Config
	logger    *log.Logger

	mu    sync.Mutex
	frame image.Image

	ready     chan struct{}
	readyOnce sync.Once

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewSource(url string, direction types.Direction, open OpenFunc, cfg Config, logger *log.Logger) *Source {
	return &Source{
		url:       url,
		direction: direction,
		open:      open,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		ready:     make(chan struct{}),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *Source) Start() {
	go s.run()
}

// Ready is closed after the first successful open of the capture device.
func (s *Source) Ready() <-chan struct{} { return s.ready }

// Frame returns the most recent completed frame.  ok is false until the
// first successful read; callers must tolerate that indefinitely.
func (s *Source) Frame() (image.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return nil, false
	}
	return s.frame, true
}

// Stop halts the worker and waits until the device handle is released.
// Safe to call from any goroutine, any number of times.
func (s *Source) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Source) run() {
	defer close(s.done)

	var cap Capture
	defer func() {
		if cap != nil {
			_ = cap.Close()
		}
	}()

	retries := 0
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		if cap == nil {
			c, err := s.open(s.url)
			if err != nil {
				retries++
				s.logger.Printf("[%s] open %s: %v (attempt %d/%d)",
					s.direction, s.url, err, retries, s.cfg.MaxRetries)
				if retries >= s.cfg.MaxRetries {
					s.logger.Printf("[%s] video source exhausted after %d attempts", s.direction, retries)
					return
				}
				if !s.sleep(s.cfg.OpenBackoff) {
					return
				}
				continue
			}
			cap = c
			s.logger.Printf("[%s] capture opened: %s", s.direction, s.url)
			s.readyOnce.Do(func() { close(s.ready) })
		}

		img, err := cap.Read()
		if err != nil {
			_ = cap.Close()
			cap = nil
			retries++
			s.logger.Printf("[%s] frame read failed, reconnecting (attempt %d/%d)",
				s.direction, retries, s.cfg.MaxRetries)
			if retries >= s.cfg.MaxRetries {
				s.logger.Printf("[%s] video source exhausted after %d attempts", s.direction, retries)
				return
			}
			if !s.sleep(s.cfg.ReadBackoff) {
				return
			}
			continue
		}

		s.mu.Lock()
		s.frame = img
		s.mu.Unlock()

		if !s.sleep(s.cfg.FrameInterval) {
			return
		}
	}
}

// sleep waits for d, returning false if the source was stopped meanwhile.
func (s *Source) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-s.stop:
		return false
	}
}
