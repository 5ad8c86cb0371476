package video_test

import (
	"errors"
	"image"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/Techsolutions2024/RFID/internal/station/types"
	"github.com/Techsolutions2024/RFID/internal/video"
)

// fakeCapture serves frames until told to fail.
type fakeCapture struct {
	mu     sync.Mutex
	frame  image.Image
	err    error
	closed bool
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{frame: image.NewRGBA(image.Rect(0, 0, 4, 4))}
}

func (c *fakeCapture) Read() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.frame, nil
}

func (c *fakeCapture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeCapture) failWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *fakeCapture) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// countingOpener hands out captures from a script; a nil entry means the
// open attempt fails.
type countingOpener struct {
	mu       sync.Mutex
	captures []*fakeCapture
	calls    int
}

func (o *countingOpener) open(string) (video.Capture, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	i := o.calls
	o.calls++
	if i >= len(o.captures) || o.captures[i] == nil {
		return nil, errors.New("device busy")
	}
	return o.captures[i], nil
}

func (o *countingOpener) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func fastConfig() video.Config {
	return video.Config{
		MaxRetries:    3,
		FrameInterval: time.Millisecond,
		OpenBackoff:   time.Millisecond,
		ReadBackoff:   time.Millisecond,
	}
}

func waitReady(t *testing.T, s *video.Source) {
	t.Helper()
	select {
	case <-s.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("source never became ready")
	}
}

func TestSource_ReadySignaledAfterOpen(t *testing.T) {
	opener := &countingOpener{captures: []*fakeCapture{newFakeCapture()}}
	s := video.NewSource("0", types.DirectionIn, opener.open, fastConfig(), testLogger())

	if _, ok := s.Frame(); ok {
		t.Fatal("frame must be unavailable before start")
	}

	s.Start()
	defer s.Stop()

	waitReady(t, s)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := s.Frame(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no frame after ready")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSource_ReadySurvivesFailedFirstOpen(t *testing.T) {
	// First open fails, second succeeds; ready still fires.
	opener := &countingOpener{captures: []*fakeCapture{nil, newFakeCapture()}}
	s := video.NewSource("0", types.DirectionIn, opener.open, fastConfig(), testLogger())

	s.Start()
	defer s.Stop()

	waitReady(t, s)
	if got := opener.callCount(); got < 2 {
		t.Errorf("expected at least 2 open attempts, got %d", got)
	}
}

func TestSource_ExhaustsRetryBudget(t *testing.T) {
	opener := &countingOpener{} // every open fails
	s := video.NewSource("0", types.DirectionIn, opener.open, fastConfig(), testLogger())

	s.Start()

	deadline := time.Now().Add(2 * time.Second)
	for opener.callCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 3 open attempts, got %d", opener.callCount())
		}
		time.Sleep(time.Millisecond)
	}

	// The worker must have given up: no further attempts accumulate.
	time.Sleep(20 * time.Millisecond)
	if got := opener.callCount(); got != 3 {
		t.Errorf("budget not honored: %d open attempts", got)
	}

	// Stop returns promptly because the worker already exited.
	s.Stop()

	select {
	case <-s.Ready():
		t.Error("ready must not fire when every open failed")
	default:
	}
}

func TestSource_ReadFailureCountsAgainstBudget(t *testing.T) {
	first := newFakeCapture()
	second := newFakeCapture()
	opener := &countingOpener{captures: []*fakeCapture{first, second}}
	s := video.NewSource("0", types.DirectionIn, opener.open, fastConfig(), testLogger())

	s.Start()
	defer s.Stop()

	waitReady(t, s)
	first.failWith(errors.New("stream stalled"))

	deadline := time.Now().Add(2 * time.Second)
	for opener.callCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("source never reopened after read failure")
		}
		time.Sleep(time.Millisecond)
	}

	if !first.isClosed() {
		t.Error("failed capture must be released before reopening")
	}
}

func TestSource_StopReleasesCapture(t *testing.T) {
	capture := newFakeCapture()
	opener := &countingOpener{captures: []*fakeCapture{capture}}
	s := video.NewSource("0", types.DirectionOut, opener.open, fastConfig(), testLogger())

	s.Start()
	waitReady(t, s)

	s.Stop()
	s.Stop() // idempotent

	if !capture.isClosed() {
		t.Error("expected capture closed after Stop")
	}
}

func TestNoSignalFrame(t *testing.T) {
	img := video.NoSignalFrame()
	if img == nil {
		t.Fatal("expected placeholder frame")
	}
	b := img.Bounds()
	if b.Dx() != 640 || b.Dy() != 480 {
		t.Errorf("expected 640x480 placeholder, got %dx%d", b.Dx(), b.Dy())
	}
}
