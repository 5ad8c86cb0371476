package rtc_test

import (
	"context"
	"errors"
	"image"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/Techsolutions2024/RFID/internal/rtc"
	"github.com/Techsolutions2024/RFID/internal/station/types"
)

type fakeSource struct {
	ready    chan struct{}
	stopOnce sync.Once
	stopped  chan struct{}
	started  chan struct{}
}

func newFakeSource(ready bool) *fakeSource {
	s := &fakeSource{
		ready:   make(chan struct{}),
		stopped: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	if ready {
		close(s.ready)
	}
	return s
}

func (s *fakeSource) Start() {
	select {
	case s.started <- struct{}{}:
	default:
	}
}

func (s *fakeSource) Ready() <-chan struct{} { return s.ready }

func (s *fakeSource) Frame() (image.Image, bool) { return nil, false }

func (s *fakeSource) Stop() {
	s.stopOnce.Do(func() { close(s.stopped) })
}

func (s *fakeSource) isStopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

type fakePeer struct {
	mu        sync.Mutex
	closed    bool
	answerErr error
}

func (p *fakePeer) Answer(context.Context, rtc.Description) (rtc.Description, error) {
	if p.answerErr != nil {
		return rtc.Description{}, p.answerErr
	}
	return rtc.Description{Type: "answer", SDP: "v=0"}, nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type fakeSignaler struct {
	mu      sync.Mutex
	answers []string
	errs    []string
}

func (s *fakeSignaler) Answer(clientID string, direction types.Direction, _ rtc.Description) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, rtc.ConnectionID(clientID, direction))
}

func (s *fakeSignaler) Error(clientID, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, clientID)
}

func (s *fakeSignaler) counts() (answers, errs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers), len(s.errs)
}

// managerFixture wires a Manager with controllable fakes.  sourceReady
// decides whether created sources signal readiness immediately.
type managerFixture struct {
	mu       sync.Mutex
	sources  []*fakeSource
	peers    []*fakePeer
	onDowns  []func()
	signaler *fakeSignaler
	manager  *rtc.Manager

	sourceReady bool
	peerErr     error
	answerErr   error
}

func newManagerFixture(sourceReady bool, readyTimeout time.Duration) *managerFixture {
	f := &managerFixture{
		signaler:    &fakeSignaler{},
		sourceReady: sourceReady,
	}

	sourceFactory := func(string, types.Direction) rtc.Source {
		src := newFakeSource(f.sourceReady)
		f.mu.Lock()
		f.sources = append(f.sources, src)
		f.mu.Unlock()
		return src
	}
	peerFactory := func(_ rtc.FramePuller, onDown func()) (rtc.Peer, error) {
		if f.peerErr != nil {
			return nil, f.peerErr
		}
		peer := &fakePeer{answerErr: f.answerErr}
		f.mu.Lock()
		f.peers = append(f.peers, peer)
		f.onDowns = append(f.onDowns, onDown)
		f.mu.Unlock()
		return peer, nil
	}

	logger := log.New(io.Discard, "", 0)
	f.manager = rtc.NewManager(sourceFactory, peerFactory, f.signaler, logger, readyTimeout)
	return f
}

func (f *managerFixture) source(i int) *fakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sources[i]
}

func (f *managerFixture) peer(i int) *fakePeer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peers[i]
}

var testOffer = rtc.Description{Type: "offer", SDP: "v=0"}

func TestManager_HandleOffer_EstablishesSession(t *testing.T) {
	f := newManagerFixture(true, time.Second)

	err := f.manager.HandleOffer(context.Background(), "client-1", types.DirectionIn, "rtsp://cam/in", testOffer)
	if err != nil {
		t.Fatalf("HandleOffer: %v", err)
	}

	if got := f.manager.SessionCount(); got != 1 {
		t.Errorf("expected 1 session, got %d", got)
	}
	answers, errs := f.signaler.counts()
	if answers != 1 || errs != 0 {
		t.Errorf("expected 1 answer and no errors, got %d/%d", answers, errs)
	}
}

func TestManager_HandleOffer_ReplacesExistingSession(t *testing.T) {
	f := newManagerFixture(true, time.Second)
	ctx := context.Background()

	if err := f.manager.HandleOffer(ctx, "client-1", types.DirectionIn, "rtsp://cam/in", testOffer); err != nil {
		t.Fatalf("first offer: %v", err)
	}
	if err := f.manager.HandleOffer(ctx, "client-1", types.DirectionIn, "rtsp://cam/in", testOffer); err != nil {
		t.Fatalf("second offer: %v", err)
	}

	if got := f.manager.SessionCount(); got != 1 {
		t.Errorf("expected exactly 1 live session, got %d", got)
	}
	if !f.source(0).isStopped() {
		t.Error("replaced source must be stopped")
	}
	if !f.peer(0).isClosed() {
		t.Error("replaced peer must be closed")
	}
	if f.source(1).isStopped() {
		t.Error("live source must keep running")
	}
}

func TestManager_HandleOffer_SourceTimeout(t *testing.T) {
	f := newManagerFixture(false, 10*time.Millisecond)

	err := f.manager.HandleOffer(context.Background(), "client-1", types.DirectionIn, "rtsp://cam/in", testOffer)
	if !errors.Is(err, rtc.ErrSourceTimeout) {
		t.Fatalf("expected ErrSourceTimeout, got %v", err)
	}

	if got := f.manager.SessionCount(); got != 0 {
		t.Errorf("expected no sessions after timeout, got %d", got)
	}
	if !f.source(0).isStopped() {
		t.Error("timed-out source must be stopped")
	}
	answers, errs := f.signaler.counts()
	if answers != 0 || errs != 1 {
		t.Errorf("expected exactly one error notification, got answers=%d errs=%d", answers, errs)
	}
}

func TestManager_HandleOffer_CancelledContext(t *testing.T) {
	f := newManagerFixture(false, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.manager.HandleOffer(ctx, "client-1", types.DirectionIn, "rtsp://cam/in", testOffer)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := f.manager.SessionCount(); got != 0 {
		t.Errorf("expected no sessions, got %d", got)
	}
}

func TestManager_HandleOffer_PeerFactoryError(t *testing.T) {
	f := newManagerFixture(true, time.Second)
	f.peerErr = errors.New("no codec")

	err := f.manager.HandleOffer(context.Background(), "client-1", types.DirectionIn, "rtsp://cam/in", testOffer)
	if err == nil {
		t.Fatal("expected error from peer factory")
	}

	if got := f.manager.SessionCount(); got != 0 {
		t.Errorf("expected no sessions, got %d", got)
	}
	if !f.source(0).isStopped() {
		t.Error("source must be stopped after peer failure")
	}
	_, errs := f.signaler.counts()
	if errs != 1 {
		t.Errorf("expected one error notification, got %d", errs)
	}
}

func TestManager_HandleOffer_AnswerError(t *testing.T) {
	f := newManagerFixture(true, time.Second)
	f.answerErr = errors.New("bad sdp")

	err := f.manager.HandleOffer(context.Background(), "client-1", types.DirectionIn, "rtsp://cam/in", testOffer)
	if err == nil {
		t.Fatal("expected negotiation error")
	}

	if got := f.manager.SessionCount(); got != 0 {
		t.Errorf("expected no sessions, got %d", got)
	}
	if !f.peer(0).isClosed() {
		t.Error("peer must be closed after failed negotiation")
	}
}

func TestManager_TransportDownTearsDownSession(t *testing.T) {
	f := newManagerFixture(true, time.Second)

	if err := f.manager.HandleOffer(context.Background(), "client-1", types.DirectionIn, "rtsp://cam/in", testOffer); err != nil {
		t.Fatalf("HandleOffer: %v", err)
	}

	f.mu.Lock()
	onDown := f.onDowns[0]
	f.mu.Unlock()
	onDown()

	if got := f.manager.SessionCount(); got != 0 {
		t.Errorf("expected session torn down, got %d", got)
	}
	if !f.source(0).isStopped() {
		t.Error("source must be stopped on transport loss")
	}
}

func TestManager_ReplacedPeerDownLeavesSuccessorAlive(t *testing.T) {
	f := newManagerFixture(true, time.Second)
	ctx := context.Background()

	if err := f.manager.HandleOffer(ctx, "client-1", types.DirectionIn, "rtsp://cam/in", testOffer); err != nil {
		t.Fatalf("first offer: %v", err)
	}
	if err := f.manager.HandleOffer(ctx, "client-1", types.DirectionIn, "rtsp://cam/in", testOffer); err != nil {
		t.Fatalf("second offer: %v", err)
	}

	// Closing the replaced peer makes its transport report down; that
	// late callback must not touch the replacement session.
	f.mu.Lock()
	staleDown := f.onDowns[0]
	f.mu.Unlock()
	staleDown()

	if got := f.manager.SessionCount(); got != 1 {
		t.Fatalf("stale transport-down removed the live session: want 1, got %d", got)
	}
	if f.source(1).isStopped() {
		t.Error("replacement source must keep running after the stale callback")
	}
	if f.peer(1).isClosed() {
		t.Error("replacement peer must stay open after the stale callback")
	}

	// The live session's own callback still tears it down.
	f.mu.Lock()
	liveDown := f.onDowns[1]
	f.mu.Unlock()
	liveDown()

	if got := f.manager.SessionCount(); got != 0 {
		t.Errorf("live session's transport-down must tear it down, got %d sessions", got)
	}
}

func TestManager_DropClient(t *testing.T) {
	f := newManagerFixture(true, time.Second)
	ctx := context.Background()

	if err := f.manager.HandleOffer(ctx, "client-1", types.DirectionIn, "rtsp://cam/in", testOffer); err != nil {
		t.Fatalf("in offer: %v", err)
	}
	if err := f.manager.HandleOffer(ctx, "client-1", types.DirectionOut, "rtsp://cam/out", testOffer); err != nil {
		t.Fatalf("out offer: %v", err)
	}
	if err := f.manager.HandleOffer(ctx, "client-2", types.DirectionIn, "rtsp://cam/in", testOffer); err != nil {
		t.Fatalf("other client offer: %v", err)
	}

	f.manager.DropClient("client-1")

	if got := f.manager.SessionCount(); got != 1 {
		t.Errorf("expected only the other client's session, got %d", got)
	}
	if !f.source(0).isStopped() || !f.source(1).isStopped() {
		t.Error("both of client-1's sources must be stopped")
	}
	if f.source(2).isStopped() {
		t.Error("client-2's source must keep running")
	}
}

func TestManager_Close(t *testing.T) {
	f := newManagerFixture(true, time.Second)
	ctx := context.Background()

	if err := f.manager.HandleOffer(ctx, "client-1", types.DirectionIn, "rtsp://cam/in", testOffer); err != nil {
		t.Fatalf("offer: %v", err)
	}
	if err := f.manager.HandleOffer(ctx, "client-2", types.DirectionOut, "rtsp://cam/out", testOffer); err != nil {
		t.Fatalf("offer: %v", err)
	}

	f.manager.Close()

	if got := f.manager.SessionCount(); got != 0 {
		t.Errorf("expected no sessions after Close, got %d", got)
	}
	if !f.source(0).isStopped() || !f.source(1).isStopped() {
		t.Error("all sources must be stopped after Close")
	}
}

func TestConnectionID(t *testing.T) {
	if got := rtc.ConnectionID("abc", types.DirectionIn); got != "abc_in" {
		t.Errorf("expected abc_in, got %s", got)
	}
	if got := rtc.ConnectionID("abc", types.DirectionOut); got != "abc_out" {
		t.Errorf("expected abc_out, got %s", got)
	}
}
