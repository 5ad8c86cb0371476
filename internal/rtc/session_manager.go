package rtc

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Techsolutions2024/RFID/internal/station/types"
)

var (
	// ErrSourceTimeout means the video source did not become ready
	// within the negotiation window.
	ErrSourceTimeout = errors.New("video source not ready in time")
	// ErrSessionReplaced means a newer offer for the same connection id
	// superseded this negotiation while it was waiting for the source.
	ErrSessionReplaced = errors.New("session replaced during negotiation")
)

// Source is the video worker a session streams from.
type Source interface {
	Start()
	Ready() <-chan struct{}
	Frame() (image.Image, bool)
	Stop()
}

// SourceFactory creates a Source for a stream URL and direction.
type SourceFactory func(url string, direction types.Direction) Source

// Signaler delivers negotiation results to a single requester.
type Signaler interface {
	Answer(clientID string, direction types.Direction, desc Description)
	Error(clientID, message string)
}

// ConnectionID is the composite session key: at most one live session may
// exist per id at any time.
func ConnectionID(clientID string, direction types.Direction) string {
	return clientID + "_" + strings.ToLower(string(direction))
}

type session struct {
	src  Source
	peer Peer
	once sync.Once
}

// close releases the session's resources: peer first, then the source, so
// nothing pulls frames from a stopped worker.  Idempotent.
func (s *session) close() {
	s.once.Do(func() {
		if s.peer != nil {
			_ = s.peer.Close()
		}
		s.src.Stop()
	})
}

// Manager maps negotiation requests to (video source, peer session) pairs.
// It guarantees at-most-one live session per connection id, gates session
// creation on source readiness under a timeout, and tears down partial
// state on every failure path so nothing stays half-registered.
type Manager struct {
	sources      SourceFactory
	peers        PeerFactory
	signaler     Signaler
	logger       *log.Logger
	readyTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

func NewManager(sources SourceFactory, peers PeerFactory, signaler Signaler, logger *log.Logger, readyTimeout time.Duration) *Manager {
	if readyTimeout <= 0 {
		readyTimeout = 10 * time.Second
	}
	return &Manager{
		sources:      sources,
		peers:        peers,
		signaler:     signaler,
		logger:       logger,
		readyTimeout: readyTimeout,
		sessions:     make(map[string]*session),
	}
}

// HandleOffer runs one full negotiation.  Any existing session for the
// same connection id is torn down synchronously before the new one is
// created.  On failure the requester gets exactly one error notification
// and no source or peer remains registered for the id.
func (m *Manager) HandleOffer(ctx context.Context, clientID string, direction types.Direction, sourceURL string, offer Description) error {
	id := ConnectionID(clientID, direction)

	m.Teardown(id)

	src := m.sources(sourceURL, direction)
	src.Start()

	sess := &session{src: src}
	m.mu.Lock()
	if old := m.sessions[id]; old != nil {
		// A concurrent offer registered first; replace it.
		delete(m.sessions, id)
		defer old.close()
	}
	m.sessions[id] = sess
	m.mu.Unlock()

	fail := func(err error, message string) error {
		m.unregister(id, sess)
		sess.close()
		m.signaler.Error(clientID, message)
		return err
	}

	m.logger.Printf("[%s] waiting for video source %s", id, sourceURL)
	select {
	case <-src.Ready():
	case <-time.After(m.readyTimeout):
		return fail(ErrSourceTimeout,
			fmt.Sprintf("video source %s not ready within %s", sourceURL, m.readyTimeout))
	case <-ctx.Done():
		return fail(ctx.Err(), "negotiation cancelled")
	}

	// The transport-down hook is scoped to this session, not the id: a
	// replaced peer reports Closed while it is being torn down, and that
	// stale callback must never destroy the successor session.
	peer, err := m.peers(src.Frame, func() { m.teardownIf(id, sess) })
	if err != nil {
		return fail(err, "peer setup failed: "+err.Error())
	}

	m.mu.Lock()
	if m.sessions[id] != sess {
		// Torn down or replaced while waiting; release what we built.
		m.mu.Unlock()
		_ = peer.Close()
		sess.close()
		return ErrSessionReplaced
	}
	sess.peer = peer
	m.mu.Unlock()

	answer, err := peer.Answer(ctx, offer)
	if err != nil {
		return fail(err, "negotiation failed: "+err.Error())
	}

	m.signaler.Answer(clientID, direction, answer)
	m.logger.Printf("[%s] session established", id)
	return nil
}

// Teardown stops and unregisters the session for a connection id.
// Synchronous, idempotent, safe from any goroutine.
func (m *Manager) Teardown(id string) {
	m.mu.Lock()
	sess := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if sess != nil {
		sess.close()
		m.logger.Printf("[%s] session torn down", id)
	}
}

// teardownIf tears down id only while it still maps to sess.  No-op once
// the session has been replaced or already removed.
func (m *Manager) teardownIf(id string, sess *session) {
	m.mu.Lock()
	if m.sessions[id] != sess {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	sess.close()
	m.logger.Printf("[%s] session torn down", id)
}

// DropClient tears down every session owned by a requester, both
// directions, e.g. when their control channel goes away.
func (m *Manager) DropClient(clientID string) {
	m.Teardown(ConnectionID(clientID, types.DirectionIn))
	m.Teardown(ConnectionID(clientID, types.DirectionOut))
}

// Close tears down all live sessions.  Shutdown path.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for id, sess := range sessions {
		sess.close()
		m.logger.Printf("[%s] session torn down", id)
	}
}

// SessionCount reports the number of live sessions.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// unregister removes id only if it still maps to sess, so a negotiation
// failure never evicts a session created by a newer offer.
func (m *Manager) unregister(id string, sess *session) {
	m.mu.Lock()
	if m.sessions[id] == sess {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
}
