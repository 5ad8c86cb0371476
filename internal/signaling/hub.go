package signaling

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/Techsolutions2024/RFID/internal/rtc"
	"github.com/Techsolutions2024/RFID/internal/station/types"
)

// SessionHandler receives offers and client disconnects from the hub.
type SessionHandler interface {
	HandleOffer(ctx context.Context, clientID string, direction types.Direction, sourceURL string, offer rtc.Description) error
	DropClient(clientID string)
}

// Hub fans events out to every connected WebSocket observer, and routes
// requester-scoped events (answers, negotiation errors) to a single
// client.  Delivery is best-effort: a client that cannot keep up has its
// connection dropped rather than blocking the broadcast.
type Hub struct {
	logger *log.Logger

	mu       sync.Mutex
	clients  map[string]*client
	sessions SessionHandler
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]*client),
	}
}

// AttachSessions wires the session handler.  Must be called before the
// hub serves its first connection.
func (h *Hub) AttachSessions(s SessionHandler) {
	h.sessions = s
}

// ServeWS upgrades an HTTP request into a hub connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade: %v", err)
		return
	}

	c := newClient(h, conn)

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.Printf("observer connected: %s", c.id)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if h.clients[c.id] != c {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	h.mu.Unlock()

	close(c.send)
	h.logger.Printf("observer disconnected: %s", c.id)

	if h.sessions != nil {
		h.sessions.DropClient(c.id)
	}
}

func (h *Hub) broadcast(event string, data any) {
	msg, err := marshalEvent(event, data)
	if err != nil {
		h.logger.Printf("marshal %s event: %v", event, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		c.trySend(msg)
	}
}

func (h *Hub) sendTo(clientID, event string, data any) {
	msg, err := marshalEvent(event, data)
	if err != nil {
		h.logger.Printf("marshal %s event: %v", event, err)
		return
	}

	// Deliver under the lock, like broadcast: remove closes the send
	// channel right after dropping the client from the map, so a send
	// outside the lock could race that close.  trySend never blocks.
	h.mu.Lock()
	defer h.mu.Unlock()
	if c := h.clients[clientID]; c != nil {
		c.trySend(msg)
	}
}

// service.Notifier implementation.

func (h *Hub) ConnectionStatus(status, message string) {
	h.broadcast("connectionStatus", ConnectionStatusPayload{Status: status, Message: message})
}

func (h *Hub) Log(message string) {
	h.broadcast("log", LogPayload{Message: message})
}

func (h *Hub) AccessGranted(uid string, direction types.Direction) {
	h.broadcast("accessGranted", AccessPayload{UID: uid, Direction: string(direction)})
}

func (h *Hub) AccessDenied(uid string, direction types.Direction) {
	h.broadcast("accessDenied", AccessPayload{UID: uid, Direction: string(direction)})
}

func (h *Hub) LogsUpdated(entries []types.AccessLogEntry) {
	h.broadcast("logsUpdated", entries)
}

func (h *Hub) CardsUpdated(cards []types.AuthorizedCard) {
	h.broadcast("cardsUpdated", cards)
}

// rtc.Signaler implementation: requester-scoped delivery.

func (h *Hub) Answer(clientID string, direction types.Direction, desc rtc.Description) {
	h.sendTo(clientID, "answer", AnswerPayload{
		Direction: string(direction),
		SDP:       desc.SDP,
		Type:      desc.Type,
	})
}

func (h *Hub) Error(clientID, message string) {
	h.sendTo(clientID, "error", ErrorPayload{Message: message})
}
