package signaling

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Techsolutions2024/RFID/internal/rtc"
	"github.com/Techsolutions2024/RFID/internal/station/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The station serves its own UI; cross-origin viewers are expected
	// on the LAN.
	CheckOrigin: func(*http.Request) bool { return true },
}

type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func newClient(h *Hub, conn *websocket.Conn) *client {
	return &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// trySend queues a message without blocking.  A full buffer means the
// client is too slow; the message is dropped (best-effort channel).
func (c *client) trySend(msg []byte) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Printf("observer %s read: %v", c.id, err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.hub.logger.Printf("observer %s sent bad frame: %v", c.id, err)
			continue
		}

		switch env.Event {
		case "offer":
			c.handleOffer(env.Data)
		default:
			c.hub.logger.Printf("observer %s sent unknown event %q", c.id, env.Event)
		}
	}
}

func (c *client) handleOffer(data json.RawMessage) {
	var p OfferPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.hub.logger.Printf("observer %s sent bad offer: %v", c.id, err)
		return
	}

	dir, ok := types.ParseDirection(p.Direction)
	if !ok || p.URL == "" {
		c.hub.Error(c.id, "offer requires a direction (IN/OUT) and a source url")
		return
	}

	if c.hub.sessions == nil {
		c.hub.Error(c.id, "session handling unavailable")
		return
	}

	// Each negotiation runs on its own goroutine so one stuck handshake
	// never blocks this client's control channel or other negotiations.
	go func() {
		offer := rtc.Description{Type: p.Type, SDP: p.SDP}
		if err := c.hub.sessions.HandleOffer(context.Background(), c.id, dir, p.URL, offer); err != nil {
			c.hub.logger.Printf("offer from %s for %s failed: %v", c.id, dir, err)
		}
	}()
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
