package ws

import (
	"encoding/json"
	"time"

	"bidwhist/internal/ports/wire"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// client is one websocket connection acting for a controller. send and
// closed are guarded by the owning table's mu.
type client struct {
	id     string
	name   string
	conn   *websocket.Conn
	send   chan []byte
	closed bool
}

func newClient(id, name string, conn *websocket.Conn) *client {
	return &client{id: id, name: name, conn: conn, send: make(chan []byte, sendBuffer)}
}

// enqueue queues a frame without blocking the table. A client that falls a
// full buffer behind loses frames and has to ask for a snapshot.
func (c *client) enqueue(frame []byte) {
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

func (c *client) close() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump feeds inbound frames to the table until the connection drops.
func (c *client) readPump(t *Table) {
	defer func() {
		t.leave(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.log.WithField("controller", c.id).Warnf("read error: %v", err)
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.reject(c, wire.ErrMalformed)
			continue
		}
		t.handle(c, env)
	}
}

// writePump drains send onto the connection and keeps it alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
