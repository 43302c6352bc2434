package ws

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// client is one channel: a websocket connection with a buffered outbound
// queue. Its lifecycle is connect, optional bind, teardown on disconnect.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	userID int64
}

// Push queues a payload for delivery. Delivery is at-most-once: a closed
// channel or a full buffer drops the payload and reports the failure.
func (c *client) Push(payload []byte) error {
	select {
	case <-c.done:
		return errors.New("channel closed")
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

func (c *client) readPump() {
	defer func() {
		if c.userID != 0 {
			// guarded: a stale teardown must not evict a newer binding
			c.hub.registry.UnbindChannel(c.userID, c)
			c.hub.logger.Debugf("unbound channel for user (id: %d)", c.userID)
		}
		close(c.done)
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
			return
		}
		c.handle(raw)
	}
}

// handle processes one inbound client event. The only supported event is
// sendMessage: an optimistic-UI hint relayed to the receiver's channel if
// bound. Nothing is persisted here, the authoritative path is the REST
// send.
func (c *client) handle(raw []byte) {
	var env struct {
		Type       string          `json:"type"`
		ReceiverID int64           `json:"receiverId"`
		Message    json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		c.hub.logger.Debugf("discarding malformed channel event: %v", err)
		return
	}

	if env.Type != "sendMessage" || env.ReceiverID < 1 || len(env.Message) == 0 {
		return
	}

	ch, ok := c.hub.registry.Lookup(env.ReceiverID)
	if !ok {
		return
	}

	payload, err := json.Marshal(event{Type: "newMessage", Message: env.Message})
	if err != nil {
		return
	}
	if err := ch.Push(payload); err != nil {
		c.hub.logger.Debugf("relay hint for user (id: %d) dropped: %v", env.ReceiverID, err)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
