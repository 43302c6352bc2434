// Package ws accepts real-time channel connections, binds them to user
// identities in the presence registry and relays new-message events to the
// bound channel of a message's receiver.
package ws

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/presence"
	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/storage"
)

// Hub upgrades inbound connections and routes push events through the
// presence registry. It implements chat.Notifier.
type Hub struct {
	logger   *zap.SugaredLogger
	registry *presence.Registry
	upgrader websocket.Upgrader
}

func NewHub(logger *zap.SugaredLogger, registry *presence.Registry) *Hub {
	return &Hub{
		logger:   logger,
		registry: registry,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// event is the envelope pushed on a bound channel
type event struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

// NewMessage pushes a persisted message to the receiver's channel. A
// receiver without a bound channel is not an error: the notification is
// dropped and the receiver reads the message from the durable store.
func (h *Hub) NewMessage(receiverID int64, msg storage.Message) error {
	ch, ok := h.registry.Lookup(receiverID)
	if !ok {
		return nil
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(event{Type: "newMessage", Message: raw})
	if err != nil {
		return err
	}

	return ch.Push(payload)
}

// ServeHTTP upgrades the connection to a WebSocket. The client supplies its
// identity as a userId query parameter; when present the connection is
// bound in the registry, otherwise it stays connected but unbound.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var userID int64
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			http.Error(w, "Query parameter \"userId\" must be a valid user id greater than zero", http.StatusBadRequest)
			return
		}
		userID = id
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("websocket upgrade: %v", err)
		return
	}

	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		userID: userID,
	}

	if userID != 0 {
		h.registry.Bind(userID, c)
		h.logger.Debugf("bound channel for user (id: %d)", userID)
	}

	go c.writePump()
	c.readPump()
}
