package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/chat"
	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/presence"
	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/storage"
	mytesting "github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/testing"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func bootstrap(t *testing.T) (*Hub, *presence.Registry, *httptest.Server) {
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	registry := presence.NewRegistry()
	hub := NewHub(logger.Sugar(), registry)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	return hub, registry, srv
}

func dial(t *testing.T, srv *httptest.Server, userID int64) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	if userID != 0 {
		url += "?userId=" + strconv.FormatInt(userID, 10)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func waitBound(t *testing.T, registry *presence.Registry, userID int64) {
	require.Eventually(t, func() bool {
		_, ok := registry.Lookup(userID)
		return ok
	}, waitFor, tick)
}

type pushedEvent struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

func readEvent(t *testing.T, conn *websocket.Conn) pushedEvent {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev pushedEvent
	require.NoError(t, json.Unmarshal(raw, &ev))

	return ev
}

func readMessageText(t *testing.T, conn *websocket.Conn) string {
	ev := readEvent(t, conn)
	require.Equal(t, "newMessage", ev.Type)

	var msg struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(ev.Message, &msg))

	return msg.Text
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestConnectBindsIdentity(t *testing.T) {
	t.Parallel()

	_, registry, srv := bootstrap(t)

	dial(t, srv, 2)
	waitBound(t, registry, 2)
}

func TestConnectRejectsMalformedIdentity(t *testing.T) {
	t.Parallel()

	_, _, srv := bootstrap(t)

	resp, err := http.Get(srv.URL + "?userId=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNewMessagePush(t *testing.T) {
	t.Parallel()

	hub, registry, srv := bootstrap(t)

	conn := dial(t, srv, 2)
	waitBound(t, registry, 2)

	err := hub.NewMessage(2, storage.Message{
		ID:        7,
		Sender:    storage.UserRef{ID: 1, Name: "alice"},
		Receiver:  storage.UserRef{ID: 2, Name: "bob"},
		Text:      "hi",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	require.Equal(t, "hi", readMessageText(t, conn))
}

func TestNewMessageNoBinding(t *testing.T) {
	t.Parallel()

	hub, registry, srv := bootstrap(t)

	// some unrelated user is online and must observe nothing
	observer := dial(t, srv, 3)
	waitBound(t, registry, 3)

	err := hub.NewMessage(2, storage.Message{ID: 1, Text: "hi"})
	require.NoError(t, err)

	expectSilence(t, observer)
}

func TestDisconnectUnbinds(t *testing.T) {
	t.Parallel()

	_, registry, srv := bootstrap(t)

	conn := dial(t, srv, 2)
	waitBound(t, registry, 2)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		_, ok := registry.Lookup(2)
		return !ok
	}, waitFor, tick)
}

func TestRebindLastConnectWins(t *testing.T) {
	t.Parallel()

	hub, registry, srv := bootstrap(t)

	first := dial(t, srv, 2)
	waitBound(t, registry, 2)
	firstCh, _ := registry.Lookup(2)

	second := dial(t, srv, 2)
	require.Eventually(t, func() bool {
		ch, ok := registry.Lookup(2)
		return ok && ch != firstCh
	}, waitFor, tick)

	require.NoError(t, hub.NewMessage(2, storage.Message{ID: 1, Text: "hi"}))

	require.Equal(t, "hi", readMessageText(t, second))
	expectSilence(t, first)
}

func TestSendMessageHintRelay(t *testing.T) {
	t.Parallel()

	_, registry, srv := bootstrap(t)

	sender := dial(t, srv, 1)
	receiver := dial(t, srv, 2)
	waitBound(t, registry, 1)
	waitBound(t, registry, 2)

	hint := map[string]interface{}{
		"type":       "sendMessage",
		"receiverId": 2,
		"message":    map[string]string{"text": "yo"},
	}
	require.NoError(t, sender.WriteJSON(hint))

	require.Equal(t, "yo", readMessageText(t, receiver))
}

func TestMalformedEventKeepsChannelAlive(t *testing.T) {
	t.Parallel()

	_, registry, srv := bootstrap(t)

	sender := dial(t, srv, 1)
	receiver := dial(t, srv, 2)
	waitBound(t, registry, 1)
	waitBound(t, registry, 2)

	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte("{not json")))

	hint := map[string]interface{}{
		"type":       "sendMessage",
		"receiverId": 2,
		"message":    map[string]string{"text": "still here"},
	}
	require.NoError(t, sender.WriteJSON(hint))

	require.Equal(t, "still here", readMessageText(t, receiver))
}

func TestDeliveryEndToEnd(t *testing.T) {
	t.Parallel()

	hub, registry, srv := bootstrap(t)

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	store := mytesting.NewMemStore(
		storage.UserRef{ID: 1, Name: "alice"},
		storage.UserRef{ID: 2, Name: "bob"},
	)
	messenger := chat.NewService(logger.Sugar(), store, hub)

	receiver := dial(t, srv, 2)
	waitBound(t, registry, 2)

	ctx := context.Background()
	_, err = messenger.Send(ctx, 1, 2, "hi")
	require.NoError(t, err)

	require.Equal(t, "hi", readMessageText(t, receiver))

	messages, err := messenger.ListMessages(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, int64(1), messages[0].Sender.ID)
	require.Equal(t, int64(2), messages[0].Receiver.ID)
	require.Equal(t, "hi", messages[0].Text)

	conversations, err := messenger.ListConversations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	require.Equal(t, int64(1), conversations[0].User.ID)
	require.Equal(t, "hi", conversations[0].LastMessage)
}

func TestDeliveryEndToEndReceiverOffline(t *testing.T) {
	t.Parallel()

	hub, registry, srv := bootstrap(t)

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	store := mytesting.NewMemStore(
		storage.UserRef{ID: 1, Name: "alice"},
		storage.UserRef{ID: 2, Name: "bob"},
		storage.UserRef{ID: 3, Name: "carol"},
	)
	messenger := chat.NewService(logger.Sugar(), store, hub)

	// receiver is offline, an unrelated user is online
	observer := dial(t, srv, 3)
	waitBound(t, registry, 3)

	ctx := context.Background()
	_, err = messenger.Send(ctx, 1, 2, "hi")
	require.NoError(t, err)

	expectSilence(t, observer)

	messages, err := messenger.ListMessages(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "hi", messages[0].Text)
}
