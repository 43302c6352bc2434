package server

import (
	"errors"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/chat"
	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/storage"
)

// listConversations handles HTTP requests on the
// "/api/messages/conversations" endpoint
func (h *handler) listConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	conversations, err := h.chat.ListConversations(r.Context(), selfID(r))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotExist) {
			h.writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		h.internalError(w, err)
		return
	}
	if conversations == nil {
		conversations = []chat.Conversation{}
	}

	h.writeJSON(w, http.StatusOK, conversations)
}

// messagesWithPeer dispatches requests on "/api/messages/{peerId}":
// listing the history with a peer and sending a new message
func (h *handler) messagesWithPeer(w http.ResponseWriter, r *http.Request) {
	peerID, ok := pathID(strings.TrimPrefix(r.URL.Path, "/api/messages/"))
	if !ok {
		h.writeMessage(w, http.StatusBadRequest, "User id must be a valid id greater than zero")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.listMessages(w, r, peerID)
	case http.MethodPost:
		h.sendMessage(w, r, peerID)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (h *handler) listMessages(w http.ResponseWriter, r *http.Request, peerID int64) {
	messages, err := h.chat.ListMessages(r.Context(), selfID(r), peerID)
	if err != nil {
		h.internalError(w, err)
		return
	}
	if messages == nil {
		messages = []storage.Message{}
	}

	h.writeJSON(w, http.StatusOK, messages)
}

func (h *handler) sendMessage(w http.ResponseWriter, r *http.Request, peerID int64) {
	body, _ := ioutil.ReadAll(r.Body)

	parser := h.parsers.sendMessagePool.Get()
	defer h.parsers.sendMessagePool.Put(parser)
	v, err := parser.ParseBytes(body)
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Malformed JSON")
		return
	}

	text := string(v.GetStringBytes("text"))

	message, err := h.chat.Send(r.Context(), selfID(r), peerID, text)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyText):
			h.writeMessage(w, http.StatusBadRequest, "Message cannot be empty")
		case errors.Is(err, storage.ErrUserNotExist):
			h.writeMessage(w, http.StatusNotFound, "User not found")
		default:
			h.internalError(w, err)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, message)
}
