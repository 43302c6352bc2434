package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/auth"
	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/chat"
	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/storage"
)

// TODO limit reading from body

// UserStore is the subset of the storage layer the user handlers depend on
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (int64, error)
	UserByEmail(ctx context.Context, email string) (storage.User, string, error)
	UserByID(ctx context.Context, id int64) (storage.User, error)
	Users(ctx context.Context, excludeID int64) ([]storage.User, error)
	Follow(ctx context.Context, followerID, targetID int64) error
	Unfollow(ctx context.Context, followerID, targetID int64) error
	SetProfilePic(ctx context.Context, userID int64, data string) (storage.User, error)
}

// PostStore is the subset of the storage layer the post handlers depend on
type PostStore interface {
	CreatePost(ctx context.Context, authorID int64, text string) (storage.Post, error)
	Posts(ctx context.Context) ([]storage.Post, error)
	ToggleLike(ctx context.Context, postID, userID int64) (storage.Post, error)
	AddComment(ctx context.Context, postID, authorID int64, text string) (storage.Post, error)
	DeleteComment(ctx context.Context, postID, commentID, callerID int64) (storage.Post, error)
	DeletePost(ctx context.Context, postID, callerID int64) error
}

// Messenger is the direct-message service surface the message handlers use
type Messenger interface {
	Send(ctx context.Context, senderID, receiverID int64, text string) (storage.Message, error)
	ListMessages(ctx context.Context, selfID, otherID int64) ([]storage.Message, error)
	ListConversations(ctx context.Context, selfID int64) ([]chat.Conversation, error)
}

type parsers struct {
	registerPool    fastjson.ParserPool
	loginPool       fastjson.ParserPool
	createPostPool  fastjson.ParserPool
	commentPool     fastjson.ParserPool
	sendMessagePool fastjson.ParserPool
	uploadPicPool   fastjson.ParserPool
}

type handler struct {
	logger  *zap.SugaredLogger
	users   UserStore
	posts   PostStore
	chat    Messenger
	tokens  *auth.Manager
	parsers parsers
}

type ctxKey string

const userIDKey ctxKey = "userID"

// selfID returns the authenticated user id placed in the request context by
// the auth middleware
func selfID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

// writeJSON marshals v and writes it with the provided status code
func (h *handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		h.logger.Errorf("writing marshaled data to ResponseWriter: %v", err)
	}
}

// writeMessage writes the uniform {"message": ...} body used for errors and
// status responses
func (h *handler) writeMessage(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"message": msg})
}

// internalError logs err and converts it to the uniform server error body
func (h *handler) internalError(w http.ResponseWriter, err error) {
	h.logger.Error(err)
	h.writeMessage(w, http.StatusInternalServerError, "Server error")
}

// pathID parses a single positive integer path segment
func pathID(segment string) (int64, bool) {
	id, err := strconv.ParseInt(segment, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
