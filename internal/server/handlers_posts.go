package server

import (
	"errors"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/storage"
)

// posts handles HTTP requests on the "/api/posts" endpoint
func (h *handler) postsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listPosts(w, r)
	case http.MethodPost:
		h.createPost(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (h *handler) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.Posts(r.Context())
	if err != nil {
		h.internalError(w, err)
		return
	}
	if posts == nil {
		posts = []storage.Post{}
	}

	h.writeJSON(w, http.StatusOK, posts)
}

func (h *handler) createPost(w http.ResponseWriter, r *http.Request) {
	body, _ := ioutil.ReadAll(r.Body)

	parser := h.parsers.createPostPool.Get()
	defer h.parsers.createPostPool.Put(parser)
	v, err := parser.ParseBytes(body)
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Malformed JSON")
		return
	}

	text := strings.TrimSpace(string(v.GetStringBytes("text")))
	if len(text) == 0 {
		h.writeMessage(w, http.StatusBadRequest, "Field \"text\" must be a non-empty string")
		return
	}

	post, err := h.posts.CreatePost(r.Context(), selfID(r), text)
	if err != nil {
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, post)
}

// postSubroutes dispatches requests below "/api/posts/": like toggling,
// comments and post deletion
func (h *handler) postSubroutes(w http.ResponseWriter, r *http.Request) {
	segments := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/posts/"), "/")

	postID, ok := pathID(segments[0])
	if !ok {
		h.writeMessage(w, http.StatusBadRequest, "Post id must be a valid id greater than zero")
		return
	}

	switch {
	case len(segments) == 1:
		h.deletePost(w, r, postID)
	case len(segments) == 2 && segments[1] == "like":
		h.toggleLike(w, r, postID)
	case len(segments) == 2 && segments[1] == "comment":
		h.addComment(w, r, postID)
	case len(segments) == 3 && segments[1] == "comment":
		h.deleteComment(w, r, postID, segments[2])
	default:
		http.NotFound(w, r)
	}
}

func (h *handler) deletePost(w http.ResponseWriter, r *http.Request, postID int64) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, "DELETE")
		return
	}

	err := h.posts.DeletePost(r.Context(), postID, selfID(r))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrPostNotExist):
			h.writeMessage(w, http.StatusNotFound, "Post not found")
		case errors.Is(err, storage.ErrNotPostAuthor):
			h.writeMessage(w, http.StatusUnauthorized, "Not authorized")
		default:
			h.internalError(w, err)
		}
		return
	}

	h.writeMessage(w, http.StatusOK, "Post deleted successfully")
}

func (h *handler) toggleLike(w http.ResponseWriter, r *http.Request, postID int64) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, "PUT")
		return
	}

	post, err := h.posts.ToggleLike(r.Context(), postID, selfID(r))
	if err != nil {
		if errors.Is(err, storage.ErrPostNotExist) {
			h.writeMessage(w, http.StatusNotFound, "Post not found")
			return
		}
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, post)
}

func (h *handler) addComment(w http.ResponseWriter, r *http.Request, postID int64) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	body, _ := ioutil.ReadAll(r.Body)

	parser := h.parsers.commentPool.Get()
	defer h.parsers.commentPool.Put(parser)
	v, err := parser.ParseBytes(body)
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Malformed JSON")
		return
	}

	text := strings.TrimSpace(string(v.GetStringBytes("text")))
	if len(text) == 0 {
		h.writeMessage(w, http.StatusBadRequest, "Field \"text\" must be a non-empty string")
		return
	}

	post, err := h.posts.AddComment(r.Context(), postID, selfID(r), text)
	if err != nil {
		if errors.Is(err, storage.ErrPostNotExist) {
			h.writeMessage(w, http.StatusNotFound, "Post not found")
			return
		}
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, post)
}

func (h *handler) deleteComment(w http.ResponseWriter, r *http.Request, postID int64, segment string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, "DELETE")
		return
	}

	commentID, ok := pathID(segment)
	if !ok {
		h.writeMessage(w, http.StatusBadRequest, "Comment id must be a valid id greater than zero")
		return
	}

	post, err := h.posts.DeleteComment(r.Context(), postID, commentID, selfID(r))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrCommentNotExist):
			h.writeMessage(w, http.StatusNotFound, "Comment not found")
		case errors.Is(err, storage.ErrNotCommentAuthor):
			h.writeMessage(w, http.StatusUnauthorized, "Not authorized")
		default:
			h.internalError(w, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, post)
}
