package server

import (
	"errors"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/storage"
)

// listUsers handles HTTP requests on the "/api/users" endpoint
func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	users, err := h.users.Users(r.Context(), selfID(r))
	if err != nil {
		h.internalError(w, err)
		return
	}
	if users == nil {
		users = []storage.User{}
	}

	h.writeJSON(w, http.StatusOK, users)
}

// userSubroutes dispatches requests below "/api/users/": profile lookup,
// follow/unfollow and profile picture upload
func (h *handler) userSubroutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/users/")

	switch {
	case path == "upload-pic":
		h.uploadPic(w, r)
	case strings.HasPrefix(path, "follow/"):
		h.follow(w, r, strings.TrimPrefix(path, "follow/"))
	case strings.HasPrefix(path, "unfollow/"):
		h.unfollow(w, r, strings.TrimPrefix(path, "unfollow/"))
	default:
		h.userByID(w, r, path)
	}
}

func (h *handler) userByID(w http.ResponseWriter, r *http.Request, segment string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	id, ok := pathID(segment)
	if !ok {
		h.writeMessage(w, http.StatusBadRequest, "User id must be a valid id greater than zero")
		return
	}

	user, err := h.users.UserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotExist) {
			h.writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, user)
}

func (h *handler) follow(w http.ResponseWriter, r *http.Request, segment string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	targetID, ok := pathID(segment)
	if !ok {
		h.writeMessage(w, http.StatusBadRequest, "User id must be a valid id greater than zero")
		return
	}

	if targetID == selfID(r) {
		h.writeMessage(w, http.StatusBadRequest, "Can't follow yourself")
		return
	}

	err := h.users.Follow(r.Context(), selfID(r), targetID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyFollowing):
			h.writeMessage(w, http.StatusBadRequest, "Already following")
		case errors.Is(err, storage.ErrUserNotExist):
			h.writeMessage(w, http.StatusNotFound, "User not found")
		default:
			h.internalError(w, err)
		}
		return
	}

	h.writeMessage(w, http.StatusOK, "Followed")
}

func (h *handler) unfollow(w http.ResponseWriter, r *http.Request, segment string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	targetID, ok := pathID(segment)
	if !ok {
		h.writeMessage(w, http.StatusBadRequest, "User id must be a valid id greater than zero")
		return
	}

	err := h.users.Unfollow(r.Context(), selfID(r), targetID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotExist) {
			h.writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		h.internalError(w, err)
		return
	}

	h.writeMessage(w, http.StatusOK, "Unfollowed")
}

func (h *handler) uploadPic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	body, _ := ioutil.ReadAll(r.Body)

	parser := h.parsers.uploadPicPool.Get()
	defer h.parsers.uploadPicPool.Put(parser)
	v, err := parser.ParseBytes(body)
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Malformed JSON")
		return
	}

	data := string(v.GetStringBytes("imageBase64"))
	if len(data) == 0 {
		h.writeMessage(w, http.StatusBadRequest, "No image data")
		return
	}

	user, err := h.users.SetProfilePic(r.Context(), selfID(r), data)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotExist) {
			h.writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, user)
}
