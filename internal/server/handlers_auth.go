package server

import (
	"errors"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/auth"
	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/storage"
)

type authResponse struct {
	Token string       `json:"token"`
	User  storage.User `json:"user"`
}

// register handles HTTP requests on the "/api/auth/register" endpoint
func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	body, _ := ioutil.ReadAll(r.Body)

	parser := h.parsers.registerPool.Get()
	defer h.parsers.registerPool.Put(parser)
	v, err := parser.ParseBytes(body)
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Malformed JSON")
		return
	}

	name := strings.TrimSpace(string(v.GetStringBytes("name")))
	email := strings.TrimSpace(string(v.GetStringBytes("email")))
	password := string(v.GetStringBytes("password"))

	if len(name) == 0 || len(email) == 0 || len(password) == 0 {
		h.writeMessage(w, http.StatusBadRequest, "Fields \"name\", \"email\" and \"password\" must be non-empty strings")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		h.internalError(w, err)
		return
	}

	id, err := h.users.CreateUser(r.Context(), name, email, hash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			h.writeMessage(w, http.StatusBadRequest, "User already exists")
			return
		}
		h.internalError(w, err)
		return
	}

	token, err := h.tokens.IssueToken(id)
	if err != nil {
		h.internalError(w, err)
		return
	}

	user, err := h.users.UserByID(r.Context(), id)
	if err != nil {
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// login handles HTTP requests on the "/api/auth/login" endpoint
func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	body, _ := ioutil.ReadAll(r.Body)

	parser := h.parsers.loginPool.Get()
	defer h.parsers.loginPool.Put(parser)
	v, err := parser.ParseBytes(body)
	if err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Malformed JSON")
		return
	}

	email := strings.TrimSpace(string(v.GetStringBytes("email")))
	password := string(v.GetStringBytes("password"))

	user, hash, err := h.users.UserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotExist) {
			h.writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.internalError(w, err)
		return
	}

	if !auth.CheckPassword(hash, password) {
		h.writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.tokens.IssueToken(user.ID)
	if err != nil {
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}
