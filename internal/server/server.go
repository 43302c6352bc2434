package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/auth"
	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/chat"
	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/storage"
)

// Server defines fields used in HTTP processing
type Server struct {
	logger        *zap.SugaredLogger
	httpServer    *http.Server
	afterShutdown []func()
}

// NewServer wires the HTTP surface: REST handlers for auth, users, posts
// and messages plus the real-time channel endpoint served by hub
func NewServer(logger *zap.SugaredLogger, store *storage.Store, messenger *chat.Service, tokens *auth.Manager, hub http.Handler, opts ...Option) (*Server, error) {
	h := handler{
		logger: logger,
		users:  store,
		posts:  store,
		chat:   messenger,
		tokens: tokens,
		parsers: parsers{
			registerPool:    fastjson.ParserPool{},
			loginPool:       fastjson.ParserPool{},
			createPostPool:  fastjson.ParserPool{},
			commentPool:     fastjson.ParserPool{},
			sendMessagePool: fastjson.ParserPool{},
			uploadPicPool:   fastjson.ParserPool{},
		},
	}

	c := &config{
		httpServer: &http.Server{Addr: "0.0.0.0:9000"},
		handlers: map[string]http.Handler{
			"/api/auth/register":          http.HandlerFunc(h.register),
			"/api/auth/login":             http.HandlerFunc(h.login),
			"/api/users":                  h.requireAuth(h.listUsers),
			"/api/users/":                 h.requireAuth(h.userSubroutes),
			"/api/posts":                  h.requireAuth(h.postsCollection),
			"/api/posts/":                 h.requireAuth(h.postSubroutes),
			"/api/messages/conversations": h.requireAuth(h.listConversations),
			"/api/messages/":              h.requireAuth(h.messagesWithPeer),
			"/ws":                         hub,
		},
	}

	opts = append(opts, applyLog(logger.Desugar()), registerHandlers())
	for _, opt := range opts {
		opt.apply(c)
	}

	return &Server{
		logger:        logger,
		httpServer:    c.httpServer,
		afterShutdown: c.afterShutdown,
	}, nil
}

// Start calls ListenAndServe on http.Server instance inside Server struct
// and implements graceful shutdown via goroutine waiting for signals
func (s *Server) Start() error {
	idleConnsClosed := make(chan struct{})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		s.logger.Info("Shutting down HTTP server")

		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			s.logger.Errorf("srv.Shutdown: %v", err)
		}
		s.logger.Info("HTTP server is stopped")

		close(idleConnsClosed)
	}()

	s.logger.Infof("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("s.httpServer.ListenAndServe: %v", err)
	}

	<-idleConnsClosed

	for _, f := range s.afterShutdown {
		f()
	}

	return nil
}
