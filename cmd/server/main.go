package main

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"go.uber.org/zap"

	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/auth"
	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/chat"
	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/presence"
	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/server"
	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/storage"
	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/ws"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("zap.NewDevelopment: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()
	sugar.Info("Application is starting")

	cfg := server.EnvConfig{}
	if err := env.Parse(&cfg); err != nil {
		sugar.Fatalf("Cannot parse env config: %v", err)
	}

	storageCfg := storage.Config{}
	if err := env.Parse(&storageCfg); err != nil {
		sugar.Fatalf("Cannot parse storage env config: %v", err)
	}

	store, err := storage.New(sugar, storageCfg, storage.ConnectionTimeout(30*time.Second))
	if err != nil {
		sugar.Fatalf("Cannot create Store instance: %v", err)
	}

	// the presence registry is owned here and injected; the hub binds and
	// unbinds channels in it, the chat service routes notifications through it
	registry := presence.NewRegistry()
	hub := ws.NewHub(sugar, registry)
	messenger := chat.NewService(sugar, store, hub)
	tokens := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)

	serverOpts := []server.Option{
		server.WithEnvConfig(cfg),
		server.ReadTimeout(5 * time.Second),
		server.RegisterAfterShutdown(store.Close),
	}

	srv, err := server.NewServer(sugar, store, messenger, tokens, hub, serverOpts...)
	if err != nil {
		sugar.Fatalf("Cannot create Server instance: %v", err)
	}

	if err := srv.Start(); err != nil {
		sugar.Fatalf("Cannot start http srv: %v", err)
	}
}
