package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fortnite-lobbybot-svc/src/internal/config"
	"fortnite-lobbybot-svc/src/internal/logger"
	"fortnite-lobbybot-svc/src/internal/server"

	"github.com/sirupsen/logrus"
)

var log = logrus.StandardLogger()

func main() {
	cfg := config.Load()
	logger.Init(cfg)

	log.Infof("Application %s is starting....", cfg.App.Name)

	srv, err := server.New(cfg)
	if err != nil {
		log.WithError(err).Fatalf("Error initializing server: %v", err)
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.WithError(err).Fatalf("Error starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	deadline := time.Duration(cfg.Session.ShutdownTimeoutSeconds+10) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	srv.Shutdown(ctx)
}
