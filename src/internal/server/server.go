package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fortnite-lobbybot-svc/src/clients"
	"fortnite-lobbybot-svc/src/internal/config"
	"fortnite-lobbybot-svc/src/internal/dependency"
	"fortnite-lobbybot-svc/src/internal/models"
	"fortnite-lobbybot-svc/src/internal/vault"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var log = logrus.StandardLogger()

// Server owns the HTTP listener, the sweeper task, and the ordered
// teardown of every collaborator.
type Server struct {
	deps        *dependency.Manager
	httpServer  *http.Server
	stopSweeper context.CancelFunc
}

// New connects every external collaborator and wires the dependency
// graph. Any connection failure is fatal at boot.
func New(cfg *config.Configuration) (*Server, error) {
	mongodb, err := clients.NewMongoDB(&cfg.Database)
	if err != nil {
		return nil, err
	}

	redisClient, err := clients.NewRedisClient(&cfg.Redis)
	if err != nil {
		return nil, err
	}

	rabbitMQ, err := clients.NewRabbitMQ(&cfg.Queue)
	if err != nil {
		return nil, err
	}
	if err := rabbitMQ.SetupExchange(); err != nil {
		return nil, err
	}

	credVault, err := vault.New(cfg.Security.EncryptionKey)
	if err != nil {
		return nil, err
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())

	deps := dependency.NewDependencyManager(router, mongodb, redisClient, rabbitMQ, credVault, cfg)
	SetupRoutes(deps)

	return &Server{deps: deps}, nil
}

// Start reconciles leftover store state, launches the sweeper, and
// serves HTTP until Shutdown.
func (s *Server) Start() error {
	cfg := s.deps.Config

	bootCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.Timeout)*time.Second)
	if _, err := s.deps.SessionRepo.CloseDangling(bootCtx); err != nil {
		log.WithError(err).Warn("Could not reconcile dangling sessions")
	}
	cancel()

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	s.stopSweeper = stopSweeper
	go s.deps.Sweeper.Run(sweepCtx)

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      s.deps.Router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	log.Infof("Server listening on port %s", cfg.Server.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP, stops the sweeper, stops every running bot with
// reason shutdown, and closes the clients in reverse connection order.
func (s *Server) Shutdown(ctx context.Context) {
	log.Info("Shutting down...")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.WithError(err).Error("HTTP server shutdown failed")
		}
	}

	if s.stopSweeper != nil {
		s.stopSweeper()
	}

	stopped := s.deps.Supervisor.StopAll(models.ReasonShutdown)
	log.WithField("stopped", stopped).Info("All bots stopped")

	if err := s.deps.RabbitMQ.Close(); err != nil {
		log.WithError(err).Error("Failed to close RabbitMQ")
	}
	if err := s.deps.Redis.Close(); err != nil {
		log.WithError(err).Error("Failed to close Redis")
	}
	if err := s.deps.Mongodb.Close(ctx); err != nil {
		log.WithError(err).Error("Failed to close MongoDB")
	}

	log.Info("Shutdown complete")
}
