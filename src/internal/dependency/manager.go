package dependency

import (
	"fortnite-lobbybot-svc/src/clients"
	"fortnite-lobbybot-svc/src/internal/accounts"
	"fortnite-lobbybot-svc/src/internal/adapter"
	"fortnite-lobbybot-svc/src/internal/bots"
	"fortnite-lobbybot-svc/src/internal/cache"
	"fortnite-lobbybot-svc/src/internal/config"
	"fortnite-lobbybot-svc/src/internal/notify"
	"fortnite-lobbybot-svc/src/internal/registry"
	"fortnite-lobbybot-svc/src/internal/session"
	"fortnite-lobbybot-svc/src/internal/supervisor"
	"fortnite-lobbybot-svc/src/internal/sweeper"
	"fortnite-lobbybot-svc/src/internal/vault"

	"github.com/gin-gonic/gin"
)

type Manager struct {
	Router          *gin.Engine
	Config          *config.Configuration
	Mongodb         *clients.MongoDB
	Redis           *clients.RedisClient
	RabbitMQ        *clients.RabbitMQ
	Registry        *registry.Registry
	Supervisor      *supervisor.Supervisor
	Sweeper         *sweeper.Sweeper
	SessionRepo     session.Repository
	AccountRepo     accounts.Repository
	AccountService  accounts.Service
	AccountHandler  accounts.Handler
	BotHandler      bots.Handler
	CacheService    cache.Service
	Notifier        notify.Publisher
	Vault           vault.Service
}

func NewDependencyManager(router *gin.Engine,
	mongodb *clients.MongoDB,
	redisClient *clients.RedisClient,
	rabbitMQ *clients.RabbitMQ,
	credVault vault.Service,
	cfg *config.Configuration) *Manager {
	cacheService := cache.NewCacheService(redisClient.Client, cfg)
	sessionRepo := session.NewSessionRepository(mongodb, cfg.Database.SessionCollection)
	accountRepo := accounts.NewAccountRepository(mongodb, cfg.Database.AccountCollection)
	notifier := notify.NewPublisher(rabbitMQ.Channel, cfg)

	reg := registry.New(registry.Limits{
		PerUser: cfg.Session.MaxConcurrentPerUser,
		Global:  cfg.Session.MaxConcurrentGlobal,
	})
	adapters := adapter.NewGatewayFactory(&cfg.Gateway)
	sup := supervisor.New(cfg, reg, accountRepo, sessionRepo, credVault, adapters, notifier, cacheService)
	swp := sweeper.New(&cfg.Session, sup, notifier)

	accountService := accounts.NewAccountService(accountRepo, credVault, cfg)
	accountHandler := accounts.NewHandler(cfg, accountService, accountRepo, sup, cacheService)
	botHandler := bots.NewHandler(cfg, sup, accountRepo)

	return &Manager{
		Router:         router,
		Config:         cfg,
		Mongodb:        mongodb,
		Redis:          redisClient,
		RabbitMQ:       rabbitMQ,
		Registry:       reg,
		Supervisor:     sup,
		Sweeper:        swp,
		SessionRepo:    sessionRepo,
		AccountRepo:    accountRepo,
		AccountService: accountService,
		AccountHandler: accountHandler,
		BotHandler:     botHandler,
		CacheService:   cacheService,
		Notifier:       notifier,
		Vault:          credVault,
	}
}
