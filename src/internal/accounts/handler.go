package accounts

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fortnite-lobbybot-svc/src/internal/cache"
	"fortnite-lobbybot-svc/src/internal/config"
	"fortnite-lobbybot-svc/src/internal/middleware"
	"fortnite-lobbybot-svc/src/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Counter reports live-session usage; the supervisor implements it.
type Counter interface {
	ActiveCounts(ownerID string) (owner int, global int)
}

type Handler interface {
	RegisterAccount(c *gin.Context)
	RemoveAccount(c *gin.Context)
	ListAccounts(c *gin.Context)
	GetOverview(c *gin.Context)
}

type handler struct {
	config       *config.Configuration
	service      Service
	repository   Repository
	counter      Counter
	cacheService cache.Service
}

func NewHandler(cfg *config.Configuration, service Service, repository Repository, counter Counter, cacheService cache.Service) Handler {
	return &handler{
		config:       cfg,
		service:      service,
		repository:   repository,
		counter:      counter,
		cacheService: cacheService,
	}
}

func (h *handler) RegisterAccount(c *gin.Context) {
	ctx, cancel := h.requestCtx(c)
	defer cancel()

	ownerID := middleware.OwnerID(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid account payload",
			"message": err.Error(),
		})
		return
	}

	account, err := h.service.Register(ctx, ownerID, &req)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateAccount) {
			c.JSON(http.StatusConflict, gin.H{"error": "Account already registered"})
			return
		}
		if errors.Is(err, models.ErrAccountLimitExceeded) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Maximum registered accounts reached"})
			return
		}
		logrus.WithError(err).Error("Failed to register account")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to register account",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    account,
		"message": "Account registered successfully",
	})
}

func (h *handler) RemoveAccount(c *gin.Context) {
	ctx, cancel := h.requestCtx(c)
	defer cancel()

	ownerID := middleware.OwnerID(c)
	username := c.Param("username")

	if err := h.service.Remove(ctx, ownerID, username); err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
			return
		}
		logrus.WithError(err).Error("Failed to remove account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Account removed successfully",
	})
}

func (h *handler) ListAccounts(c *gin.Context) {
	ctx, cancel := h.requestCtx(c)
	defer cancel()

	ownerID := middleware.OwnerID(c)

	accountList, err := h.service.List(ctx, ownerID)
	if err != nil {
		logrus.WithError(err).Error("Failed to list accounts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve accounts"})
		return
	}

	ownerActive, _ := h.counter.ActiveCounts(ownerID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"accounts": accountList,
			"stats": models.OwnerStats{
				ActiveSessions: ownerActive,
				PerUserCap:     h.config.Session.MaxConcurrentPerUser,
				AccountCount:   len(accountList),
				AccountCap:     h.config.Session.MaxAccountsPerUser,
			},
		},
	})
}

// GetOverview reports global capacity usage, served from the cache when
// fresh enough.
func (h *handler) GetOverview(c *gin.Context) {
	ctx, cancel := h.requestCtx(c)
	defer cancel()

	if h.cacheService != nil {
		if cached, err := h.cacheService.GetOverview(ctx); err == nil && cached != nil {
			c.JSON(http.StatusOK, gin.H{"success": true, "data": cached, "cached": true})
			return
		}
	}

	total, err := h.repository.CountAll(ctx)
	if err != nil {
		total = 0
	}

	_, globalActive := h.counter.ActiveCounts("")
	overview := &models.Overview{
		ActiveGlobal:   int64(globalActive),
		GlobalCapacity: int64(h.config.Session.MaxConcurrentGlobal),
		TotalAccounts:  total,
	}

	if h.cacheService != nil {
		if err := h.cacheService.SaveOverview(ctx, overview); err != nil {
			logrus.WithError(err).Debug("Overview stats not cached")
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": overview})
}

func (h *handler) requestCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}
