package bots

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fortnite-lobbybot-svc/src/internal/accounts"
	"fortnite-lobbybot-svc/src/internal/config"
	"fortnite-lobbybot-svc/src/internal/middleware"
	"fortnite-lobbybot-svc/src/internal/models"
	"fortnite-lobbybot-svc/src/internal/supervisor"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	StartBot(c *gin.Context)
	StopBot(c *gin.Context)
	StopAllBots(c *gin.Context)
	ExtendSession(c *gin.Context)
	RecordActivity(c *gin.Context)
	ApplyCosmetics(c *gin.Context)
	GetBotStatus(c *gin.Context)
	ListBots(c *gin.Context)
}

type handler struct {
	config     *config.Configuration
	supervisor *supervisor.Supervisor
	accounts   accounts.Repository
}

func NewHandler(cfg *config.Configuration, sup *supervisor.Supervisor, accountRepo accounts.Repository) Handler {
	return &handler{
		config:     cfg,
		supervisor: sup,
		accounts:   accountRepo,
	}
}

func (h *handler) StartBot(c *gin.Context) {
	ctx, cancel := h.requestCtx(c)
	defer cancel()

	ownerID := middleware.OwnerID(c)
	username := c.Param("username")

	logrus.WithFields(logrus.Fields{
		"owner_id":      ownerID,
		"epic_username": username,
	}).Info("StartBot request received")

	sess, err := h.supervisor.Start(ctx, ownerID, username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    statusView(sess, time.Now()),
		"message": "Bot started successfully",
	})
}

func (h *handler) StopBot(c *gin.Context) {
	ctx, cancel := h.requestCtx(c)
	defer cancel()

	ownerID := middleware.OwnerID(c)
	username := c.Param("username")

	account, err := h.accounts.GetByUsername(ctx, ownerID, username)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.supervisor.Stop(ctx, account.AccountID, models.ReasonManual); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Bot stopped successfully",
	})
}

func (h *handler) StopAllBots(c *gin.Context) {
	ctx, cancel := h.requestCtx(c)
	defer cancel()

	ownerID := middleware.OwnerID(c)
	stopped := h.supervisor.StopAllForOwner(ctx, ownerID, models.ReasonManual)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"stopped": stopped},
		"message": "Bots stopped",
	})
}

func (h *handler) ExtendSession(c *gin.Context) {
	ctx, cancel := h.requestCtx(c)
	defer cancel()

	ownerID := middleware.OwnerID(c)
	username := c.Param("username")

	account, err := h.accounts.GetByUsername(ctx, ownerID, username)
	if err != nil {
		respondError(c, err)
		return
	}

	sess, err := h.supervisor.Extend(ctx, account.AccountID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    statusView(sess, time.Now()),
		"message": "Session extended",
	})
}

func (h *handler) RecordActivity(c *gin.Context) {
	ctx, cancel := h.requestCtx(c)
	defer cancel()

	ownerID := middleware.OwnerID(c)
	username := c.Param("username")

	account, err := h.accounts.GetByUsername(ctx, ownerID, username)
	if err != nil {
		respondError(c, err)
		return
	}

	h.supervisor.RecordActivity(ctx, account.AccountID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Activity recorded",
	})
}

func (h *handler) ApplyCosmetics(c *gin.Context) {
	ctx, cancel := h.requestCtx(c)
	defer cancel()

	ownerID := middleware.OwnerID(c)
	username := c.Param("username")

	var loadout models.Cosmetics
	if err := c.ShouldBindJSON(&loadout); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid cosmetics payload",
			"message": err.Error(),
		})
		return
	}
	if loadout.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Cosmetics payload is empty",
		})
		return
	}

	account, err := h.accounts.GetByUsername(ctx, ownerID, username)
	if err != nil {
		respondError(c, err)
		return
	}

	sess, err := h.supervisor.ApplyCosmetics(ctx, account.AccountID, loadout)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    statusView(sess, time.Now()),
		"message": "Cosmetics applied",
	})
}

func (h *handler) GetBotStatus(c *gin.Context) {
	ctx, cancel := h.requestCtx(c)
	defer cancel()

	ownerID := middleware.OwnerID(c)
	username := c.Param("username")

	account, err := h.accounts.GetByUsername(ctx, ownerID, username)
	if err != nil {
		respondError(c, err)
		return
	}

	sess, err := h.supervisor.Status(ctx, account.AccountID)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"data":    gin.H{"epic_username": username, "state": models.StateOffline},
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    statusView(sess, time.Now()),
	})
}

func (h *handler) ListBots(c *gin.Context) {
	ownerID := middleware.OwnerID(c)
	sessions := h.supervisor.ListForOwner(ownerID)

	now := time.Now()
	views := make([]gin.H, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, statusView(sess, now))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    views,
	})
}

func (h *handler) requestCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func statusView(sess models.BotSession, now time.Time) gin.H {
	view := gin.H{
		"epic_username":   sess.EpicUsername,
		"account_id":      sess.AccountID,
		"session_id":      sess.SessionID,
		"state":           sess.State,
		"started_at":      sess.StartedAt,
		"last_activity":   sess.LastActivityAt,
		"extensions_used": sess.ExtensionsUsed,
		"cosmetics":       sess.Cosmetics,
	}

	if sess.State.Active() {
		view["uptime"] = models.FormatUptime(sess.StartedAt, now)
		view["time_remaining"] = models.FormatRemaining(sess.RemainingSeconds(now))
	} else if sess.TerminationReason != "" {
		view["termination_reason"] = sess.TerminationReason
	}

	return view
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal error"

	switch {
	case errors.Is(err, models.ErrAccountNotFound):
		status, message = http.StatusNotFound, "Account not found"
	case errors.Is(err, models.ErrAlreadyRunning):
		status, message = http.StatusConflict, "Bot is already running"
	case errors.Is(err, models.ErrNotRunning):
		status, message = http.StatusConflict, "Bot is not running"
	case models.IsLimitExceeded(err):
		status, message = http.StatusTooManyRequests, "Concurrent bot limit reached"
	case errors.Is(err, models.ErrExtensionLimitExceeded):
		status, message = http.StatusTooManyRequests, "Maximum extensions reached"
	case errors.Is(err, models.ErrAuthenticationFailed):
		status, message = http.StatusBadGateway, "Bot authentication failed"
	case errors.Is(err, models.ErrOperationTimedOut):
		status, message = http.StatusGatewayTimeout, "Operation timed out"
	case errors.Is(err, models.ErrShuttingDown):
		status, message = http.StatusServiceUnavailable, "Service is shutting down"
	case errors.Is(err, models.ErrCredentialDecrypt):
		status, message = http.StatusUnprocessableEntity, "Stored credentials are unreadable"
	}

	if status == http.StatusInternalServerError {
		logrus.WithError(err).Error("Request failed")
	}

	c.JSON(status, gin.H{
		"error":   message,
		"message": err.Error(),
	})
}
