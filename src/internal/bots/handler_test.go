package bots

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fortnite-lobbybot-svc/src/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func respond(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, err)
	return w
}

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"account not found", models.ErrAccountNotFound, http.StatusNotFound},
		{"already running", models.ErrAlreadyRunning, http.StatusConflict},
		{"not running", models.ErrNotRunning, http.StatusConflict},
		{"user limit", models.ErrUserLimitExceeded, http.StatusTooManyRequests},
		{"global limit", models.ErrGlobalLimitExceeded, http.StatusTooManyRequests},
		{"extension limit", models.ErrExtensionLimitExceeded, http.StatusTooManyRequests},
		{"auth failed", models.ErrAuthenticationFailed, http.StatusBadGateway},
		{"timeout", models.ErrOperationTimedOut, http.StatusGatewayTimeout},
		{"shutting down", models.ErrShuttingDown, http.StatusServiceUnavailable},
		{"bad credentials", models.ErrCredentialDecrypt, http.StatusUnprocessableEntity},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, respond(tc.err).Code)
		})
	}
}

func TestRespondErrorWrappedErrors(t *testing.T) {
	wrapped := errors.Join(errors.New("failed to start bot"), models.ErrUserLimitExceeded)
	assert.Equal(t, http.StatusTooManyRequests, respond(wrapped).Code)
}

func TestStatusViewActiveSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sess := models.BotSession{
		EpicUsername:   "bot_alpha",
		State:          models.StateOnline,
		StartedAt:      now.Add(-90 * time.Minute),
		LastActivityAt: now.Add(-10 * time.Minute),
		TimeoutMinutes: 30,
		ExtensionsUsed: 1,
	}

	view := statusView(sess, now)
	assert.Equal(t, "1h 30m 0s", view["uptime"])
	assert.Equal(t, "20m 0s", view["time_remaining"])
	assert.NotContains(t, view, "termination_reason")
}

func TestStatusViewEndedSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sess := models.BotSession{
		EpicUsername:      "bot_alpha",
		State:             models.StateOffline,
		TerminationReason: models.ReasonTimeout,
	}

	view := statusView(sess, now)
	assert.Equal(t, models.ReasonTimeout, view["termination_reason"])
	assert.NotContains(t, view, "uptime")
	assert.NotContains(t, view, "time_remaining")
}
