package sweeper

import (
	"context"
	"time"

	"fortnite-lobbybot-svc/src/internal/config"
	"fortnite-lobbybot-svc/src/internal/models"
	"fortnite-lobbybot-svc/src/internal/notify"

	"github.com/sirupsen/logrus"
)

// Lifecycle is the slice of the supervisor the sweep needs. The sweep
// only reads snapshots and calls back into the stop path; it never
// touches an adapter.
type Lifecycle interface {
	ListActive() []models.BotSession
	Stop(ctx context.Context, accountID string, reason models.TerminationReason) error
	MarkIdleWarning(accountID string, remainingSeconds int) bool
}

// Sweeper periodically scans live sessions, warns the ones approaching
// their idle timeout, and stops the ones past it.
type Sweeper struct {
	interval  time.Duration
	threshold time.Duration
	lifecycle Lifecycle
	notifier  notify.Publisher
	now       func() time.Time
}

func New(cfg *config.SessionConfig, lifecycle Lifecycle, notifier notify.Publisher) *Sweeper {
	return &Sweeper{
		interval:  time.Duration(cfg.SweepIntervalSeconds) * time.Second,
		threshold: time.Duration(cfg.WarningThresholdMinutes) * time.Minute,
		lifecycle: lifecycle,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Run ticks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	logrus.WithField("interval", s.interval).Info("Timeout sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Timeout sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep evaluates every live session once. One session's failure never
// prevents the rest of the tick from being evaluated.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()

	for _, sess := range s.lifecycle.ListActive() {
		remaining := sess.RemainingSeconds(now)

		switch {
		case remaining <= 0:
			s.expire(ctx, sess)
		case remaining <= int(s.threshold.Seconds()) && sess.State == models.StateOnline:
			// Edge-triggered: MarkIdleWarning refuses any state other
			// than online, so a session already warned is not
			// re-notified on later ticks.
			s.lifecycle.MarkIdleWarning(sess.AccountID, remaining)
		}
	}
}

func (s *Sweeper) expire(ctx context.Context, sess models.BotSession) {
	logrus.WithFields(logrus.Fields{
		"epic_username": sess.EpicUsername,
		"session_id":    sess.SessionID,
	}).Info("Session idle timeout reached")

	if err := s.lifecycle.Stop(ctx, sess.AccountID, models.ReasonTimeout); err != nil {
		logrus.WithError(err).WithField("account_id", sess.AccountID).Error("Failed to stop timed-out bot")
		return
	}

	s.notifier.SendTimeoutNotice(sess.OwnerID, sess.AccountID, sess.EpicUsername)
}
