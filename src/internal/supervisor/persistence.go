package supervisor

import (
	"context"
	"time"

	"fortnite-lobbybot-svc/src/internal/models"

	"github.com/sirupsen/logrus"
)

// Persistence and cache writes are best-effort audit: the in-memory
// registry is authoritative, so a store failure is logged and never
// reverses a committed transition.

func (s *Supervisor) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(s.cfg.Database.Timeout)*time.Second)
}

func (s *Supervisor) persistCreate(sess models.BotSession) {
	ctx, cancel := s.storeCtx()
	defer cancel()
	if err := s.sessions.Create(ctx, &sess); err != nil {
		logrus.WithError(err).WithField("session_id", sess.SessionID).Warn("Session create not persisted")
	}
}

func (s *Supervisor) persistState(sessionID string, state models.SessionState) {
	ctx, cancel := s.storeCtx()
	defer cancel()
	if err := s.sessions.UpdateState(ctx, sessionID, state); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Warn("Session state not persisted")
	}
}

func (s *Supervisor) persistEnd(sessionID string, reason models.TerminationReason, at time.Time) {
	ctx, cancel := s.storeCtx()
	defer cancel()
	if err := s.sessions.End(ctx, sessionID, reason, at); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Warn("Session end not persisted")
	}
}

func (s *Supervisor) persistActivity(sessionID string, at time.Time) {
	ctx, cancel := s.storeCtx()
	defer cancel()
	if err := s.sessions.UpdateActivity(ctx, sessionID, at); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Warn("Session activity not persisted")
	}
}

func (s *Supervisor) persistExtension(sessionID string, used int, at time.Time) {
	ctx, cancel := s.storeCtx()
	defer cancel()
	if err := s.sessions.RecordExtension(ctx, sessionID, used, at); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Warn("Session extension not persisted")
	}
}

func (s *Supervisor) persistCosmetics(sessionID string, loadout models.Cosmetics, at time.Time) {
	ctx, cancel := s.storeCtx()
	defer cancel()
	if err := s.sessions.UpdateCosmetics(ctx, sessionID, loadout, at); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Warn("Session cosmetics not persisted")
	}
}

func (s *Supervisor) updateAccountStatus(accountID, status string) {
	ctx, cancel := s.storeCtx()
	defer cancel()
	if err := s.accounts.UpdateStatus(ctx, accountID, status); err != nil {
		logrus.WithError(err).WithField("account_id", accountID).Warn("Account status not persisted")
	}
}

func (s *Supervisor) markAccountUsed(accountID string) {
	ctx, cancel := s.storeCtx()
	defer cancel()
	if err := s.accounts.MarkUsed(ctx, accountID); err != nil {
		logrus.WithError(err).WithField("account_id", accountID).Warn("Account usage not persisted")
	}
}

func (s *Supervisor) saveSnapshot(sess models.BotSession) {
	if s.cache == nil {
		return
	}
	ctx, cancel := s.storeCtx()
	defer cancel()
	if err := s.cache.SaveSnapshot(ctx, &sess); err != nil {
		logrus.WithError(err).WithField("account_id", sess.AccountID).Debug("Session snapshot not cached")
	}
}

func (s *Supervisor) deleteSnapshot(accountID string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := s.storeCtx()
	defer cancel()
	if err := s.cache.DeleteSnapshot(ctx, accountID); err != nil {
		logrus.WithError(err).WithField("account_id", accountID).Debug("Session snapshot not evicted")
	}
}
