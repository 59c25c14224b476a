package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"fortnite-lobbybot-svc/src/internal/accounts"
	"fortnite-lobbybot-svc/src/internal/adapter"
	"fortnite-lobbybot-svc/src/internal/cache"
	"fortnite-lobbybot-svc/src/internal/config"
	"fortnite-lobbybot-svc/src/internal/models"
	"fortnite-lobbybot-svc/src/internal/notify"
	"fortnite-lobbybot-svc/src/internal/registry"
	"fortnite-lobbybot-svc/src/internal/session"
	"fortnite-lobbybot-svc/src/internal/vault"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Supervisor orchestrates the lifecycle of every bot instance: it
// reserves a registry slot, establishes the adapter, drives state
// transitions, and guarantees each started instance is torn down
// exactly once no matter how it terminates. All transitions for one
// account are serialized on the registry entry's transition lock;
// different accounts proceed fully concurrently.
type Supervisor struct {
	cfg      *config.Configuration
	registry *registry.Registry
	accounts accounts.Repository
	sessions session.Repository
	vault    vault.Service
	adapters adapter.Factory
	notifier notify.Publisher
	cache    cache.Service

	shuttingDown atomic.Bool
	watchers     sync.WaitGroup
	now          func() time.Time
}

func New(
	cfg *config.Configuration,
	reg *registry.Registry,
	accountRepo accounts.Repository,
	sessionRepo session.Repository,
	credVault vault.Service,
	adapters adapter.Factory,
	notifier notify.Publisher,
	cacheService cache.Service,
) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		registry: reg,
		accounts: accountRepo,
		sessions: sessionRepo,
		vault:    credVault,
		adapters: adapters,
		notifier: notifier,
		cache:    cacheService,
		now:      time.Now,
	}
}

// Start brings up a bot for the owner's account. It fails with
// ErrAlreadyRunning if the account has a live session, or with a limit
// error when a concurrency cap is hit; the cap check and the slot
// reservation are one atomic step inside the registry. Connect runs
// with a bounded deadline while the per-account lock is held, so a
// concurrent stop waits for it to settle.
func (s *Supervisor) Start(ctx context.Context, ownerID, epicUsername string) (models.BotSession, error) {
	var zero models.BotSession

	if s.shuttingDown.Load() {
		return zero, models.ErrShuttingDown
	}

	account, err := s.accounts.GetByUsername(ctx, ownerID, epicUsername)
	if err != nil {
		return zero, err
	}

	creds, err := s.vault.Decrypt(account.EncryptedCredentials)
	if err != nil {
		return zero, err
	}

	now := s.now()
	entry, err := s.registry.Reserve(models.BotSession{
		SessionID:      uuid.NewString(),
		AccountID:      account.AccountID,
		OwnerID:        ownerID,
		EpicUsername:   account.EpicUsername,
		StartedAt:      now,
		LastActivityAt: now,
		TimeoutMinutes: s.cfg.Session.DefaultTimeoutMinutes,
	})
	if err != nil {
		return zero, err
	}

	entry.Lock()
	defer entry.Unlock()

	snap := entry.Snapshot()
	s.persistCreate(snap)

	logrus.WithFields(logrus.Fields{
		"owner_id":      ownerID,
		"epic_username": account.EpicUsername,
		"session_id":    snap.SessionID,
	}).Info("Starting bot")

	client := s.adapters.New(account.EpicUsername)

	cctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Session.ConnectTimeoutSeconds)*time.Second)
	entry.SetConnectCancel(cancel)
	connectErr := client.Connect(cctx, creds)
	entry.ClearConnectCancel()
	cancel()

	if connectErr != nil {
		reason := models.ReasonError
		if pending, ok := entry.PendingStop(); ok {
			reason = pending
		}
		s.finalize(entry, reason)

		if errors.Is(connectErr, models.ErrAuthenticationFailed) {
			s.updateAccountStatus(account.AccountID, accounts.StatusError)
			logrus.WithField("epic_username", account.EpicUsername).Warn("Bot authentication rejected")
			return zero, models.ErrAuthenticationFailed
		}
		if cctx.Err() != nil && reason == models.ReasonError {
			logrus.WithField("epic_username", account.EpicUsername).Warn("Bot connect timed out")
			return zero, models.ErrOperationTimedOut
		}
		return zero, fmt.Errorf("failed to start bot: %w", connectErr)
	}

	entry.MarkOnline(client, s.now())
	snap = entry.Snapshot()

	s.persistState(snap.SessionID, models.StateOnline)
	s.updateAccountStatus(account.AccountID, accounts.StatusActive)
	s.markAccountUsed(account.AccountID)
	s.saveSnapshot(snap)
	s.notifier.PublishActivity(models.ActivityMessage{
		OwnerID:     ownerID,
		AccountID:   account.AccountID,
		SessionID:   snap.SessionID,
		ServiceName: models.ServiceSupervisor,
		Action:      models.ActionBotStart,
	})

	s.watchers.Add(1)
	go s.watchCrash(entry, client)

	logrus.WithField("epic_username", account.EpicUsername).Info("Bot started")
	return snap, nil
}

// Stop tears a bot down. Stopping an offline account is a no-op
// success. A stop that lands while the session is still connecting
// cancels the in-flight connect and proceeds once it settles.
func (s *Supervisor) Stop(ctx context.Context, accountID string, reason models.TerminationReason) error {
	entry, ok := s.registry.Get(accountID)
	if !ok || !entry.State().Active() {
		return nil
	}

	entry.RequestStop(reason)
	return s.stopEntry(entry, reason, false)
}

// stopEntry runs the exactly-once teardown path. The transition lock
// guarantees no other stop or sweep-triggered stop for this account
// runs concurrently; the re-check after acquiring it makes the call
// idempotent.
func (s *Supervisor) stopEntry(entry *registry.Entry, reason models.TerminationReason, skipDisconnect bool) error {
	entry.Lock()
	defer entry.Unlock()

	snap := entry.Snapshot()
	if !snap.State.Active() {
		return nil
	}

	entry.SetState(models.StateStopping)
	s.persistState(snap.SessionID, models.StateStopping)

	if client := entry.Client(); client != nil && !skipDisconnect {
		dctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.Session.TeardownTimeoutSeconds)*time.Second)
		if err := client.Disconnect(dctx); err != nil {
			// Teardown is best-effort: a failed or timed-out release
			// still ends in offline, otherwise the slot would leak.
			logrus.WithError(err).WithField("epic_username", snap.EpicUsername).Warn("Bot teardown did not complete cleanly")
		}
		cancel()
	}

	s.finalize(entry, reason)

	logrus.WithFields(logrus.Fields{
		"epic_username": snap.EpicUsername,
		"reason":        reason,
	}).Info("Bot stopped")
	return nil
}

// finalize moves the entry to offline and releases everything tied to
// the slot. In-memory state commits first; persistence and cache are
// best-effort afterwards.
func (s *Supervisor) finalize(entry *registry.Entry, reason models.TerminationReason) {
	now := s.now()
	entry.MarkOffline(reason, now)
	snap := entry.Snapshot()

	s.persistEnd(snap.SessionID, reason, now)
	s.deleteSnapshot(snap.AccountID)
	s.notifier.PublishActivity(models.ActivityMessage{
		OwnerID:     snap.OwnerID,
		AccountID:   snap.AccountID,
		SessionID:   snap.SessionID,
		ServiceName: models.ServiceSupervisor,
		Action:      actionForReason(reason),
		Metadata:    map[string]string{"reason": string(reason)},
	})
}

// Extend grants the session another activity window. The cap is a hard
// rejection, never a clamp.
func (s *Supervisor) Extend(ctx context.Context, accountID string) (models.BotSession, error) {
	var zero models.BotSession

	entry, ok := s.registry.Get(accountID)
	if !ok || !entry.State().Active() {
		return zero, models.ErrNotRunning
	}

	entry.Lock()
	defer entry.Unlock()

	snap := entry.Snapshot()
	if !snap.State.Active() {
		return zero, models.ErrNotRunning
	}
	if snap.ExtensionsUsed >= s.cfg.Session.MaxExtensions {
		return zero, models.ErrExtensionLimitExceeded
	}

	used := entry.IncrementExtensions()
	entry.Touch(s.now())
	snap = entry.Snapshot()

	s.persistExtension(snap.SessionID, used, snap.LastActivityAt)
	s.saveSnapshot(snap)
	s.notifier.PublishActivity(models.ActivityMessage{
		OwnerID:     snap.OwnerID,
		AccountID:   snap.AccountID,
		SessionID:   snap.SessionID,
		ServiceName: models.ServiceSupervisor,
		Action:      models.ActionSessionExtend,
		Metadata:    map[string]string{"extensions_used": fmt.Sprintf("%d", used)},
	})

	logrus.WithFields(logrus.Fields{
		"epic_username":   snap.EpicUsername,
		"extensions_used": used,
	}).Info("Session extended")
	return snap, nil
}

// RecordActivity refreshes the activity timestamp and clears an idle
// warning. A call against an offline account is a silent no-op.
func (s *Supervisor) RecordActivity(ctx context.Context, accountID string) {
	entry, ok := s.registry.Get(accountID)
	if !ok || !entry.State().Active() {
		return
	}

	entry.Lock()
	defer entry.Unlock()

	snap := entry.Snapshot()
	if snap.State != models.StateOnline && snap.State != models.StateIdleWarning {
		return
	}

	entry.Touch(s.now())
	snap = entry.Snapshot()

	s.persistActivity(snap.SessionID, snap.LastActivityAt)
	s.saveSnapshot(snap)
}

// ApplyCosmetics forwards a loadout change to the adapter and counts it
// as session activity.
func (s *Supervisor) ApplyCosmetics(ctx context.Context, accountID string, loadout models.Cosmetics) (models.BotSession, error) {
	var zero models.BotSession

	entry, ok := s.registry.Get(accountID)
	if !ok || !entry.State().Active() {
		return zero, models.ErrNotRunning
	}

	entry.Lock()
	defer entry.Unlock()

	snap := entry.Snapshot()
	if snap.State != models.StateOnline && snap.State != models.StateIdleWarning {
		return zero, models.ErrNotRunning
	}

	client := entry.Client()
	if client == nil {
		return zero, models.ErrNotRunning
	}

	if err := client.ApplyCosmetics(ctx, loadout); err != nil {
		logrus.WithError(err).WithField("epic_username", snap.EpicUsername).Error("Failed to apply cosmetics")
		return zero, err
	}

	entry.SetCosmetics(loadout)
	entry.Touch(s.now())
	snap = entry.Snapshot()

	s.persistCosmetics(snap.SessionID, loadout, snap.LastActivityAt)
	s.saveSnapshot(snap)
	s.notifier.PublishActivity(models.ActivityMessage{
		OwnerID:     snap.OwnerID,
		AccountID:   snap.AccountID,
		SessionID:   snap.SessionID,
		ServiceName: models.ServiceSupervisor,
		Action:      models.ActionCosmeticChange,
	})

	return snap, nil
}

// MarkIdleWarning transitions an online session to idle-warning and
// sends the one-time warning notice. Returns false when the session is
// not in the online state, so a sweep never re-notifies a session that
// is already warned.
func (s *Supervisor) MarkIdleWarning(accountID string, remainingSeconds int) bool {
	entry, ok := s.registry.Get(accountID)
	if !ok {
		return false
	}

	entry.Lock()
	defer entry.Unlock()

	snap := entry.Snapshot()
	if snap.State != models.StateOnline {
		return false
	}

	entry.SetState(models.StateIdleWarning)
	snap = entry.Snapshot()

	s.persistState(snap.SessionID, models.StateIdleWarning)
	s.saveSnapshot(snap)
	s.notifier.SendWarning(snap.OwnerID, snap.AccountID, snap.EpicUsername, remainingSeconds)
	return true
}

// Status returns the live session for an account, falling back to the
// cached snapshot and then the store for accounts with no live entry.
func (s *Supervisor) Status(ctx context.Context, accountID string) (models.BotSession, error) {
	if entry, ok := s.registry.Get(accountID); ok {
		return entry.Snapshot(), nil
	}

	if s.cache != nil {
		if snap, err := s.cache.GetSnapshot(ctx, accountID); err == nil && snap != nil {
			return *snap, nil
		}
	}

	sess, err := s.sessions.GetLatest(ctx, accountID)
	if err != nil {
		return models.BotSession{}, err
	}
	return *sess, nil
}

// ListForOwner returns the owner's live sessions.
func (s *Supervisor) ListForOwner(ownerID string) []models.BotSession {
	return s.registry.ListActiveByOwner(ownerID)
}

// ListActive returns every live session; the timeout sweep reads this.
func (s *Supervisor) ListActive() []models.BotSession {
	return s.registry.ListActive()
}

// ActiveCounts reports current usage against the caps.
func (s *Supervisor) ActiveCounts(ownerID string) (owner int, global int) {
	return s.registry.ActiveCounts(ownerID)
}

// StopAllForOwner stops every bot the owner has running and returns the
// number stopped.
func (s *Supervisor) StopAllForOwner(ctx context.Context, ownerID string, reason models.TerminationReason) int {
	stopped := 0
	for _, sess := range s.registry.ListActiveByOwner(ownerID) {
		if err := s.Stop(ctx, sess.AccountID, reason); err == nil {
			stopped++
		}
	}
	return stopped
}

// StopAll drives every live session to offline during process shutdown.
// Teardowns run concurrently under a bounded deadline; sessions whose
// teardown overruns it are force-marked offline so nothing survives the
// shutdown.
func (s *Supervisor) StopAll(reason models.TerminationReason) int {
	s.shuttingDown.Store(true)

	active := s.registry.ListActive()
	if len(active) == 0 {
		return 0
	}

	logrus.WithField("count", len(active)).Info("Stopping all bots")

	var wg sync.WaitGroup
	for _, sess := range active {
		wg.Add(1)
		go func(accountID string) {
			defer wg.Done()
			if err := s.Stop(context.Background(), accountID, reason); err != nil {
				logrus.WithError(err).WithField("account_id", accountID).Error("Failed to stop bot during shutdown")
			}
		}(sess.AccountID)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Duration(s.cfg.Session.ShutdownTimeoutSeconds) * time.Second):
		for _, sess := range s.registry.ListActive() {
			if entry, ok := s.registry.Get(sess.AccountID); ok && entry.State().Active() {
				logrus.WithField("epic_username", sess.EpicUsername).Warn("Teardown deadline exceeded, forcing offline")
				s.forceOffline(entry, reason)
			}
		}
	}

	s.watchers.Wait()
	return len(active)
}

// forceOffline marks an entry offline without waiting for its teardown.
// Only the shutdown path uses it, after the deadline has passed.
func (s *Supervisor) forceOffline(entry *registry.Entry, reason models.TerminationReason) {
	now := s.now()
	entry.MarkOffline(reason, now)
	snap := entry.Snapshot()
	s.persistEnd(snap.SessionID, reason, now)
	s.deleteSnapshot(snap.AccountID)
}

// watchCrash waits for the adapter's asynchronous termination signal.
// A crash runs the same teardown path as a stop, minus the disconnect
// call (the adapter's resources are already gone), so the registry slot
// and limiter accounting are still released.
func (s *Supervisor) watchCrash(entry *registry.Entry, client adapter.Client) {
	defer s.watchers.Done()

	select {
	case <-entry.Offline():
		return
	case err := <-client.Crashed():
		snap := entry.Snapshot()
		logrus.WithError(err).WithField("epic_username", snap.EpicUsername).Warn("Bot client crashed")

		if stopErr := s.stopEntry(entry, models.ReasonCrash, true); stopErr != nil {
			logrus.WithError(stopErr).WithField("epic_username", snap.EpicUsername).Error("Failed to clean up crashed bot")
		}
		s.notifier.SendCrashNotice(snap.OwnerID, snap.AccountID, snap.EpicUsername)
	}
}

func actionForReason(reason models.TerminationReason) string {
	switch reason {
	case models.ReasonCrash:
		return models.ActionBotCrash
	case models.ReasonTimeout:
		return models.ActionBotTimeout
	default:
		return models.ActionBotStop
	}
}
