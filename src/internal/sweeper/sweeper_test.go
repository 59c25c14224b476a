package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fortnite-lobbybot-svc/src/internal/config"
	"fortnite-lobbybot-svc/src/internal/models"

	"github.com/stretchr/testify/assert"
)

type fakeLifecycle struct {
	mu       sync.Mutex
	sessions map[string]*models.BotSession
	stopped  map[string]models.TerminationReason
	stopErr  map[string]error
	warned   map[string]int
}

func newFakeLifecycle() *fakeLifecycle {
	return &fakeLifecycle{
		sessions: make(map[string]*models.BotSession),
		stopped:  make(map[string]models.TerminationReason),
		stopErr:  make(map[string]error),
		warned:   make(map[string]int),
	}
}

func (f *fakeLifecycle) add(accountID string, state models.SessionState, lastActivity time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[accountID] = &models.BotSession{
		SessionID:      "sess-" + accountID,
		AccountID:      accountID,
		OwnerID:        "owner-1",
		EpicUsername:   "user-" + accountID,
		State:          state,
		LastActivityAt: lastActivity,
		TimeoutMinutes: 30,
	}
}

func (f *fakeLifecycle) ListActive() []models.BotSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BotSession
	for _, sess := range f.sessions {
		if sess.State.Active() {
			out = append(out, *sess)
		}
	}
	return out
}

func (f *fakeLifecycle) Stop(_ context.Context, accountID string, reason models.TerminationReason) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.stopErr[accountID]; ok {
		return err
	}
	f.sessions[accountID].State = models.StateOffline
	f.stopped[accountID] = reason
	return nil
}

func (f *fakeLifecycle) MarkIdleWarning(accountID string, _ int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess := f.sessions[accountID]
	if sess.State != models.StateOnline {
		return false
	}
	sess.State = models.StateIdleWarning
	f.warned[accountID]++
	return true
}

type countingNotifier struct {
	mu       sync.Mutex
	timeouts []string
}

func (n *countingNotifier) PublishActivity(models.ActivityMessage) {}

func (n *countingNotifier) SendWarning(string, string, string, int) {}

func (n *countingNotifier) SendTimeoutNotice(_, accountID, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.timeouts = append(n.timeouts, accountID)
}

func (n *countingNotifier) SendCrashNotice(string, string, string) {}

func newTestSweeper(lifecycle *fakeLifecycle, notifier *countingNotifier, now time.Time) *Sweeper {
	cfg := &config.SessionConfig{
		SweepIntervalSeconds:    60,
		WarningThresholdMinutes: 5,
	}
	s := New(cfg, lifecycle, notifier)
	s.now = func() time.Time { return now }
	return s
}

func TestSweepExpiresTimedOutSessions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lifecycle := newFakeLifecycle()
	notifier := &countingNotifier{}

	lifecycle.add("expired", models.StateOnline, now.Add(-31*time.Minute))
	lifecycle.add("fresh", models.StateOnline, now.Add(-10*time.Minute))

	newTestSweeper(lifecycle, notifier, now).Sweep(context.Background())

	assert.Equal(t, models.ReasonTimeout, lifecycle.stopped["expired"])
	assert.NotContains(t, lifecycle.stopped, "fresh")
	assert.Equal(t, []string{"expired"}, notifier.timeouts)
}

func TestSweepWarnsOnceNearTimeout(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lifecycle := newFakeLifecycle()
	notifier := &countingNotifier{}

	// 26 minutes idle: 4 minutes left, inside the 5 minute threshold.
	lifecycle.add("idle", models.StateOnline, now.Add(-26*time.Minute))

	s := newTestSweeper(lifecycle, notifier, now)
	s.Sweep(context.Background())
	s.Sweep(context.Background())

	assert.Equal(t, 1, lifecycle.warned["idle"])
	assert.Empty(t, lifecycle.stopped)
}

func TestSweepIgnoresHealthySessions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lifecycle := newFakeLifecycle()
	notifier := &countingNotifier{}

	lifecycle.add("healthy", models.StateOnline, now.Add(-5*time.Minute))

	newTestSweeper(lifecycle, notifier, now).Sweep(context.Background())

	assert.Empty(t, lifecycle.warned)
	assert.Empty(t, lifecycle.stopped)
}

func TestSweepWarnedSessionStillExpires(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lifecycle := newFakeLifecycle()
	notifier := &countingNotifier{}

	lifecycle.add("warned", models.StateIdleWarning, now.Add(-31*time.Minute))

	newTestSweeper(lifecycle, notifier, now).Sweep(context.Background())

	assert.Equal(t, models.ReasonTimeout, lifecycle.stopped["warned"])
}

func TestSweepFailureDoesNotBlockOthers(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lifecycle := newFakeLifecycle()
	notifier := &countingNotifier{}

	lifecycle.add("broken", models.StateOnline, now.Add(-40*time.Minute))
	lifecycle.add("expired", models.StateOnline, now.Add(-40*time.Minute))
	lifecycle.stopErr["broken"] = errors.New("adapter wedged")

	newTestSweeper(lifecycle, notifier, now).Sweep(context.Background())

	assert.Equal(t, models.ReasonTimeout, lifecycle.stopped["expired"])
	assert.NotContains(t, lifecycle.stopped, "broken")
	// No timeout notice for the session whose stop failed.
	assert.Equal(t, []string{"expired"}, notifier.timeouts)
}
