package registry

import (
	"sync"
	"time"

	"fortnite-lobbybot-svc/src/internal/adapter"
	"fortnite-lobbybot-svc/src/internal/models"

	"github.com/sirupsen/logrus"
)

// Limits are the concurrency caps enforced at reserve time.
type Limits struct {
	PerUser int
	Global  int
}

// Registry is the in-memory source of truth for bot sessions, keyed by
// account id. Offline entries are retained so the last session remains
// queryable; only active states count against the limits.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	limits  Limits
}

func New(limits Limits) *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		limits:  limits,
	}
}

// Reserve atomically claims a starting slot for the session's account.
// The already-running check and both cap checks happen under one lock,
// so concurrent duplicate starts cannot both win and the caps cannot be
// exceeded by a check-then-reserve race. The returned entry is in
// StateStarting; the caller must drive it to online or offline.
func (r *Registry) Reserve(sess models.BotSession) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[sess.AccountID]; ok && existing.State().Active() {
		return nil, models.ErrAlreadyRunning
	}

	ownerCount, globalCount := r.countActiveLocked(sess.OwnerID)
	if ownerCount >= r.limits.PerUser {
		logrus.WithFields(logrus.Fields{
			"owner_id": sess.OwnerID,
			"active":   ownerCount,
			"limit":    r.limits.PerUser,
		}).Warn("Per-user bot limit reached")
		return nil, models.ErrUserLimitExceeded
	}
	if globalCount >= r.limits.Global {
		logrus.WithFields(logrus.Fields{
			"active": globalCount,
			"limit":  r.limits.Global,
		}).Warn("Global bot limit reached")
		return nil, models.ErrGlobalLimitExceeded
	}

	sess.State = models.StateStarting
	entry := newEntry(sess)
	r.entries[sess.AccountID] = entry
	return entry, nil
}

// Get returns the entry for an account if one exists (any state).
func (r *Registry) Get(accountID string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[accountID]
	return entry, ok
}

// ListActive returns snapshots of every non-offline session.
func (r *Registry) ListActive() []models.BotSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]models.BotSession, 0, len(r.entries))
	for _, entry := range r.entries {
		snap := entry.Snapshot()
		if snap.State.Active() {
			sessions = append(sessions, snap)
		}
	}
	return sessions
}

// ListActiveByOwner returns snapshots of the owner's non-offline sessions.
func (r *Registry) ListActiveByOwner(ownerID string) []models.BotSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []models.BotSession
	for _, entry := range r.entries {
		snap := entry.Snapshot()
		if snap.OwnerID == ownerID && snap.State.Active() {
			sessions = append(sessions, snap)
		}
	}
	return sessions
}

// ActiveCounts returns the current global active count and the count for
// the given owner.
func (r *Registry) ActiveCounts(ownerID string) (owner int, global int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countActiveLocked(ownerID)
}

func (r *Registry) countActiveLocked(ownerID string) (owner int, global int) {
	for _, entry := range r.entries {
		snap := entry.Snapshot()
		if !snap.State.Active() {
			continue
		}
		global++
		if snap.OwnerID == ownerID {
			owner++
		}
	}
	return owner, global
}

// Entry is the registry slot for one account. The transition mutex
// serializes lifecycle transitions for the account and may be held
// across adapter I/O; the data mutex guards the session fields and is
// only ever held for in-memory access, so registry reads never block on
// a slow teardown.
type Entry struct {
	transition sync.Mutex

	dataMu  sync.RWMutex
	session models.BotSession
	client  adapter.Client

	ctlMu         sync.Mutex
	cancelConnect func()
	pendingStop   models.TerminationReason

	offlineOnce sync.Once
	offline     chan struct{}
}

func newEntry(sess models.BotSession) *Entry {
	return &Entry{
		session: sess,
		offline: make(chan struct{}),
	}
}

// Lock acquires the per-account transition lock.
func (e *Entry) Lock() { e.transition.Lock() }

// Unlock releases the per-account transition lock.
func (e *Entry) Unlock() { e.transition.Unlock() }

// Snapshot returns a copy of the session record.
func (e *Entry) Snapshot() models.BotSession {
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	return e.session
}

// State returns the current lifecycle state.
func (e *Entry) State() models.SessionState {
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	return e.session.State
}

// Client returns the adapter handle, nil once offline.
func (e *Entry) Client() adapter.Client {
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	return e.client
}

// SetState moves the entry to the given state.
func (e *Entry) SetState(state models.SessionState) {
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	e.session.State = state
}

// MarkOnline attaches the adapter handle and enters the online state.
func (e *Entry) MarkOnline(client adapter.Client, now time.Time) {
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	e.client = client
	e.session.State = models.StateOnline
	e.session.StartedAt = now
	e.session.LastActivityAt = now
}

// MarkOffline finalizes the entry: state offline, reason recorded, the
// adapter handle dropped, and the offline channel closed so the crash
// watcher exits. Safe to call more than once; only the first wins.
func (e *Entry) MarkOffline(reason models.TerminationReason, now time.Time) {
	e.dataMu.Lock()
	e.session.State = models.StateOffline
	e.session.TerminationReason = reason
	ended := now
	e.session.EndedAt = &ended
	e.client = nil
	e.dataMu.Unlock()

	e.offlineOnce.Do(func() { close(e.offline) })
}

// Offline is closed when the entry reaches the offline state.
func (e *Entry) Offline() <-chan struct{} { return e.offline }

// Touch refreshes the activity timestamp and clears an idle warning.
func (e *Entry) Touch(now time.Time) {
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	e.session.LastActivityAt = now
	if e.session.State == models.StateIdleWarning {
		e.session.State = models.StateOnline
	}
}

// IncrementExtensions bumps the extension counter.
func (e *Entry) IncrementExtensions() int {
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	e.session.ExtensionsUsed++
	return e.session.ExtensionsUsed
}

// SetCosmetics records the applied loadout.
func (e *Entry) SetCosmetics(loadout models.Cosmetics) {
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	e.session.Cosmetics = loadout
}

// SetConnectCancel registers the cancel for an in-flight connect.
func (e *Entry) SetConnectCancel(cancel func()) {
	e.ctlMu.Lock()
	defer e.ctlMu.Unlock()
	e.cancelConnect = cancel
}

// ClearConnectCancel drops the connect cancel once connect settles.
func (e *Entry) ClearConnectCancel() {
	e.ctlMu.Lock()
	defer e.ctlMu.Unlock()
	e.cancelConnect = nil
}

// RequestStop records a stop issued while the entry is still starting
// and cancels the in-flight connect so it settles promptly.
func (e *Entry) RequestStop(reason models.TerminationReason) {
	e.ctlMu.Lock()
	defer e.ctlMu.Unlock()
	e.pendingStop = reason
	if e.cancelConnect != nil {
		e.cancelConnect()
	}
}

// PendingStop returns the reason of a stop requested during connect.
func (e *Entry) PendingStop() (models.TerminationReason, bool) {
	e.ctlMu.Lock()
	defer e.ctlMu.Unlock()
	return e.pendingStop, e.pendingStop != ""
}
