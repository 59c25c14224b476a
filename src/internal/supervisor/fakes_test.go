package supervisor

import (
	"context"
	"sync"
	"time"

	"fortnite-lobbybot-svc/src/internal/accounts"
	"fortnite-lobbybot-svc/src/internal/adapter"
	"fortnite-lobbybot-svc/src/internal/config"
	"fortnite-lobbybot-svc/src/internal/models"
	"fortnite-lobbybot-svc/src/internal/registry"

	"github.com/google/uuid"
)

type fakeClient struct {
	mu               sync.Mutex
	connectErr       error
	connectDelay     time.Duration
	blockUntilCancel bool
	disconnects      int
	disconnectErr    error
	disconnectDelay  time.Duration
	crashed          chan error

	connectStarted chan struct{}
	startedOnce    sync.Once
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		crashed:        make(chan error, 1),
		connectStarted: make(chan struct{}),
	}
}

func (f *fakeClient) Connect(ctx context.Context, _ adapter.Credentials) error {
	f.startedOnce.Do(func() { close(f.connectStarted) })
	if f.blockUntilCancel {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.connectDelay > 0 {
		select {
		case <-time.After(f.connectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.connectErr
}

func (f *fakeClient) Disconnect(ctx context.Context) error {
	if f.disconnectDelay > 0 {
		select {
		case <-time.After(f.disconnectDelay):
		case <-ctx.Done():
			return models.ErrOperationTimedOut
		}
	}
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
	return f.disconnectErr
}

func (f *fakeClient) ApplyCosmetics(_ context.Context, _ models.Cosmetics) error {
	return nil
}

func (f *fakeClient) Crashed() <-chan error {
	return f.crashed
}

func (f *fakeClient) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

type fakeFactory struct {
	mu        sync.Mutex
	overrides map[string]*fakeClient
	created   map[string]*fakeClient
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		overrides: make(map[string]*fakeClient),
		created:   make(map[string]*fakeClient),
	}
}

func (f *fakeFactory) override(username string, client *fakeClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides[username] = client
}

func (f *fakeFactory) New(username string) adapter.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	client, ok := f.overrides[username]
	if !ok {
		client = newFakeClient()
	}
	f.created[username] = client
	return client
}

func (f *fakeFactory) client(username string) *fakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[username]
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*accounts.EpicAccount // keyed by epic username
	statuses map[string]string
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		accounts: make(map[string]*accounts.EpicAccount),
		statuses: make(map[string]string),
	}
}

func (f *fakeAccountRepo) add(ownerID, username string) *accounts.EpicAccount {
	f.mu.Lock()
	defer f.mu.Unlock()
	account := &accounts.EpicAccount{
		AccountID:            uuid.NewString(),
		OwnerID:              ownerID,
		EpicUsername:         username,
		EncryptedCredentials: "blob",
		Status:               accounts.StatusActive,
	}
	f.accounts[username] = account
	return account
}

func (f *fakeAccountRepo) GetByUsername(_ context.Context, ownerID, username string) (*accounts.EpicAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[username]
	if !ok || account.OwnerID != ownerID {
		return nil, models.ErrAccountNotFound
	}
	return account, nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, accountID string) (*accounts.EpicAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if account.AccountID == accountID {
			return account, nil
		}
	}
	return nil, models.ErrAccountNotFound
}

func (f *fakeAccountRepo) ListByOwner(_ context.Context, ownerID string) ([]*accounts.EpicAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*accounts.EpicAccount
	for _, account := range f.accounts {
		if account.OwnerID == ownerID {
			result = append(result, account)
		}
	}
	return result, nil
}

func (f *fakeAccountRepo) Create(_ context.Context, account *accounts.EpicAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[account.EpicUsername] = account
	return nil
}

func (f *fakeAccountRepo) Remove(_ context.Context, _, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.accounts, username)
	return nil
}

func (f *fakeAccountRepo) UpdateStatus(_ context.Context, accountID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[accountID] = status
	return nil
}

func (f *fakeAccountRepo) MarkUsed(_ context.Context, _ string) error { return nil }

func (f *fakeAccountRepo) CountByOwner(_ context.Context, ownerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, account := range f.accounts {
		if account.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAccountRepo) CountAll(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.accounts)), nil
}

func (f *fakeAccountRepo) status(accountID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[accountID]
}

type fakeSessionRepo struct {
	mu      sync.Mutex
	created []models.BotSession
	ended   map[string]models.TerminationReason
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{ended: make(map[string]models.TerminationReason)}
}

func (f *fakeSessionRepo) Create(_ context.Context, sess *models.BotSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *sess)
	return nil
}

func (f *fakeSessionRepo) GetLatest(_ context.Context, _ string) (*models.BotSession, error) {
	return nil, models.ErrRecordNotFound
}

func (f *fakeSessionRepo) UpdateState(_ context.Context, _ string, _ models.SessionState) error {
	return nil
}

func (f *fakeSessionRepo) UpdateActivity(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (f *fakeSessionRepo) RecordExtension(_ context.Context, _ string, _ int, _ time.Time) error {
	return nil
}

func (f *fakeSessionRepo) UpdateCosmetics(_ context.Context, _ string, _ models.Cosmetics, _ time.Time) error {
	return nil
}

func (f *fakeSessionRepo) End(_ context.Context, sessionID string, reason models.TerminationReason, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended[sessionID] = reason
	return nil
}

func (f *fakeSessionRepo) CloseDangling(_ context.Context) (int64, error) { return 0, nil }

type fakeNotifier struct {
	mu       sync.Mutex
	activity []models.ActivityMessage
	warnings int
	timeouts int
	crashes  int
}

func (f *fakeNotifier) PublishActivity(msg models.ActivityMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activity = append(f.activity, msg)
}

func (f *fakeNotifier) SendWarning(_, _, _ string, _ int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warnings++
}

func (f *fakeNotifier) SendTimeoutNotice(_, _, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeouts++
}

func (f *fakeNotifier) SendCrashNotice(_, _, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crashes++
}

func (f *fakeNotifier) warningCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.warnings
}

func (f *fakeNotifier) crashCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.crashes
}

type fakeVault struct{}

func (fakeVault) Encrypt(_ adapter.Credentials) (string, error) { return "blob", nil }

func (fakeVault) Decrypt(_ string) (adapter.Credentials, error) {
	return adapter.Credentials{DeviceID: "dev", AccountID: "acct", Secret: "sec"}, nil
}

type testHarness struct {
	sup      *Supervisor
	factory  *fakeFactory
	accounts *fakeAccountRepo
	sessions *fakeSessionRepo
	notifier *fakeNotifier
}

func newTestHarness(perUser, global, maxExtensions int) *testHarness {
	cfg := &config.Configuration{
		Database: config.Database{Timeout: 1},
		Session: config.SessionConfig{
			DefaultTimeoutMinutes:   30,
			WarningThresholdMinutes: 5,
			ExtensionMinutes:        15,
			MaxExtensions:           maxExtensions,
			MaxConcurrentPerUser:    perUser,
			MaxConcurrentGlobal:     global,
			ConnectTimeoutSeconds:   5,
			TeardownTimeoutSeconds:  1,
			ShutdownTimeoutSeconds:  2,
		},
	}

	factory := newFakeFactory()
	accountRepo := newFakeAccountRepo()
	sessionRepo := newFakeSessionRepo()
	notifier := &fakeNotifier{}

	reg := registry.New(registry.Limits{PerUser: perUser, Global: global})
	sup := New(cfg, reg, accountRepo, sessionRepo, fakeVault{}, factory, notifier, nil)

	return &testHarness{
		sup:      sup,
		factory:  factory,
		accounts: accountRepo,
		sessions: sessionRepo,
		notifier: notifier,
	}
}
