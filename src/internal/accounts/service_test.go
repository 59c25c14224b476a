package accounts

import (
	"context"
	"encoding/base64"
	"testing"

	"fortnite-lobbybot-svc/src/internal/adapter"
	"fortnite-lobbybot-svc/src/internal/config"
	"fortnite-lobbybot-svc/src/internal/models"
	"fortnite-lobbybot-svc/src/internal/vault"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	accounts map[string]*EpicAccount
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{accounts: make(map[string]*EpicAccount)}
}

func (m *memoryRepo) GetByUsername(_ context.Context, ownerID, username string) (*EpicAccount, error) {
	account, ok := m.accounts[username]
	if !ok || account.OwnerID != ownerID {
		return nil, models.ErrAccountNotFound
	}
	return account, nil
}

func (m *memoryRepo) GetByID(_ context.Context, accountID string) (*EpicAccount, error) {
	for _, account := range m.accounts {
		if account.AccountID == accountID {
			return account, nil
		}
	}
	return nil, models.ErrAccountNotFound
}

func (m *memoryRepo) ListByOwner(_ context.Context, ownerID string) ([]*EpicAccount, error) {
	var result []*EpicAccount
	for _, account := range m.accounts {
		if account.OwnerID == ownerID {
			result = append(result, account)
		}
	}
	return result, nil
}

func (m *memoryRepo) Create(_ context.Context, account *EpicAccount) error {
	if _, exists := m.accounts[account.EpicUsername]; exists {
		return models.ErrDuplicateAccount
	}
	m.accounts[account.EpicUsername] = account
	return nil
}

func (m *memoryRepo) Remove(_ context.Context, ownerID, username string) error {
	account, ok := m.accounts[username]
	if !ok || account.OwnerID != ownerID {
		return models.ErrAccountNotFound
	}
	delete(m.accounts, username)
	return nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, _, _ string) error { return nil }

func (m *memoryRepo) MarkUsed(_ context.Context, _ string) error { return nil }

func (m *memoryRepo) CountByOwner(_ context.Context, ownerID string) (int64, error) {
	var count int64
	for _, account := range m.accounts {
		if account.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) CountAll(_ context.Context) (int64, error) {
	return int64(len(m.accounts)), nil
}

func newTestService(t *testing.T, maxAccounts int) (Service, vault.Service, *memoryRepo) {
	t.Helper()
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	credVault, err := vault.New(key)
	require.NoError(t, err)

	cfg := &config.Configuration{}
	cfg.Session.MaxAccountsPerUser = maxAccounts

	repo := newMemoryRepo()
	return NewAccountService(repo, credVault, cfg), credVault, repo
}

func registerRequest(username string) *RegisterRequest {
	return &RegisterRequest{
		EpicUsername:  username,
		DeviceID:      "device-1",
		EpicAccountID: "epic-1",
		Secret:        "s3cr3t",
	}
}

func TestRegisterEncryptsCredentials(t *testing.T) {
	svc, credVault, repo := newTestService(t, 5)

	account, err := svc.Register(context.Background(), "owner-1", registerRequest("bot_alpha"))
	require.NoError(t, err)
	assert.NotEmpty(t, account.AccountID)
	assert.Equal(t, StatusActive, account.Status)

	stored := repo.accounts["bot_alpha"]
	assert.NotContains(t, stored.EncryptedCredentials, "s3cr3t")

	creds, err := credVault.Decrypt(stored.EncryptedCredentials)
	require.NoError(t, err)
	assert.Equal(t, adapter.Credentials{
		DeviceID:  "device-1",
		AccountID: "epic-1",
		Secret:    "s3cr3t",
	}, creds)
}

func TestRegisterEnforcesAccountCap(t *testing.T) {
	svc, _, _ := newTestService(t, 2)

	for _, name := range []string{"bot_a", "bot_b"} {
		_, err := svc.Register(context.Background(), "owner-1", registerRequest(name))
		require.NoError(t, err)
	}

	_, err := svc.Register(context.Background(), "owner-1", registerRequest("bot_c"))
	assert.ErrorIs(t, err, models.ErrAccountLimitExceeded)

	// The cap is per owner, not global.
	_, err = svc.Register(context.Background(), "owner-2", registerRequest("bot_d"))
	assert.NoError(t, err)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	svc, _, _ := newTestService(t, 5)

	_, err := svc.Register(context.Background(), "owner-1", registerRequest("bot_alpha"))
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "owner-1", registerRequest("bot_alpha"))
	assert.ErrorIs(t, err, models.ErrDuplicateAccount)
}

func TestRemoveAndList(t *testing.T) {
	svc, _, _ := newTestService(t, 5)

	_, err := svc.Register(context.Background(), "owner-1", registerRequest("bot_alpha"))
	require.NoError(t, err)

	listed, err := svc.List(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, svc.Remove(context.Background(), "owner-1", "bot_alpha"))

	listed, err = svc.List(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Empty(t, listed)

	assert.ErrorIs(t, svc.Remove(context.Background(), "owner-1", "bot_alpha"), models.ErrAccountNotFound)
}
