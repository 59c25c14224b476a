package accounts

import (
	"context"

	"fortnite-lobbybot-svc/src/internal/adapter"
	"fortnite-lobbybot-svc/src/internal/config"
	"fortnite-lobbybot-svc/src/internal/models"
	"fortnite-lobbybot-svc/src/internal/vault"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RegisterRequest carries the device-auth credentials for a new account.
// The plaintext never leaves this service; only the encrypted blob is
// stored.
type RegisterRequest struct {
	EpicUsername    string `json:"epic_username" binding:"required"`
	EpicDisplayName string `json:"epic_display_name"`
	DeviceID        string `json:"device_id" binding:"required"`
	EpicAccountID   string `json:"epic_account_id" binding:"required"`
	Secret          string `json:"secret" binding:"required"`
	ClientToken     string `json:"client_token"`
}

type Service interface {
	Register(ctx context.Context, ownerID string, req *RegisterRequest) (*EpicAccount, error)
	Remove(ctx context.Context, ownerID, epicUsername string) error
	List(ctx context.Context, ownerID string) ([]*EpicAccount, error)
}

type accountService struct {
	repository Repository
	vault      vault.Service
	cfg        *config.Configuration
}

func NewAccountService(repository Repository, credVault vault.Service, cfg *config.Configuration) Service {
	return &accountService{
		repository: repository,
		vault:      credVault,
		cfg:        cfg,
	}
}

func (s *accountService) Register(ctx context.Context, ownerID string, req *RegisterRequest) (*EpicAccount, error) {
	count, err := s.repository.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if count >= int64(s.cfg.Session.MaxAccountsPerUser) {
		return nil, models.ErrAccountLimitExceeded
	}

	blob, err := s.vault.Encrypt(adapter.Credentials{
		DeviceID:    req.DeviceID,
		AccountID:   req.EpicAccountID,
		Secret:      req.Secret,
		ClientToken: req.ClientToken,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to encrypt credentials")
		return nil, err
	}

	account := &EpicAccount{
		AccountID:            uuid.NewString(),
		OwnerID:              ownerID,
		EpicUsername:         req.EpicUsername,
		EpicDisplayName:      req.EpicDisplayName,
		EncryptedCredentials: blob,
		Status:               StatusActive,
	}

	if err := s.repository.Create(ctx, account); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"owner_id":      ownerID,
		"epic_username": req.EpicUsername,
	}).Info("Account registered")
	return account, nil
}

func (s *accountService) Remove(ctx context.Context, ownerID, epicUsername string) error {
	return s.repository.Remove(ctx, ownerID, epicUsername)
}

func (s *accountService) List(ctx context.Context, ownerID string) ([]*EpicAccount, error) {
	accountList, err := s.repository.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if accountList == nil {
		accountList = []*EpicAccount{}
	}
	return accountList, nil
}
