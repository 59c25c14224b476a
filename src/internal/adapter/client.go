package adapter

import (
	"context"

	"fortnite-lobbybot-svc/src/internal/models"
)

// Credentials are the decrypted device-auth credentials for one account.
type Credentials struct {
	DeviceID    string `json:"device_id"`
	AccountID   string `json:"account_id"`
	Secret      string `json:"secret"`
	ClientToken string `json:"client_token,omitempty"`
}

// Client drives one account's lobby-bot session. A client is owned
// exclusively by the supervisor entry that created it; nothing else may
// call it. Crashed delivers at most one asynchronous termination signal
// after a successful Connect.
type Client interface {
	Connect(ctx context.Context, creds Credentials) error
	Disconnect(ctx context.Context) error
	ApplyCosmetics(ctx context.Context, loadout models.Cosmetics) error
	Crashed() <-chan error
}

// Factory creates a fresh client per session. Tests inject fakes here.
type Factory interface {
	New(epicUsername string) Client
}
