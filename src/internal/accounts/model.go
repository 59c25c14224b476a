package accounts

import "time"

// Account statuses
const (
	StatusActive = "active"
	StatusError  = "error"
	StatusBanned = "banned"
)

// EpicAccount is a registered game account owned by one user. The
// credential blob is encrypted at rest; only the vault can open it.
type EpicAccount struct {
	AccountID            string     `bson:"account_id" json:"account_id"`
	OwnerID              string     `bson:"owner_id" json:"owner_id"`
	EpicUsername         string     `bson:"epic_username" json:"epic_username"`
	EpicDisplayName      string     `bson:"epic_display_name" json:"epic_display_name"`
	EncryptedCredentials string     `bson:"encrypted_credentials" json:"-"`
	Status               string     `bson:"status" json:"status"`
	AddedAt              time.Time  `bson:"added_at" json:"added_at"`
	LastUsedAt           *time.Time `bson:"last_used_at,omitempty" json:"last_used_at,omitempty"`
	TotalSessions        int        `bson:"total_sessions" json:"total_sessions"`
}
