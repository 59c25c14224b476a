package models

import "errors"

var (
	ErrAlreadyRunning         = errors.New("bot is already running")
	ErrNotRunning             = errors.New("bot is not running")
	ErrUserLimitExceeded      = errors.New("maximum concurrent bots per user reached")
	ErrGlobalLimitExceeded    = errors.New("server is at maximum capacity")
	ErrExtensionLimitExceeded = errors.New("maximum session extensions reached")
	ErrAuthenticationFailed   = errors.New("bot authentication failed")
	ErrAdapterCrashed         = errors.New("bot client crashed")
	ErrOperationTimedOut      = errors.New("operation timed out")
	ErrShuttingDown           = errors.New("service is shutting down")
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrDuplicateAccount     = errors.New("account already registered")
	ErrAccountLimitExceeded = errors.New("maximum registered accounts reached")
	ErrCredentialDecrypt    = errors.New("failed to decrypt credentials")
)

var (
	ErrDatabaseQuery  = errors.New("database query error")
	ErrDatabaseInsert = errors.New("database insert error")
	ErrDatabaseUpdate = errors.New("database update error")
	ErrDatabaseDelete = errors.New("database delete error")
	ErrRecordNotFound = errors.New("record not found")
)

var (
	ErrRedisGet    = errors.New("redis get error")
	ErrRedisSet    = errors.New("redis set error")
	ErrRedisDelete = errors.New("redis delete error")
)

// IsLimitExceeded reports whether err is either concurrency-cap rejection.
func IsLimitExceeded(err error) bool {
	return errors.Is(err, ErrUserLimitExceeded) || errors.Is(err, ErrGlobalLimitExceeded)
}
