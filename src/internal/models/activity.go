package models

import "time"

// ActivityMessage is published to the activity exchange on every
// noteworthy session event.
type ActivityMessage struct {
	OwnerID     string            `json:"owner_id"`
	AccountID   string            `json:"account_id"`
	SessionID   string            `json:"session_id,omitempty"`
	ServiceName string            `json:"service_name"`
	Action      string            `json:"action"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Activity action constants
const (
	ActionBotStart       = "bot_start"
	ActionBotStop        = "bot_stop"
	ActionBotCrash       = "bot_crash"
	ActionBotTimeout     = "bot_timeout"
	ActionSessionExtend  = "session_extend"
	ActionCosmeticChange = "cosmetic_change"
	ActionKeepalive      = "keepalive"
)

// Service name constants
const (
	ServiceSupervisor = "lobbybot.supervisor"
	ServiceSweeper    = "lobbybot.sweeper"
	ServiceBotHandler = "lobbybot.handler.bots"
)

// Notice is delivered to the owner's notification queue by the timeout
// sweep and the crash path.
type Notice struct {
	OwnerID          string    `json:"owner_id"`
	AccountID        string    `json:"account_id"`
	EpicUsername     string    `json:"epic_username"`
	Kind             string    `json:"kind"`
	RemainingSeconds int       `json:"remaining_seconds,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Notice kinds
const (
	NoticeIdleWarning = "idle_warning"
	NoticeTimedOut    = "timed_out"
	NoticeCrashed     = "crashed"
)
