package models

import "time"

// SessionState is the lifecycle state of a bot session.
type SessionState string

const (
	StateOffline     SessionState = "offline"
	StateStarting    SessionState = "starting"
	StateOnline      SessionState = "online"
	StateIdleWarning SessionState = "idle_warning"
	StateStopping    SessionState = "stopping"
)

// Active reports whether the state counts against concurrency limits.
func (s SessionState) Active() bool {
	return s != "" && s != StateOffline
}

// TerminationReason records why a session reached offline.
type TerminationReason string

const (
	ReasonTimeout  TerminationReason = "timeout"
	ReasonManual   TerminationReason = "manual"
	ReasonError    TerminationReason = "error"
	ReasonCrash    TerminationReason = "crash"
	ReasonShutdown TerminationReason = "shutdown"
)

// Cosmetics is the currently applied loadout for a bot session.
type Cosmetics struct {
	SkinID      string `bson:"skin_id,omitempty" json:"skin_id,omitempty"`
	BackblingID string `bson:"backbling_id,omitempty" json:"backbling_id,omitempty"`
	PickaxeID   string `bson:"pickaxe_id,omitempty" json:"pickaxe_id,omitempty"`
	EmoteID     string `bson:"emote_id,omitempty" json:"emote_id,omitempty"`
	Level       int    `bson:"level,omitempty" json:"level,omitempty"`
	CrownWins   int    `bson:"crown_wins,omitempty" json:"crown_wins,omitempty"`
}

// Empty reports whether no cosmetic field is set.
func (c Cosmetics) Empty() bool {
	return c == Cosmetics{}
}

// BotSession is the runtime record for one account's bot instance.
type BotSession struct {
	SessionID         string            `bson:"session_id" json:"session_id"`
	AccountID         string            `bson:"account_id" json:"account_id"`
	OwnerID           string            `bson:"owner_id" json:"owner_id"`
	EpicUsername      string            `bson:"epic_username" json:"epic_username"`
	State             SessionState      `bson:"state" json:"state"`
	StartedAt         time.Time         `bson:"started_at" json:"started_at"`
	LastActivityAt    time.Time         `bson:"last_activity_at" json:"last_activity_at"`
	EndedAt           *time.Time        `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
	TimeoutMinutes    int               `bson:"timeout_minutes" json:"timeout_minutes"`
	ExtensionsUsed    int               `bson:"extensions_used" json:"extensions_used"`
	TerminationReason TerminationReason `bson:"termination_reason,omitempty" json:"termination_reason,omitempty"`
	Cosmetics         Cosmetics         `bson:"cosmetics" json:"cosmetics"`
}

// RemainingSeconds computes seconds left before the idle timeout fires.
// Never negative; an expired session reports zero.
func (s *BotSession) RemainingSeconds(now time.Time) int {
	deadline := s.LastActivityAt.Add(time.Duration(s.TimeoutMinutes) * time.Minute)
	remaining := int(deadline.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}
