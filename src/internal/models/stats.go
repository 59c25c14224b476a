package models

// Overview summarizes current capacity usage for the stats endpoint.
type Overview struct {
	ActiveGlobal   int64 `json:"active_global"`
	GlobalCapacity int64 `json:"global_capacity"`
	TotalAccounts  int64 `json:"total_accounts"`
}

// OwnerStats summarizes one owner's usage against their caps.
type OwnerStats struct {
	ActiveSessions int `json:"active_sessions"`
	PerUserCap     int `json:"per_user_cap"`
	AccountCount   int `json:"account_count"`
	AccountCap     int `json:"account_cap"`
}
