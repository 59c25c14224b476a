package models

import (
	"fmt"
	"time"
)

// FormatUptime renders the elapsed time since start as "1h 2m 3s".
func FormatUptime(start, now time.Time) string {
	total := int(now.Sub(start).Seconds())
	if total < 0 {
		total = 0
	}

	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// FormatRemaining renders seconds-until-timeout as "12m 30s".
func FormatRemaining(seconds int) string {
	if seconds <= 0 {
		return "0s"
	}

	minutes := seconds / 60
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}
