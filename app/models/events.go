package models

import "time"

// UsageEvent is emitted once per committed generation.
type UsageEvent struct {
	Tier       string    `json:"tier"`
	UserID     string    `json:"user_id,omitempty"`
	GuestID    string    `json:"guest_id,omitempty"`
	UsageCount int       `json:"usage_count"`
	Platform   string    `json:"platform,omitempty"`
	At         time.Time `json:"at"`
}
