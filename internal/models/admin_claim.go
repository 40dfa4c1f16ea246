package models

import "time"

// AdminClaim locks a disputed slot to one admin while they work the dispute
// queue. Stale locks (older than the configured window, admin never resolved)
// are released by the daily sweep so the dispute returns to the queue.
type AdminClaim struct {
	BaseModel
	AdminID    string     `gorm:"type:uuid;not null;index"`
	SlotID     string     `gorm:"type:uuid;not null;index"`
	ReleasedAt *time.Time `gorm:"index"`
}

func (c *AdminClaim) IsReleased() bool {
	return c.ReleasedAt != nil
}
