package models

import "time"

// ReviewerStats is the per-user reputation and tier record. It is mutated
// exclusively by the reward hooks and the tier service in response to slot
// transitions, never by request handling code.
type ReviewerStats struct {
	BaseModel
	UserID      string       `gorm:"type:uuid;not null;uniqueIndex"`
	KarmaPoints int          `gorm:"not null;default:0"`
	Tier        ReviewerTier `gorm:"type:varchar(20);not null;default:'novice'"`

	AcceptedCount  int     `gorm:"not null;default:0"`
	RejectedCount  int     `gorm:"not null;default:0"`
	AcceptanceRate float64 `gorm:"not null;default:0"`

	// AvgHelpfulRating averages the creator's helpful ratings over rated
	// accepted reviews only.
	AvgHelpfulRating float64 `gorm:"not null;default:0"`
	RatedAcceptCount int     `gorm:"not null;default:0"`

	CurrentStreak  int        `gorm:"not null;default:0"`
	LongestStreak  int        `gorm:"not null;default:0"`
	LastActiveDate *time.Time `gorm:"type:date"`
}

// KarmaAction tags ledger entries with the transition that produced them.
type KarmaAction string

const (
	KarmaActionSubmission     KarmaAction = "submission"
	KarmaActionFirstOfDay     KarmaAction = "first_of_day"
	KarmaActionStreakBonus    KarmaAction = "streak_bonus"
	KarmaActionAccepted       KarmaAction = "accepted"
	KarmaActionAutoAccepted   KarmaAction = "auto_accepted"
	KarmaActionRejected       KarmaAction = "rejected"
	KarmaActionAbandoned      KarmaAction = "abandoned"
	KarmaActionDisputeWon     KarmaAction = "dispute_won"
	KarmaActionDisputeLost    KarmaAction = "dispute_lost"
)

// KarmaEvent is one row of the append-only reputation ledger. Rows are
// inserted in the same transaction as the stats mutation and never updated.
type KarmaEvent struct {
	BaseModel
	UserID  string      `gorm:"type:uuid;not null;index"`
	SlotID  *string     `gorm:"type:uuid;index"`
	Action  KarmaAction `gorm:"type:varchar(30);not null"`
	Points  int         `gorm:"not null"`
	Balance int         `gorm:"not null"`
}

// TierMilestone records a promotion. Promotions are one-way; milestones are
// immutable once written.
type TierMilestone struct {
	BaseModel
	UserID   string       `gorm:"type:uuid;not null;index"`
	FromTier ReviewerTier `gorm:"type:varchar(20);not null"`
	ToTier   ReviewerTier `gorm:"type:varchar(20);not null"`
}
