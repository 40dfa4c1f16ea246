package dto

import (
	"time"

	"github.com/Yzori/Critvue-sub002/internal/models"
)

type ReputationResponse struct {
	UserID           string              `json:"user_id"`
	KarmaPoints      int                 `json:"karma_points"`
	Tier             models.ReviewerTier `json:"tier"`
	AcceptedCount    int                 `json:"accepted_count"`
	RejectedCount    int                 `json:"rejected_count"`
	AcceptanceRate   float64             `json:"acceptance_rate"`
	AvgHelpfulRating float64             `json:"avg_helpful_rating"`
	CurrentStreak    int                 `json:"current_streak"`
	LongestStreak    int                 `json:"longest_streak"`
	RecentEvents     []*KarmaEventInfo   `json:"recent_events,omitempty"`
	Milestones       []*MilestoneInfo    `json:"milestones,omitempty"`
}

type KarmaEventInfo struct {
	Action    models.KarmaAction `json:"action"`
	Points    int                `json:"points"`
	Balance   int                `json:"balance"`
	SlotID    *string            `json:"slot_id,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

type MilestoneInfo struct {
	FromTier  models.ReviewerTier `json:"from_tier"`
	ToTier    models.ReviewerTier `json:"to_tier"`
	CreatedAt time.Time           `json:"created_at"`
}
