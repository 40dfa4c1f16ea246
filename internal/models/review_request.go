package models

import "time"

// ReviewRequest is a unit of work posted by a creator: one row per posted
// piece, with ReviewsRequested slots created alongside it.
//
// Counter invariant: 0 <= ClaimedCount <= ReviewsRequested. ClaimedCount
// tracks slots that have been claimed and not abandoned; CompletedCount
// tracks accepted slots. Both are mutated only inside the same transaction
// as the slot transition that caused the change, under this row's lock.
type ReviewRequest struct {
	BaseModelWithDeleted
	OwnerID     string `gorm:"type:uuid;not null;index"`
	Title       string `gorm:"type:varchar(200);not null"`
	Description string `gorm:"type:text"`
	Category    string `gorm:"type:varchar(50);index"`

	ReviewsRequested int           `gorm:"not null"`
	ClaimedCount     int           `gorm:"not null;default:0"`
	CompletedCount   int           `gorm:"not null;default:0"`
	Status           RequestStatus `gorm:"type:varchar(20);not null;default:'pending';index"`

	// BudgetPerReview is nil for free requests. Paid requests escrow this
	// amount per slot at claim time.
	BudgetPerReview *float64
	Deadline        *time.Time

	// Relations
	Owner *User        `gorm:"foreignKey:OwnerID"`
	Slots []ReviewSlot `gorm:"foreignKey:RequestID"`
}

func (r *ReviewRequest) IsPaid() bool {
	return r.BudgetPerReview != nil && *r.BudgetPerReview > 0
}
