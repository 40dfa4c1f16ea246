package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReviewSlot is one reviewer assignment within a request. Slots are created
// in bulk when the request is posted and are never deleted: they only move
// through the status machine until a terminal status (accepted, rejected,
// abandoned). An abandoned slot is replaced by a fresh available row so the
// request keeps its capacity and the audit trail survives.
//
// ReviewerID is set if and only if Status is one of claimed, submitted,
// accepted, rejected, disputed.
type ReviewSlot struct {
	BaseModel
	RequestID  string     `gorm:"type:uuid;not null;index"`
	ReviewerID *string    `gorm:"type:uuid;index"`
	Status     SlotStatus `gorm:"type:varchar(20);not null;default:'available';index"`

	ClaimedAt          *time.Time `gorm:"index"`
	ClaimDeadline      *time.Time `gorm:"index"`
	AutoAcceptDeadline *time.Time `gorm:"index"`

	// Submission content: either free text or structured sections, both
	// subject to the minimum-substance rule at submit time.
	FeedbackText     string         `gorm:"type:text"`
	FeedbackSections datatypes.JSON `gorm:"type:jsonb"`
	Rating           *int

	RejectionReason RejectionReason `gorm:"type:varchar(30)"`
	RejectionNotes  string          `gorm:"type:text"`

	IsDisputed        bool              `gorm:"default:false"`
	DisputeReason     string            `gorm:"type:text"`
	DisputeResolution DisputeResolution `gorm:"type:varchar(20)"`
	ResolvedBy        *string           `gorm:"type:uuid"`

	PaymentAmount float64       `gorm:"default:0"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'none'"`

	// HelpfulRating is the creator's 1-5 feedback on the feedback itself,
	// optional on manual accept.
	HelpfulRating *int
	AcceptMode    AcceptMode `gorm:"type:varchar(10)"`

	SubmittedAt *time.Time
	AcceptedAt  *time.Time
	AbandonedAt *time.Time
	// AbandonedBy keeps the walking-away reviewer on record after
	// ReviewerID is cleared, so abandoned paid claims still count against
	// the weekly quota.
	AbandonedBy *string `gorm:"type:uuid;index"`

	// Relations
	Request  *ReviewRequest `gorm:"foreignKey:RequestID"`
	Reviewer *User          `gorm:"foreignKey:ReviewerID"`
}

// FeedbackSection is one block of structured feedback stored in
// FeedbackSections as a JSON array.
type FeedbackSection struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
