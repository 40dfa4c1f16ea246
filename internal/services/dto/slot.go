package dto

import (
	"time"

	"github.com/Yzori/Critvue-sub002/internal/models"
)

type SubmitFeedbackRequest struct {
	FeedbackText string                   `json:"feedback_text"`
	Sections     []models.FeedbackSection `json:"sections,omitempty"`
	Rating       int                      `json:"rating" binding:"required,min=1,max=5"`
}

type AcceptFeedbackRequest struct {
	HelpfulRating *int `json:"helpful_rating,omitempty" binding:"omitempty,min=1,max=5"`
}

type RejectFeedbackRequest struct {
	Reason string `json:"reason" binding:"required"`
	Notes  string `json:"notes,omitempty" binding:"max=2000"`
}

type DisputeRequest struct {
	Reason string `json:"reason" binding:"required,max=2000"`
}

type ResolveDisputeRequest struct {
	Resolution string `json:"resolution" binding:"required,oneof=reviewer_wins requester_wins"`
}

type SlotResponse struct {
	ID                 string                   `json:"id"`
	RequestID          string                   `json:"request_id"`
	ReviewerID         *string                  `json:"reviewer_id,omitempty"`
	Status             models.SlotStatus        `json:"status"`
	ClaimedAt          *time.Time               `json:"claimed_at,omitempty"`
	ClaimDeadline      *time.Time               `json:"claim_deadline,omitempty"`
	AutoAcceptDeadline *time.Time               `json:"auto_accept_deadline,omitempty"`
	FeedbackText       string                   `json:"feedback_text,omitempty"`
	Sections           []models.FeedbackSection `json:"sections,omitempty"`
	Rating             *int                     `json:"rating,omitempty"`
	RejectionReason    models.RejectionReason   `json:"rejection_reason,omitempty"`
	RejectionNotes     string                   `json:"rejection_notes,omitempty"`
	IsDisputed         bool                     `json:"is_disputed"`
	DisputeResolution  models.DisputeResolution `json:"dispute_resolution,omitempty"`
	PaymentAmount      float64                  `json:"payment_amount,omitempty"`
	PaymentStatus      models.PaymentStatus     `json:"payment_status"`
	HelpfulRating      *int                     `json:"helpful_rating,omitempty"`
	AcceptMode         models.AcceptMode        `json:"accept_mode,omitempty"`
	SubmittedAt        *time.Time               `json:"submitted_at,omitempty"`
	AcceptedAt         *time.Time               `json:"accepted_at,omitempty"`
}
