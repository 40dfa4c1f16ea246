package models

type UserStatus string
type UserRole string
type RequestStatus string
type SlotStatus string
type PaymentStatus string
type RejectionReason string
type DisputeResolution string
type AcceptMode string
type ReviewerTier string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"

	UserRoleReviewer UserRole = "reviewer"
	UserRoleCreator  UserRole = "creator"
	UserRoleAdmin    UserRole = "admin"

	RequestStatusDraft     RequestStatus = "draft"
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusInReview  RequestStatus = "in_review"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled"

	SlotStatusAvailable SlotStatus = "available"
	SlotStatusClaimed   SlotStatus = "claimed"
	SlotStatusSubmitted SlotStatus = "submitted"
	SlotStatusAccepted  SlotStatus = "accepted"
	SlotStatusRejected  SlotStatus = "rejected"
	SlotStatusDisputed  SlotStatus = "disputed"
	SlotStatusAbandoned SlotStatus = "abandoned"

	PaymentStatusNone     PaymentStatus = "none"
	PaymentStatusEscrowed PaymentStatus = "escrowed"
	PaymentStatusReleased PaymentStatus = "released"
	PaymentStatusRefunded PaymentStatus = "refunded"

	RejectionReasonLowQuality   RejectionReason = "low_quality"
	RejectionReasonOffTopic     RejectionReason = "off_topic"
	RejectionReasonTooShort     RejectionReason = "too_short"
	RejectionReasonSpam         RejectionReason = "spam"
	RejectionReasonAbusive      RejectionReason = "abusive"
	RejectionReasonOther        RejectionReason = "other"

	DisputeResolutionReviewerWins  DisputeResolution = "reviewer_wins"
	DisputeResolutionRequesterWins DisputeResolution = "requester_wins"

	AcceptModeManual AcceptMode = "manual"
	AcceptModeAuto   AcceptMode = "auto"

	TierNovice       ReviewerTier = "novice"
	TierContributor  ReviewerTier = "contributor"
	TierProfessional ReviewerTier = "professional"
	TierElite        ReviewerTier = "elite"
)

// IsTerminal reports whether a slot can no longer transition.
func (s SlotStatus) IsTerminal() bool {
	switch s {
	case SlotStatusAccepted, SlotStatusRejected, SlotStatusAbandoned:
		return true
	}
	return false
}

// IsActive reports whether the slot currently occupies the reviewer:
// a reviewer holding an active slot on a request may not claim another
// slot on the same request.
func (s SlotStatus) IsActive() bool {
	return s == SlotStatusClaimed || s == SlotStatusSubmitted
}

// Claimable request statuses. Draft and cancelled requests never accept
// claims; completed requests have no capacity left.
func (s RequestStatus) IsClaimable() bool {
	return s == RequestStatusPending || s == RequestStatusInReview
}

func (r RejectionReason) Valid() bool {
	switch r {
	case RejectionReasonLowQuality, RejectionReasonOffTopic, RejectionReasonTooShort,
		RejectionReasonSpam, RejectionReasonAbusive, RejectionReasonOther:
		return true
	}
	return false
}

// Abusive reasons carry a heavier karma penalty.
func (r RejectionReason) IsAbusive() bool {
	return r == RejectionReasonSpam || r == RejectionReasonAbusive
}
