package models

type NotificationType string

const (
	NotificationSlotClaimed       NotificationType = "slot_claimed"
	NotificationFeedbackSubmitted NotificationType = "feedback_submitted"
	NotificationFeedbackAccepted  NotificationType = "feedback_accepted"
	NotificationFeedbackRejected  NotificationType = "feedback_rejected"
	NotificationClaimExpired      NotificationType = "claim_expired"
	NotificationDisputeOpened     NotificationType = "dispute_opened"
	NotificationDisputeResolved   NotificationType = "dispute_resolved"
	NotificationTierPromoted      NotificationType = "tier_promoted"
)

type Notification struct {
	BaseModel
	UserID  string           `gorm:"type:uuid;not null;index"`
	Type    NotificationType `gorm:"type:varchar(30);not null"`
	Title   string           `gorm:"type:varchar(200);not null"`
	Message string           `gorm:"type:text"`
	SlotID  *string          `gorm:"type:uuid"`
	IsRead  bool             `gorm:"default:false;index"`
}
