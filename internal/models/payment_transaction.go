package models

type PaymentTransactionType string

const (
	PaymentTransactionEscrow  PaymentTransactionType = "escrow"
	PaymentTransactionRelease PaymentTransactionType = "release"
	PaymentTransactionRefund  PaymentTransactionType = "refund"
)

// PaymentTransaction mirrors every call into the payment provider wrapper.
// NetAmount is the amount after the platform fee (release only).
type PaymentTransaction struct {
	BaseModel
	SlotID    string                 `gorm:"type:uuid;not null;index"`
	UserID    *string                `gorm:"type:uuid;index"`
	Type      PaymentTransactionType `gorm:"type:varchar(10);not null"`
	Amount    float64                `gorm:"not null"`
	NetAmount float64                `gorm:"not null;default:0"`
	InvoiceID string                 `gorm:"type:varchar(64);index"`
}
