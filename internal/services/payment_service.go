package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Yzori/Critvue-sub002/internal/models"
	"github.com/Yzori/Critvue-sub002/internal/repositories"
)

// PaymentProcessor is the wrapper around the payment provider. The engine
// calls it on claim (escrow), accept and dispute resolution (release) and
// refund paths; it does not implement provider logic itself. Calls run on
// the transition's transaction handle so a provider failure rolls the
// transition back.
type PaymentProcessor interface {
	Escrow(db *gorm.DB, slotID string, reviewerID *string, amount float64) error
	// Release returns the net amount credited to the reviewer after the
	// platform fee.
	Release(db *gorm.DB, slotID string, reviewerID *string, amount float64) (float64, error)
	Refund(db *gorm.DB, slotID string, ownerID string, amount float64) error
}

// ledgerProcessor records every provider call as a PaymentTransaction row.
// The actual money movement is the provider's concern; this wrapper owns
// the audit trail and the fee arithmetic.
type ledgerProcessor struct {
	paymentRepo repositories.PaymentRepository
	feePct      float64
}

func NewPaymentProcessor(paymentRepo repositories.PaymentRepository, feePct float64) PaymentProcessor {
	return &ledgerProcessor{paymentRepo: paymentRepo, feePct: feePct}
}

func (p *ledgerProcessor) Escrow(db *gorm.DB, slotID string, reviewerID *string, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("escrow amount must be positive, got %.2f", amount)
	}
	return p.paymentRepo.CreateTransaction(db, &models.PaymentTransaction{
		SlotID:    slotID,
		UserID:    reviewerID,
		Type:      models.PaymentTransactionEscrow,
		Amount:    amount,
		InvoiceID: uuid.NewString(),
	})
}

func (p *ledgerProcessor) Release(db *gorm.DB, slotID string, reviewerID *string, amount float64) (float64, error) {
	net := amount * (1 - p.feePct/100)
	err := p.paymentRepo.CreateTransaction(db, &models.PaymentTransaction{
		SlotID:    slotID,
		UserID:    reviewerID,
		Type:      models.PaymentTransactionRelease,
		Amount:    amount,
		NetAmount: net,
		InvoiceID: uuid.NewString(),
	})
	if err != nil {
		return 0, err
	}
	return net, nil
}

func (p *ledgerProcessor) Refund(db *gorm.DB, slotID string, ownerID string, amount float64) error {
	return p.paymentRepo.CreateTransaction(db, &models.PaymentTransaction{
		SlotID:    slotID,
		UserID:    &ownerID,
		Type:      models.PaymentTransactionRefund,
		Amount:    amount,
		NetAmount: amount,
		InvoiceID: uuid.NewString(),
	})
}
