package repositories

import (
	"gorm.io/gorm"

	"github.com/Yzori/Critvue-sub002/internal/models"
)

type PaymentRepository interface {
	CreateTransaction(db *gorm.DB, tx *models.PaymentTransaction) error
	FindBySlot(db *gorm.DB, slotID string) ([]models.PaymentTransaction, error)
}

type PaymentRepositoryImpl struct{}

func NewPaymentRepository() PaymentRepository {
	return &PaymentRepositoryImpl{}
}

func (r *PaymentRepositoryImpl) CreateTransaction(db *gorm.DB, tx *models.PaymentTransaction) error {
	return db.Create(tx).Error
}

func (r *PaymentRepositoryImpl) FindBySlot(db *gorm.DB, slotID string) ([]models.PaymentTransaction, error) {
	var txs []models.PaymentTransaction
	err := db.Where("slot_id = ?", slotID).
		Order("created_at ASC").
		Find(&txs).Error
	return txs, err
}
