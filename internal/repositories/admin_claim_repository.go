package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Yzori/Critvue-sub002/internal/models"
)

var (
	ErrAdminClaimNotFound = errors.New("admin claim not found")
)

// AdminClaimRepository tracks which admin is working which disputed slot.
type AdminClaimRepository interface {
	Create(db *gorm.DB, claim *models.AdminClaim) error
	FindActiveBySlot(db *gorm.DB, slotID string) (*models.AdminClaim, error)
	FindStale(db *gorm.DB, cutoff time.Time, limit int) ([]models.AdminClaim, error)
	Release(db *gorm.DB, id string, at time.Time) error
}

type AdminClaimRepositoryImpl struct{}

func NewAdminClaimRepository() AdminClaimRepository {
	return &AdminClaimRepositoryImpl{}
}

func (r *AdminClaimRepositoryImpl) Create(db *gorm.DB, claim *models.AdminClaim) error {
	return db.Create(claim).Error
}

func (r *AdminClaimRepositoryImpl) FindActiveBySlot(db *gorm.DB, slotID string) (*models.AdminClaim, error) {
	var claim models.AdminClaim
	err := db.Where("slot_id = ? AND released_at IS NULL", slotID).
		First(&claim).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdminClaimNotFound
		}
		return nil, err
	}
	return &claim, nil
}

func (r *AdminClaimRepositoryImpl) FindStale(db *gorm.DB, cutoff time.Time, limit int) ([]models.AdminClaim, error) {
	var claims []models.AdminClaim
	err := db.Where("released_at IS NULL AND created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&claims).Error
	return claims, err
}

func (r *AdminClaimRepositoryImpl) Release(db *gorm.DB, id string, at time.Time) error {
	result := db.Model(&models.AdminClaim{}).
		Where("id = ? AND released_at IS NULL", id).
		Update("released_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAdminClaimNotFound
	}
	return nil
}
