package repositories

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Yzori/Critvue-sub002/internal/models"
)

var (
	ErrRequestNotFound = errors.New("review request not found")
)

// RequestRepository persists ReviewRequest rows. Methods take the *gorm.DB
// to run against so services can pass a transaction handle; counters on a
// request are only ever mutated through a ForUpdate read inside one.
type RequestRepository interface {
	Create(db *gorm.DB, req *models.ReviewRequest) error
	FindByID(db *gorm.DB, id string) (*models.ReviewRequest, error)
	// FindByIDForUpdate takes the request's exclusive row lock. Every claim
	// and every counter-touching transition goes through this, which is what
	// serializes concurrent claims against the same request.
	FindByIDForUpdate(db *gorm.DB, id string) (*models.ReviewRequest, error)
	FindByOwner(db *gorm.DB, ownerID string) ([]models.ReviewRequest, error)
	// FindClaimable lists requests open for claiming, optionally filtered
	// by category, newest first.
	FindClaimable(db *gorm.DB, category string, limit, offset int) ([]models.ReviewRequest, int64, error)
	Save(db *gorm.DB, req *models.ReviewRequest) error
	SoftDelete(db *gorm.DB, id string) error
}

type RequestRepositoryImpl struct{}

func NewRequestRepository() RequestRepository {
	return &RequestRepositoryImpl{}
}

func (r *RequestRepositoryImpl) Create(db *gorm.DB, req *models.ReviewRequest) error {
	return db.Create(req).Error
}

func (r *RequestRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.ReviewRequest, error) {
	var req models.ReviewRequest
	if err := db.First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepositoryImpl) FindByIDForUpdate(db *gorm.DB, id string) (*models.ReviewRequest, error) {
	var req models.ReviewRequest
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepositoryImpl) FindByOwner(db *gorm.DB, ownerID string) ([]models.ReviewRequest, error) {
	var requests []models.ReviewRequest
	err := db.Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (r *RequestRepositoryImpl) FindClaimable(db *gorm.DB, category string, limit, offset int) ([]models.ReviewRequest, int64, error) {
	query := db.Model(&models.ReviewRequest{}).
		Where("status IN ?", []models.RequestStatus{models.RequestStatusPending, models.RequestStatusInReview}).
		Where("claimed_count < reviews_requested")
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []models.ReviewRequest
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&requests).Error
	return requests, total, err
}

func (r *RequestRepositoryImpl) Save(db *gorm.DB, req *models.ReviewRequest) error {
	return db.Save(req).Error
}

func (r *RequestRepositoryImpl) SoftDelete(db *gorm.DB, id string) error {
	result := db.Delete(&models.ReviewRequest{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRequestNotFound
	}
	return nil
}
