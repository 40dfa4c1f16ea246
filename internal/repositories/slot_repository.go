package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Yzori/Critvue-sub002/internal/models"
)

var (
	ErrSlotNotFound = errors.New("review slot not found")
)

type SlotRepository interface {
	Create(db *gorm.DB, slot *models.ReviewSlot) error
	CreateBatch(db *gorm.DB, slots []models.ReviewSlot) error
	FindByID(db *gorm.DB, id string) (*models.ReviewSlot, error)
	// FindByIDForUpdate locks the slot row. User transitions and scheduler
	// sweeps both go through this, making them mutually exclusive on the
	// same slot.
	FindByIDForUpdate(db *gorm.DB, id string) (*models.ReviewSlot, error)
	// FindAvailableForUpdate picks one available slot on the request and
	// locks it. Callers must already hold the request's row lock.
	FindAvailableForUpdate(db *gorm.DB, requestID string) (*models.ReviewSlot, error)
	FindByRequest(db *gorm.DB, requestID string) ([]models.ReviewSlot, error)
	FindByReviewer(db *gorm.DB, reviewerID string) ([]models.ReviewSlot, error)
	// FindDisputed lists slots awaiting dispute resolution, oldest first.
	FindDisputed(db *gorm.DB, limit, offset int) ([]models.ReviewSlot, error)
	// HasActiveSlot reports whether the reviewer holds a claimed or
	// submitted slot on the request. Enforced under the request lock rather
	// than a DB constraint because it spans a filtered status set.
	HasActiveSlot(db *gorm.DB, requestID, reviewerID string) (bool, error)
	HasActiveSlotsOnRequest(db *gorm.DB, requestID string) (bool, error)
	CountPaidClaimsSince(db *gorm.DB, reviewerID string, since time.Time) (int64, error)
	Save(db *gorm.DB, slot *models.ReviewSlot) error

	// Sweep candidate queries. They read without locks; the sweep re-locks
	// and re-checks each candidate inside its own transaction.
	FindExpiredClaimed(db *gorm.DB, now time.Time, limit int) ([]models.ReviewSlot, error)
	FindAutoAcceptDue(db *gorm.DB, now time.Time, limit int) ([]models.ReviewSlot, error)
	FindStaleRejected(db *gorm.DB, cutoff time.Time, limit int) ([]models.ReviewSlot, error)
}

type SlotRepositoryImpl struct{}

func NewSlotRepository() SlotRepository {
	return &SlotRepositoryImpl{}
}

func (r *SlotRepositoryImpl) Create(db *gorm.DB, slot *models.ReviewSlot) error {
	return db.Create(slot).Error
}

func (r *SlotRepositoryImpl) CreateBatch(db *gorm.DB, slots []models.ReviewSlot) error {
	if len(slots) == 0 {
		return nil
	}
	return db.Create(&slots).Error
}

func (r *SlotRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.ReviewSlot, error) {
	var slot models.ReviewSlot
	if err := db.First(&slot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &slot, nil
}

func (r *SlotRepositoryImpl) FindByIDForUpdate(db *gorm.DB, id string) (*models.ReviewSlot, error) {
	var slot models.ReviewSlot
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&slot, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &slot, nil
}

func (r *SlotRepositoryImpl) FindAvailableForUpdate(db *gorm.DB, requestID string) (*models.ReviewSlot, error) {
	var slot models.ReviewSlot
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("request_id = ? AND status = ?", requestID, models.SlotStatusAvailable).
		Order("created_at ASC").
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &slot, nil
}

func (r *SlotRepositoryImpl) FindByRequest(db *gorm.DB, requestID string) ([]models.ReviewSlot, error) {
	var slots []models.ReviewSlot
	err := db.Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&slots).Error
	return slots, err
}

func (r *SlotRepositoryImpl) FindByReviewer(db *gorm.DB, reviewerID string) ([]models.ReviewSlot, error) {
	var slots []models.ReviewSlot
	err := db.Where("reviewer_id = ?", reviewerID).
		Order("created_at DESC").
		Find(&slots).Error
	return slots, err
}

func (r *SlotRepositoryImpl) FindDisputed(db *gorm.DB, limit, offset int) ([]models.ReviewSlot, error) {
	var slots []models.ReviewSlot
	err := db.Where("status = ?", models.SlotStatusDisputed).
		Order("updated_at ASC").
		Limit(limit).Offset(offset).
		Find(&slots).Error
	return slots, err
}

func (r *SlotRepositoryImpl) HasActiveSlot(db *gorm.DB, requestID, reviewerID string) (bool, error) {
	var count int64
	err := db.Model(&models.ReviewSlot{}).
		Where("request_id = ? AND reviewer_id = ? AND status IN ?",
			requestID, reviewerID,
			[]models.SlotStatus{models.SlotStatusClaimed, models.SlotStatusSubmitted}).
		Count(&count).Error
	return count > 0, err
}

func (r *SlotRepositoryImpl) HasActiveSlotsOnRequest(db *gorm.DB, requestID string) (bool, error) {
	var count int64
	err := db.Model(&models.ReviewSlot{}).
		Where("request_id = ? AND status IN ?",
			requestID,
			[]models.SlotStatus{models.SlotStatusClaimed, models.SlotStatusSubmitted}).
		Count(&count).Error
	return count > 0, err
}

// CountPaidClaimsSince counts the reviewer's paid claims in the window.
// Abandoned claims clear reviewer_id but stay countable via abandoned_by:
// walking away does not hand the quota back.
func (r *SlotRepositoryImpl) CountPaidClaimsSince(db *gorm.DB, reviewerID string, since time.Time) (int64, error) {
	var count int64
	err := db.Model(&models.ReviewSlot{}).
		Where("(reviewer_id = ? OR abandoned_by = ?) AND payment_amount > 0 AND claimed_at >= ?",
			reviewerID, reviewerID, since).
		Count(&count).Error
	return count, err
}

func (r *SlotRepositoryImpl) Save(db *gorm.DB, slot *models.ReviewSlot) error {
	return db.Save(slot).Error
}

func (r *SlotRepositoryImpl) FindExpiredClaimed(db *gorm.DB, now time.Time, limit int) ([]models.ReviewSlot, error) {
	var slots []models.ReviewSlot
	err := db.Where("status = ? AND claim_deadline < ?", models.SlotStatusClaimed, now).
		Order("claim_deadline ASC").
		Limit(limit).
		Find(&slots).Error
	return slots, err
}

func (r *SlotRepositoryImpl) FindAutoAcceptDue(db *gorm.DB, now time.Time, limit int) ([]models.ReviewSlot, error) {
	var slots []models.ReviewSlot
	err := db.Where("status = ? AND auto_accept_deadline < ?", models.SlotStatusSubmitted, now).
		Order("auto_accept_deadline ASC").
		Limit(limit).
		Find(&slots).Error
	return slots, err
}

func (r *SlotRepositoryImpl) FindStaleRejected(db *gorm.DB, cutoff time.Time, limit int) ([]models.ReviewSlot, error) {
	var slots []models.ReviewSlot
	err := db.Where("status = ? AND is_disputed = false AND payment_status = ? AND updated_at < ?",
		models.SlotStatusRejected, models.PaymentStatusEscrowed, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&slots).Error
	return slots, err
}
