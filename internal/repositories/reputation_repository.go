package repositories

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Yzori/Critvue-sub002/internal/models"
)

// ReputationRepository owns ReviewerStats rows and the append-only karma
// ledger. Stats mutations happen under the row lock taken by
// GetOrCreateStatsForUpdate, inside the same transaction as the slot
// transition that triggered them.
type ReputationRepository interface {
	GetOrCreateStats(db *gorm.DB, userID string) (*models.ReviewerStats, error)
	GetOrCreateStatsForUpdate(db *gorm.DB, userID string) (*models.ReviewerStats, error)
	SaveStats(db *gorm.DB, stats *models.ReviewerStats) error
	// AppendEvent writes one ledger row. The ledger is append-only: there
	// is deliberately no update or delete method.
	AppendEvent(db *gorm.DB, event *models.KarmaEvent) error
	FindEventsByUser(db *gorm.DB, userID string, limit int) ([]models.KarmaEvent, error)
	CreateMilestone(db *gorm.DB, milestone *models.TierMilestone) error
	FindMilestonesByUser(db *gorm.DB, userID string) ([]models.TierMilestone, error)
}

type ReputationRepositoryImpl struct{}

func NewReputationRepository() ReputationRepository {
	return &ReputationRepositoryImpl{}
}

func (r *ReputationRepositoryImpl) GetOrCreateStats(db *gorm.DB, userID string) (*models.ReviewerStats, error) {
	return r.getOrCreate(db, userID, false)
}

func (r *ReputationRepositoryImpl) GetOrCreateStatsForUpdate(db *gorm.DB, userID string) (*models.ReviewerStats, error) {
	return r.getOrCreate(db, userID, true)
}

func (r *ReputationRepositoryImpl) getOrCreate(db *gorm.DB, userID string, forUpdate bool) (*models.ReviewerStats, error) {
	query := db
	if forUpdate {
		query = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var stats models.ReviewerStats
	err := query.First(&stats, "user_id = ?", userID).Error
	if err == nil {
		return &stats, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	stats = models.ReviewerStats{UserID: userID, Tier: models.TierNovice}
	if err := db.Create(&stats).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *ReputationRepositoryImpl) SaveStats(db *gorm.DB, stats *models.ReviewerStats) error {
	return db.Save(stats).Error
}

func (r *ReputationRepositoryImpl) AppendEvent(db *gorm.DB, event *models.KarmaEvent) error {
	return db.Create(event).Error
}

func (r *ReputationRepositoryImpl) FindEventsByUser(db *gorm.DB, userID string, limit int) ([]models.KarmaEvent, error) {
	var events []models.KarmaEvent
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *ReputationRepositoryImpl) CreateMilestone(db *gorm.DB, milestone *models.TierMilestone) error {
	return db.Create(milestone).Error
}

func (r *ReputationRepositoryImpl) FindMilestonesByUser(db *gorm.DB, userID string) ([]models.TierMilestone, error) {
	var milestones []models.TierMilestone
	err := db.Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&milestones).Error
	return milestones, err
}
