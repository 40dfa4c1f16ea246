package services

import (
	"gorm.io/gorm"

	"github.com/Yzori/Critvue-sub002/internal/models"
	"github.com/Yzori/Critvue-sub002/internal/repositories"
	"github.com/Yzori/Critvue-sub002/internal/services/dto"
)

// ReputationService exposes reviewer reputation for the API. All writes to
// reputation happen through the transition hooks; this service only reads.
type ReputationService interface {
	GetProfile(userID string) (*dto.ReputationResponse, error)
	GetKarmaHistory(userID string, limit int) ([]*dto.KarmaEventInfo, error)
}

type reputationService struct {
	db      Database
	repRepo repositories.ReputationRepository
}

func NewReputationService(db Database, repRepo repositories.ReputationRepository) ReputationService {
	return &reputationService{db: db, repRepo: repRepo}
}

func (s *reputationService) GetProfile(userID string) (*dto.ReputationResponse, error) {
	var stats *models.ReviewerStats
	var events []models.KarmaEvent
	var milestones []models.TierMilestone
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		stats, err = s.repRepo.GetOrCreateStats(tx, userID)
		if err != nil {
			return err
		}
		events, err = s.repRepo.FindEventsByUser(tx, userID, 20)
		if err != nil {
			return err
		}
		milestones, err = s.repRepo.FindMilestonesByUser(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.ReputationResponse{
		UserID:           stats.UserID,
		KarmaPoints:      stats.KarmaPoints,
		Tier:             stats.Tier,
		AcceptedCount:    stats.AcceptedCount,
		RejectedCount:    stats.RejectedCount,
		AcceptanceRate:   stats.AcceptanceRate,
		AvgHelpfulRating: stats.AvgHelpfulRating,
		CurrentStreak:    stats.CurrentStreak,
		LongestStreak:    stats.LongestStreak,
	}
	for i := range events {
		resp.RecentEvents = append(resp.RecentEvents, karmaEventToInfo(&events[i]))
	}
	for i := range milestones {
		resp.Milestones = append(resp.Milestones, &dto.MilestoneInfo{
			FromTier:  milestones[i].FromTier,
			ToTier:    milestones[i].ToTier,
			CreatedAt: milestones[i].CreatedAt,
		})
	}
	return resp, nil
}

func (s *reputationService) GetKarmaHistory(userID string, limit int) ([]*dto.KarmaEventInfo, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var events []models.KarmaEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		events, err = s.repRepo.FindEventsByUser(tx, userID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]*dto.KarmaEventInfo, len(events))
	for i := range events {
		out[i] = karmaEventToInfo(&events[i])
	}
	return out, nil
}

func karmaEventToInfo(e *models.KarmaEvent) *dto.KarmaEventInfo {
	return &dto.KarmaEventInfo{
		Action:    e.Action,
		Points:    e.Points,
		Balance:   e.Balance,
		SlotID:    e.SlotID,
		CreatedAt: e.CreatedAt,
	}
}
