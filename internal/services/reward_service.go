package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/Yzori/Critvue-sub002/internal/config"
	"github.com/Yzori/Critvue-sub002/internal/models"
	"github.com/Yzori/Critvue-sub002/internal/repositories"
)

// TransitionHooks is invoked by the state machine inside the transition's
// transaction, after the slot and counter mutations: either everything
// commits together or nothing does.
type TransitionHooks interface {
	OnSubmitted(tx *gorm.DB, slot *models.ReviewSlot) error
	OnAccepted(tx *gorm.DB, slot *models.ReviewSlot, mode models.AcceptMode, helpfulRating *int) error
	OnRejected(tx *gorm.DB, slot *models.ReviewSlot, reason models.RejectionReason) error
	OnAbandoned(tx *gorm.DB, slot *models.ReviewSlot, reviewerID string) error
	OnDisputeResolved(tx *gorm.DB, slot *models.ReviewSlot, resolution models.DisputeResolution) error
}

// RewardService adjusts reviewer reputation in response to slot
// transitions. It is the only writer of ReviewerStats besides the tier
// service, and every point change lands in the append-only karma ledger.
type RewardService struct {
	repRepo repositories.ReputationRepository
	tiers   *TierService
	karma   config.KarmaConfig
	now     func() time.Time
}

func NewRewardService(
	repRepo repositories.ReputationRepository,
	tiers *TierService,
	karma config.KarmaConfig,
) *RewardService {
	return &RewardService{
		repRepo: repRepo,
		tiers:   tiers,
		karma:   karma,
		now:     time.Now,
	}
}

func (s *RewardService) SetClock(now func() time.Time) {
	s.now = now
}

// award mutates the balance and appends the ledger row. Points may be
// negative; the balance may go negative too, tier rules handle that.
func (s *RewardService) award(tx *gorm.DB, stats *models.ReviewerStats, action models.KarmaAction, points int, slotID string) error {
	stats.KarmaPoints += points
	return s.repRepo.AppendEvent(tx, &models.KarmaEvent{
		UserID:  stats.UserID,
		SlotID:  &slotID,
		Action:  action,
		Points:  points,
		Balance: stats.KarmaPoints,
	})
}

// OnSubmitted awards the submission bonus plus daily-activity rewards:
// a first-action-of-the-day bonus and the streak counter with milestone
// bonuses at 5, 10 and 25 consecutive days.
func (s *RewardService) OnSubmitted(tx *gorm.DB, slot *models.ReviewSlot) error {
	if slot.ReviewerID == nil {
		return nil
	}
	stats, err := s.repRepo.GetOrCreateStatsForUpdate(tx, *slot.ReviewerID)
	if err != nil {
		return err
	}

	if err := s.award(tx, stats, models.KarmaActionSubmission, s.karma.SubmissionBonus, slot.ID); err != nil {
		return err
	}

	today := dateOnly(s.now().UTC())
	if stats.LastActiveDate == nil || !stats.LastActiveDate.Equal(today) {
		if err := s.award(tx, stats, models.KarmaActionFirstOfDay, s.karma.FirstOfDayBonus, slot.ID); err != nil {
			return err
		}

		yesterday := today.AddDate(0, 0, -1)
		if stats.LastActiveDate != nil && stats.LastActiveDate.Equal(yesterday) {
			stats.CurrentStreak++
		} else {
			stats.CurrentStreak = 1
		}
		if stats.CurrentStreak > stats.LongestStreak {
			stats.LongestStreak = stats.CurrentStreak
		}
		stats.LastActiveDate = &today

		if bonus := s.streakBonus(stats.CurrentStreak); bonus > 0 {
			if err := s.award(tx, stats, models.KarmaActionStreakBonus, bonus, slot.ID); err != nil {
				return err
			}
		}
	}

	return s.repRepo.SaveStats(tx, stats)
}

func (s *RewardService) streakBonus(streak int) int {
	switch streak {
	case 5:
		return s.karma.Streak5Bonus
	case 10:
		return s.karma.Streak10Bonus
	case 25:
		return s.karma.Streak25Bonus
	}
	return 0
}

// OnAccepted awards points scaled by the creator's helpful rating (or the
// smaller auto-accept bonus), recomputes the acceptance rate and triggers
// the promotion check.
func (s *RewardService) OnAccepted(tx *gorm.DB, slot *models.ReviewSlot, mode models.AcceptMode, helpfulRating *int) error {
	if slot.ReviewerID == nil {
		return nil
	}
	stats, err := s.repRepo.GetOrCreateStatsForUpdate(tx, *slot.ReviewerID)
	if err != nil {
		return err
	}

	action := models.KarmaActionAccepted
	points := s.acceptPoints(mode, helpfulRating)
	if mode == models.AcceptModeAuto {
		action = models.KarmaActionAutoAccepted
	}
	if err := s.award(tx, stats, action, points, slot.ID); err != nil {
		return err
	}

	stats.AcceptedCount++
	recomputeAcceptanceRate(stats)

	if helpfulRating != nil {
		total := stats.AvgHelpfulRating*float64(stats.RatedAcceptCount) + float64(*helpfulRating)
		stats.RatedAcceptCount++
		stats.AvgHelpfulRating = total / float64(stats.RatedAcceptCount)
	}

	if err := s.repRepo.SaveStats(tx, stats); err != nil {
		return err
	}

	_, err = s.tiers.CheckAndPromote(tx, stats)
	return err
}

func (s *RewardService) acceptPoints(mode models.AcceptMode, helpfulRating *int) int {
	if mode == models.AcceptModeAuto {
		return s.karma.AutoAcceptBonus
	}
	if helpfulRating == nil {
		return s.karma.AcceptUnratedBonus
	}
	switch *helpfulRating {
	case 5:
		return s.karma.Accept5StarBonus
	case 4:
		return s.karma.Accept4StarBonus
	case 3:
		return s.karma.Accept3StarBonus
	}
	// 1-2 star acceptances still count, but earn no rating bonus beyond
	// the unrated baseline.
	return s.karma.AcceptUnratedBonus
}

// OnRejected deducts points, with a much larger penalty for spam/abusive
// rejections, and recomputes the acceptance rate.
func (s *RewardService) OnRejected(tx *gorm.DB, slot *models.ReviewSlot, reason models.RejectionReason) error {
	if slot.ReviewerID == nil {
		return nil
	}
	stats, err := s.repRepo.GetOrCreateStatsForUpdate(tx, *slot.ReviewerID)
	if err != nil {
		return err
	}

	penalty := s.karma.RejectPenalty
	if reason.IsAbusive() {
		penalty = s.karma.RejectSpamPenalty
	}
	if err := s.award(tx, stats, models.KarmaActionRejected, -penalty, slot.ID); err != nil {
		return err
	}

	stats.RejectedCount++
	recomputeAcceptanceRate(stats)

	return s.repRepo.SaveStats(tx, stats)
}

// OnAbandoned deducts the fixed abandonment penalty. The reviewer id comes
// from the caller because the slot row is already cleared by the time the
// hook runs.
func (s *RewardService) OnAbandoned(tx *gorm.DB, slot *models.ReviewSlot, reviewerID string) error {
	stats, err := s.repRepo.GetOrCreateStatsForUpdate(tx, reviewerID)
	if err != nil {
		return err
	}
	if err := s.award(tx, stats, models.KarmaActionAbandoned, -s.karma.AbandonPenalty, slot.ID); err != nil {
		return err
	}
	return s.repRepo.SaveStats(tx, stats)
}

// OnDisputeResolved settles the dispute's reputation impact. A reviewer
// win reverses the original rejection: the rejected/accepted counts are
// corrected, the rate recomputed and the promotion check redone.
func (s *RewardService) OnDisputeResolved(tx *gorm.DB, slot *models.ReviewSlot, resolution models.DisputeResolution) error {
	if slot.ReviewerID == nil {
		return nil
	}
	stats, err := s.repRepo.GetOrCreateStatsForUpdate(tx, *slot.ReviewerID)
	if err != nil {
		return err
	}

	if resolution == models.DisputeResolutionReviewerWins {
		if err := s.award(tx, stats, models.KarmaActionDisputeWon, s.karma.DisputeWonBonus, slot.ID); err != nil {
			return err
		}
		if stats.RejectedCount > 0 {
			stats.RejectedCount--
		}
		stats.AcceptedCount++
		recomputeAcceptanceRate(stats)

		if err := s.repRepo.SaveStats(tx, stats); err != nil {
			return err
		}
		_, err = s.tiers.CheckAndPromote(tx, stats)
		return err
	}

	if err := s.award(tx, stats, models.KarmaActionDisputeLost, -s.karma.DisputeLostPenalty, slot.ID); err != nil {
		return err
	}
	return s.repRepo.SaveStats(tx, stats)
}

func recomputeAcceptanceRate(stats *models.ReviewerStats) {
	total := stats.AcceptedCount + stats.RejectedCount
	if total == 0 {
		stats.AcceptanceRate = 0
		return
	}
	stats.AcceptanceRate = float64(stats.AcceptedCount) / float64(total)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
