package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Yzori/Critvue-sub002/internal/models"
	"github.com/Yzori/Critvue-sub002/internal/repositories"
)

// TierRule describes one rung of the reviewer ladder: what paid work the
// tier may claim, and the thresholds a reviewer must meet to be promoted
// INTO the tier.
type TierRule struct {
	Tier        models.ReviewerTier
	PaidAllowed bool
	// MaxBudget is the per-review budget ceiling; 0 means no cap.
	MaxBudget float64
	// WeeklyQuota limits paid claims per week; 0 means unlimited.
	WeeklyQuota int

	// Promotion thresholds.
	MinKarma      int
	MinAccepted   int
	MinAcceptRate float64
	MinAvgHelpful float64
}

// The ladder is fixed. Point values are configuration; the ladder itself is
// engine logic and promotions only ever move up it.
var tierLadder = []TierRule{
	{Tier: models.TierNovice},
	{Tier: models.TierContributor, PaidAllowed: true, MaxBudget: 100, WeeklyQuota: 3,
		MinKarma: 100, MinAccepted: 5, MinAcceptRate: 0.60, MinAvgHelpful: 3.0},
	{Tier: models.TierProfessional, PaidAllowed: true, MaxBudget: 500, WeeklyQuota: 10,
		MinKarma: 400, MinAccepted: 20, MinAcceptRate: 0.75, MinAvgHelpful: 3.8},
	{Tier: models.TierElite, PaidAllowed: true,
		MinKarma: 1200, MinAccepted: 60, MinAcceptRate: 0.85, MinAvgHelpful: 4.3},
}

func ruleFor(tier models.ReviewerTier) (TierRule, int) {
	for i, r := range tierLadder {
		if r.Tier == tier {
			return r, i
		}
	}
	return tierLadder[0], 0
}

// CanClaimPaid is the pure permission rule: given the reviewer's tier, the
// slot budget and this week's paid-claim count, decide whether the claim is
// allowed. The returned reason names the specific unmet condition.
func CanClaimPaid(tier models.ReviewerTier, budget float64, weeklyClaims int64) (bool, string) {
	rule, _ := ruleFor(tier)
	if !rule.PaidAllowed {
		return false, fmt.Sprintf("tier %s does not allow paid reviews", tier)
	}
	if rule.MaxBudget > 0 && budget > rule.MaxBudget {
		return false, fmt.Sprintf("budget $%.2f exceeds tier %s ceiling of $%.2f", budget, tier, rule.MaxBudget)
	}
	if rule.WeeklyQuota > 0 && weeklyClaims >= int64(rule.WeeklyQuota) {
		return false, fmt.Sprintf("weekly paid claim quota (%d) for tier %s exhausted", rule.WeeklyQuota, tier)
	}
	return true, ""
}

// StartOfWeek returns the most recent Monday 00:00 UTC at or before t.
func StartOfWeek(t time.Time) time.Time {
	t = t.UTC()
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

type TierService struct {
	slotRepo repositories.SlotRepository
	repRepo  repositories.ReputationRepository
	notifier Notifier
	now      func() time.Time
}

func NewTierService(
	slotRepo repositories.SlotRepository,
	repRepo repositories.ReputationRepository,
	notifier Notifier,
) *TierService {
	return &TierService{
		slotRepo: slotRepo,
		repRepo:  repRepo,
		notifier: notifier,
		now:      time.Now,
	}
}

// SetClock overrides the time source; tests use this for deterministic
// weekly windows.
func (s *TierService) SetClock(now func() time.Time) {
	s.now = now
}

// CheckPaidClaim runs the full paid-claim gate for a reviewer: payout
// account readiness, then the tier/budget/quota rules against this week's
// claim count. Runs on the caller's transaction.
func (s *TierService) CheckPaidClaim(tx *gorm.DB, user *models.User, budget float64) (bool, string, error) {
	if !user.PayoutReady {
		return false, "payout account is not set up; paid claims require a verified payout account", nil
	}

	stats, err := s.repRepo.GetOrCreateStats(tx, user.ID)
	if err != nil {
		return false, "", err
	}

	weekly, err := s.slotRepo.CountPaidClaimsSince(tx, user.ID, StartOfWeek(s.now()))
	if err != nil {
		return false, "", err
	}

	allowed, reason := CanClaimPaid(stats.Tier, budget, weekly)
	return allowed, reason, nil
}

// CheckAndPromote compares the stats against the next rung and promotes at
// most one step. Promotion is one-way and recorded as an immutable
// milestone. Runs on the caller's transaction; the caller holds the stats
// row lock.
func (s *TierService) CheckAndPromote(tx *gorm.DB, stats *models.ReviewerStats) (bool, error) {
	_, idx := ruleFor(stats.Tier)
	if idx+1 >= len(tierLadder) {
		return false, nil
	}
	next := tierLadder[idx+1]

	if stats.KarmaPoints < next.MinKarma ||
		stats.AcceptedCount < next.MinAccepted ||
		stats.AcceptanceRate < next.MinAcceptRate ||
		stats.AvgHelpfulRating < next.MinAvgHelpful {
		return false, nil
	}

	from := stats.Tier
	stats.Tier = next.Tier
	if err := s.repRepo.SaveStats(tx, stats); err != nil {
		return false, err
	}
	if err := s.repRepo.CreateMilestone(tx, &models.TierMilestone{
		UserID:   stats.UserID,
		FromTier: from,
		ToTier:   next.Tier,
	}); err != nil {
		return false, err
	}

	if s.notifier != nil {
		s.notifier.Notify(stats.UserID, models.NotificationTierPromoted,
			"Tier promoted",
			fmt.Sprintf("You have been promoted from %s to %s", from, next.Tier),
			nil)
	}
	return true, nil
}
