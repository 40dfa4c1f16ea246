package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yzori/Critvue-sub002/internal/models"
)

func TestCanClaimPaid_TierMatrix(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		tier         models.ReviewerTier
		budget       float64
		weeklyClaims int64
		allowed      bool
		reason       string
	}{
		{"novice never paid", models.TierNovice, 10, 0, false, "does not allow paid reviews"},
		{"contributor within cap", models.TierContributor, 100, 0, true, ""},
		{"contributor over cap", models.TierContributor, 100.01, 0, false, "ceiling"},
		{"contributor quota free", models.TierContributor, 50, 2, true, ""},
		{"contributor quota full", models.TierContributor, 50, 3, false, "quota"},
		{"professional higher cap", models.TierProfessional, 500, 0, true, ""},
		{"professional over cap", models.TierProfessional, 501, 0, false, "ceiling"},
		{"professional quota full", models.TierProfessional, 50, 10, false, "quota"},
		{"elite no cap", models.TierElite, 5000, 0, true, ""},
		{"elite no quota", models.TierElite, 50, 100, true, ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			allowed, reason := CanClaimPaid(tc.tier, tc.budget, tc.weeklyClaims)
			assert.Equal(t, tc.allowed, allowed)
			if tc.reason != "" {
				assert.Contains(t, reason, tc.reason)
			}
		})
	}
}

func TestStartOfWeek(t *testing.T) {
	t.Parallel()

	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	// Any instant of the week maps back to that Monday midnight.
	assert.Equal(t, monday, StartOfWeek(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, monday, StartOfWeek(time.Date(2025, 6, 4, 10, 30, 0, 0, time.UTC)))
	assert.Equal(t, monday, StartOfWeek(time.Date(2025, 6, 8, 23, 59, 59, 0, time.UTC)))

	// Sunday belongs to the week that started six days earlier, the next
	// Monday starts a new one.
	next := monday.AddDate(0, 0, 7)
	assert.Equal(t, next, StartOfWeek(time.Date(2025, 6, 9, 0, 0, 1, 0, time.UTC)))
}

func TestCheckAndPromote_PromotesOneStep(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	reviewer := env.seedReviewer(true)

	// Stats clear the professional thresholds outright, but promotion
	// still moves a single rung per check.
	stats, err := env.repRepo.GetOrCreateStats(nil, reviewer.ID)
	require.NoError(t, err)
	stats.KarmaPoints = 450
	stats.AcceptedCount = 25
	stats.AcceptanceRate = 0.9
	stats.AvgHelpfulRating = 4.0

	promoted, err := env.tiers.CheckAndPromote(nil, stats)
	require.NoError(t, err)
	assert.True(t, promoted)
	assert.Equal(t, models.TierContributor, stats.Tier)

	promoted, err = env.tiers.CheckAndPromote(nil, stats)
	require.NoError(t, err)
	assert.True(t, promoted)
	assert.Equal(t, models.TierProfessional, stats.Tier)

	milestones, err := env.repRepo.FindMilestonesByUser(nil, reviewer.ID)
	require.NoError(t, err)
	require.Len(t, milestones, 2)
	assert.Equal(t, models.TierNovice, milestones[0].FromTier)
	assert.Equal(t, models.TierContributor, milestones[0].ToTier)
	assert.Equal(t, models.TierContributor, milestones[1].FromTier)
	assert.Equal(t, models.TierProfessional, milestones[1].ToTier)

	assert.Equal(t, 2, env.notifier.countByType(models.NotificationTierPromoted))
}

func TestCheckAndPromote_AllThresholdsRequired(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	reviewer := env.seedReviewer(true)

	base := func() *models.ReviewerStats {
		stats, err := env.repRepo.GetOrCreateStats(nil, reviewer.ID)
		require.NoError(t, err)
		stats.Tier = models.TierNovice
		stats.KarmaPoints = 100
		stats.AcceptedCount = 5
		stats.AcceptanceRate = 0.60
		stats.AvgHelpfulRating = 3.0
		return stats
	}

	// Exactly at the contributor bar: promoted.
	stats := base()
	promoted, err := env.tiers.CheckAndPromote(nil, stats)
	require.NoError(t, err)
	assert.True(t, promoted)

	// Any single threshold below the bar blocks the promotion.
	mutations := []func(*models.ReviewerStats){
		func(s *models.ReviewerStats) { s.KarmaPoints = 99 },
		func(s *models.ReviewerStats) { s.AcceptedCount = 4 },
		func(s *models.ReviewerStats) { s.AcceptanceRate = 0.59 },
		func(s *models.ReviewerStats) { s.AvgHelpfulRating = 2.9 },
	}
	for _, mutate := range mutations {
		stats := base()
		mutate(stats)
		promoted, err := env.tiers.CheckAndPromote(nil, stats)
		require.NoError(t, err)
		assert.False(t, promoted)
		assert.Equal(t, models.TierNovice, stats.Tier)
	}
}

func TestCheckAndPromote_EliteIsTerminal(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	reviewer := env.seedReviewer(true)

	stats, err := env.repRepo.GetOrCreateStats(nil, reviewer.ID)
	require.NoError(t, err)
	stats.Tier = models.TierElite
	stats.KarmaPoints = 100000

	promoted, err := env.tiers.CheckAndPromote(nil, stats)
	require.NoError(t, err)
	assert.False(t, promoted)
	assert.Equal(t, models.TierElite, stats.Tier)
}

func TestCheckPaidClaim_CountsOnlyThisWeek(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	reviewer := env.seedReviewer(true)
	env.setStats(reviewer.ID, func(s *models.ReviewerStats) {
		s.Tier = models.TierContributor
	})

	user, err := env.userRepo.FindByID(nil, reviewer.ID)
	require.NoError(t, err)

	// Fill the quota this week.
	for i := 0; i < 3; i++ {
		_, request, _ := env.seedRequest(1, floatPtr(40))
		_, err := env.claims.ClaimByRequest(request.ID, reviewer.ID)
		require.NoError(t, err)
	}
	ok, reason, err := env.tiers.CheckPaidClaim(nil, user, 40)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "quota")

	// Monday rolls over; old claims no longer count.
	env.advance(7 * 24 * time.Hour)
	ok, _, err = env.tiers.CheckPaidClaim(nil, user, 40)
	require.NoError(t, err)
	assert.True(t, ok)
}
