package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yzori/Critvue-sub002/internal/appErrors"
	"github.com/Yzori/Critvue-sub002/internal/models"
)

func TestClaimByRequest_Success(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	_, request, _ := env.seedRequest(3, nil)
	reviewer := env.seedReviewer(false)

	slot, err := env.claims.ClaimByRequest(request.ID, reviewer.ID)
	require.NoError(t, err)

	assert.Equal(t, models.SlotStatusClaimed, slot.Status)
	require.NotNil(t, slot.ReviewerID)
	assert.Equal(t, reviewer.ID, *slot.ReviewerID)
	require.NotNil(t, slot.ClaimDeadline)
	assert.Equal(t, env.clock.Add(72 * time.Hour), *slot.ClaimDeadline)

	stored := env.st.request(request.ID)
	assert.Equal(t, 1, stored.ClaimedCount)
	assert.Equal(t, models.RequestStatusInReview, stored.Status)
}

func TestClaimByRequest_CannotClaimOwnRequest(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	owner, request, _ := env.seedRequest(2, nil)

	_, err := env.claims.ClaimByRequest(request.ID, owner.ID)
	assert.ErrorIs(t, err, appErrors.ErrCannotClaimOwnRequest)
}

func TestClaimByRequest_DuplicateClaimRejected(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	_, request, _ := env.seedRequest(3, nil)
	reviewer := env.seedReviewer(false)

	_, err := env.claims.ClaimByRequest(request.ID, reviewer.ID)
	require.NoError(t, err)

	_, err = env.claims.ClaimByRequest(request.ID, reviewer.ID)
	assert.ErrorIs(t, err, appErrors.ErrDuplicateClaim)

	stored := env.st.request(request.ID)
	assert.Equal(t, 1, stored.ClaimedCount)
}

func TestClaimByRequest_NoSlotsAvailable(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	_, request, _ := env.seedRequest(1, nil)

	first := env.seedReviewer(false)
	_, err := env.claims.ClaimByRequest(request.ID, first.ID)
	require.NoError(t, err)

	second := env.seedReviewer(false)
	_, err = env.claims.ClaimByRequest(request.ID, second.ID)
	assert.ErrorIs(t, err, appErrors.ErrNoSlotsAvailable)
}

func TestClaimByRequest_DraftNotClaimable(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	_, request, _ := env.seedRequest(2, nil)
	stored := env.st.request(request.ID)
	stored.Status = models.RequestStatusDraft
	require.NoError(t, env.requestRepo.Save(nil, &stored))

	reviewer := env.seedReviewer(false)
	_, err := env.claims.ClaimByRequest(request.ID, reviewer.ID)
	assert.ErrorIs(t, err, appErrors.ErrRequestNotClaimable)
}

// The last-slot race: many reviewers, one slot. Exactly one claim must
// succeed, the rest must get clean no-slots errors and counters must not
// overshoot.
func TestClaimByRequest_ConcurrentLastSlot(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	_, request, _ := env.seedRequest(1, nil)

	const racers = 16
	reviewers := make([]*models.User, racers)
	for i := range reviewers {
		reviewers[i] = env.seedReviewer(false)
	}

	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.claims.ClaimByRequest(request.ID, reviewers[i].ID)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, appErrors.ErrNoSlotsAvailable)
		}
	}
	assert.Equal(t, 1, winners)

	stored := env.st.request(request.ID)
	assert.Equal(t, 1, stored.ClaimedCount)
}

func TestClaimBySlot_AlreadyClaimed(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	_, _, slotIDs := env.seedRequest(1, nil)
	first := env.seedReviewer(false)
	second := env.seedReviewer(false)

	_, err := env.claims.ClaimBySlot(slotIDs[0], first.ID)
	require.NoError(t, err)

	_, err = env.claims.ClaimBySlot(slotIDs[0], second.ID)
	assert.ErrorIs(t, err, appErrors.ErrSlotAlreadyClaimed)
}

func TestClaimPaid_EscrowsBudget(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	_, request, _ := env.seedRequest(1, floatPtr(50))
	reviewer := env.seedReviewer(true)
	env.setStats(reviewer.ID, func(s *models.ReviewerStats) {
		s.Tier = models.TierContributor
	})

	slot, err := env.claims.ClaimByRequest(request.ID, reviewer.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusEscrowed, slot.PaymentStatus)
	assert.Equal(t, 50.0, slot.PaymentAmount)
	assert.Len(t, env.st.paymentsByType(models.PaymentTransactionEscrow), 1)
}

func TestClaimPaid_NoviceDenied(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	_, request, _ := env.seedRequest(1, floatPtr(50))
	reviewer := env.seedReviewer(true)

	_, err := env.claims.ClaimByRequest(request.ID, reviewer.ID)
	require.Error(t, err)

	var appErr *appErrors.AppError
	require.True(t, appErrors.As(err, &appErr))
	assert.Equal(t, appErrors.CodePermissionDenied, appErr.Code)
	assert.Contains(t, appErr.Message, "does not allow paid reviews")
}

func TestClaimPaid_PayoutNotReadyDenied(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	_, request, _ := env.seedRequest(1, floatPtr(50))
	reviewer := env.seedReviewer(false)
	env.setStats(reviewer.ID, func(s *models.ReviewerStats) {
		s.Tier = models.TierElite
	})

	_, err := env.claims.ClaimByRequest(request.ID, reviewer.ID)
	require.Error(t, err)

	var appErr *appErrors.AppError
	require.True(t, appErrors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "payout account")
}

func TestClaimPaid_BudgetCeilingDenied(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	_, request, _ := env.seedRequest(1, floatPtr(250))
	reviewer := env.seedReviewer(true)
	env.setStats(reviewer.ID, func(s *models.ReviewerStats) {
		s.Tier = models.TierContributor
	})

	_, err := env.claims.ClaimByRequest(request.ID, reviewer.ID)
	require.Error(t, err)

	var appErr *appErrors.AppError
	require.True(t, appErrors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "ceiling")
}

func TestClaimPaid_WeeklyQuotaExhausted(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	reviewer := env.seedReviewer(true)
	env.setStats(reviewer.ID, func(s *models.ReviewerStats) {
		s.Tier = models.TierContributor
	})

	// Contributor quota is 3 paid claims per week.
	for i := 0; i < 3; i++ {
		_, request, _ := env.seedRequest(1, floatPtr(40))
		_, err := env.claims.ClaimByRequest(request.ID, reviewer.ID)
		require.NoError(t, err)
	}

	_, request, _ := env.seedRequest(1, floatPtr(40))
	_, err := env.claims.ClaimByRequest(request.ID, reviewer.ID)
	require.Error(t, err)

	var appErr *appErrors.AppError
	require.True(t, appErrors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "quota")

	// Quota resets on the next Monday.
	env.advance(7 * 24 * time.Hour)
	_, err = env.claims.ClaimByRequest(request.ID, reviewer.ID)
	assert.NoError(t, err)
}

// Abandoning a paid claim must not hand the weekly quota back, or
// claim-abandon-reclaim cycles would make the quota meaningless.
func TestClaimPaid_AbandonKeepsQuotaConsumed(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	reviewer := env.seedReviewer(true)
	env.setStats(reviewer.ID, func(s *models.ReviewerStats) {
		s.Tier = models.TierContributor
	})

	var lastSlot *models.ReviewSlot
	for i := 0; i < 3; i++ {
		_, request, _ := env.seedRequest(1, floatPtr(40))
		slot, err := env.claims.ClaimByRequest(request.ID, reviewer.ID)
		require.NoError(t, err)
		lastSlot = slot
	}

	_, err := env.claims.Unclaim(lastSlot.ID, reviewer.ID)
	require.NoError(t, err)

	_, request, _ := env.seedRequest(1, floatPtr(40))
	_, err = env.claims.ClaimByRequest(request.ID, reviewer.ID)
	require.Error(t, err)

	var appErr *appErrors.AppError
	require.True(t, appErrors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "quota")
}

func TestUnclaim_ReleasesSlotAndSpawnsReplacement(t *testing.T) {
	t.Parallel()
	env := newTestEnv()
	_, request, _ := env.seedRequest(1, nil)
	reviewer := env.seedReviewer(false)

	claimed, err := env.claims.ClaimByRequest(request.ID, reviewer.ID)
	require.NoError(t, err)

	abandoned, err := env.claims.Unclaim(claimed.ID, reviewer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SlotStatusAbandoned, abandoned.Status)
	assert.Nil(t, abandoned.ReviewerID)

	stored := env.st.request(request.ID)
	assert.Equal(t, 0, stored.ClaimedCount)
	assert.Equal(t, models.RequestStatusPending, stored.Status)

	// A fresh available slot replaces the abandoned one.
	slots, err := env.slotRepo.FindByRequest(nil, request.ID)
	require.NoError(t, err)
	available := 0
	for _, s := range slots {
		if s.Status == models.SlotStatusAvailable {
			available++
		}
	}
	assert.Equal(t, 1, available)

	// Abandoning costs karma.
	stats := env.st.reviewerStats(reviewer.ID)
	assert.Equal(t, -15, stats.KarmaPoints)
}
