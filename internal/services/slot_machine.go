package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Yzori/Critvue-sub002/internal/appErrors"
	"github.com/Yzori/Critvue-sub002/internal/config"
	"github.com/Yzori/Critvue-sub002/internal/models"
	"github.com/Yzori/Critvue-sub002/internal/repositories"
)

// SlotMachine owns every legal slot transition and its side effects. User
// actions and scheduler sweeps call the same methods, so there is exactly
// one implementation of the state logic.
//
// Locking discipline: every transition locks the parent request row first,
// then the slot row, inside one transaction. The request lock serializes
// concurrent claims and counter updates; the slot lock makes user actions
// and sweeps on the same slot mutually exclusive. Transition preconditions
// are re-checked after the locks are held, which is what makes sweeps
// idempotent: a second run sees the new state and fails the precondition.
type SlotMachine struct {
	db             Database
	slotRepo       repositories.SlotRepository
	requestRepo    repositories.RequestRepository
	userRepo       repositories.UserRepository
	adminClaimRepo repositories.AdminClaimRepository
	hooks          TransitionHooks
	payments       PaymentProcessor
	notifier       Notifier
	engine         config.EngineConfig
	now            func() time.Time
}

func NewSlotMachine(
	db Database,
	slotRepo repositories.SlotRepository,
	requestRepo repositories.RequestRepository,
	userRepo repositories.UserRepository,
	adminClaimRepo repositories.AdminClaimRepository,
	hooks TransitionHooks,
	payments PaymentProcessor,
	notifier Notifier,
	engine config.EngineConfig,
) *SlotMachine {
	return &SlotMachine{
		db:             db,
		slotRepo:       slotRepo,
		requestRepo:    requestRepo,
		userRepo:       userRepo,
		adminClaimRepo: adminClaimRepo,
		hooks:          hooks,
		payments:       payments,
		notifier:       notifier,
		engine:         engine,
		now:            time.Now,
	}
}

// SetClock overrides the time source for deterministic tests.
func (m *SlotMachine) SetClock(now func() time.Time) {
	m.now = now
}

// lockSlotAndRequest takes the request lock, then the slot lock. The slot
// is read once without a lock to learn its request id; everything read
// after the locks is authoritative.
func (m *SlotMachine) lockSlotAndRequest(tx *gorm.DB, slotID string) (*models.ReviewSlot, *models.ReviewRequest, error) {
	peek, err := m.slotRepo.FindByID(tx, slotID)
	if err != nil {
		if err == repositories.ErrSlotNotFound {
			return nil, nil, appErrors.ErrSlotNotFound
		}
		return nil, nil, err
	}

	request, err := m.requestRepo.FindByIDForUpdate(tx, peek.RequestID)
	if err != nil {
		if err == repositories.ErrRequestNotFound {
			return nil, nil, appErrors.ErrRequestNotFound
		}
		return nil, nil, err
	}

	slot, err := m.slotRepo.FindByIDForUpdate(tx, slotID)
	if err != nil {
		return nil, nil, err
	}
	return slot, request, nil
}

// ClaimLocked performs the claim mutation. The caller (the claim service)
// already holds the request and slot locks and has run the validation
// order; this method only enforces the state precondition and applies the
// side effects.
func (m *SlotMachine) ClaimLocked(tx *gorm.DB, request *models.ReviewRequest, slot *models.ReviewSlot, reviewerID string, ttlHours int) error {
	if slot.Status != models.SlotStatusAvailable {
		return appErrors.InvalidState(string(slot.Status), string(models.SlotStatusAvailable))
	}
	if ttlHours <= 0 {
		ttlHours = m.engine.ClaimTTLHours
	}

	now := m.now()
	deadline := now.Add(time.Duration(ttlHours) * time.Hour)
	slot.ReviewerID = &reviewerID
	slot.Status = models.SlotStatusClaimed
	slot.ClaimedAt = &now
	slot.ClaimDeadline = &deadline

	if request.IsPaid() {
		slot.PaymentAmount = *request.BudgetPerReview
		if err := m.payments.Escrow(tx, slot.ID, &reviewerID, slot.PaymentAmount); err != nil {
			return err
		}
		slot.PaymentStatus = models.PaymentStatusEscrowed
	}

	if err := m.slotRepo.Save(tx, slot); err != nil {
		return err
	}

	request.ClaimedCount++
	if request.Status == models.RequestStatusPending {
		request.Status = models.RequestStatusInReview
	}
	return m.requestRepo.Save(tx, request)
}

// Submit moves a claimed slot to submitted. Only the claiming reviewer may
// submit, and the content must carry minimum substance: free text of at
// least the configured length, or structured sections totalling at least
// the configured word count.
func (m *SlotMachine) Submit(slotID, reviewerID, feedbackText string, sections []models.FeedbackSection, rating int) (*models.ReviewSlot, error) {
	if err := m.validateFeedback(feedbackText, sections); err != nil {
		return nil, err
	}
	if rating < 1 || rating > 5 {
		return nil, appErrors.NewBadRequestError("rating must be between 1 and 5")
	}

	var updated *models.ReviewSlot
	var ownerID string
	err := m.db.Transaction(func(tx *gorm.DB) error {
		slot, request, err := m.lockSlotAndRequest(tx, slotID)
		if err != nil {
			return err
		}
		if slot.Status != models.SlotStatusClaimed {
			return appErrors.InvalidState(string(slot.Status), string(models.SlotStatusClaimed))
		}
		if slot.ReviewerID == nil || *slot.ReviewerID != reviewerID {
			return appErrors.NewForbiddenError("only the claiming reviewer can submit feedback")
		}

		now := m.now()
		autoAccept := now.Add(time.Duration(m.engine.AutoAcceptDays) * 24 * time.Hour)
		slot.Status = models.SlotStatusSubmitted
		slot.FeedbackText = feedbackText
		slot.Rating = &rating
		slot.SubmittedAt = &now
		slot.AutoAcceptDeadline = &autoAccept
		if len(sections) > 0 {
			raw, err := json.Marshal(sections)
			if err != nil {
				return err
			}
			slot.FeedbackSections = raw
		}

		if err := m.slotRepo.Save(tx, slot); err != nil {
			return err
		}
		if err := m.hooks.OnSubmitted(tx, slot); err != nil {
			return err
		}

		updated = slot
		ownerID = request.OwnerID
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.notifier.Notify(ownerID, models.NotificationFeedbackSubmitted,
		"Feedback submitted",
		"A reviewer submitted feedback on your request; it auto-accepts if you do not act in time.",
		&updated.ID)
	return updated, nil
}

// Accept moves a submitted slot to accepted, releases escrow and advances
// the request's completion counter. Manual accepts require the request
// owner; the auto path is reserved for the scheduler.
func (m *SlotMachine) Accept(slotID, actorID string, mode models.AcceptMode, helpfulRating *int) (*models.ReviewSlot, error) {
	if helpfulRating != nil && (*helpfulRating < 1 || *helpfulRating > 5) {
		return nil, appErrors.NewBadRequestError("helpful rating must be between 1 and 5")
	}

	var updated *models.ReviewSlot
	var reviewerID string
	err := m.db.Transaction(func(tx *gorm.DB) error {
		slot, request, err := m.lockSlotAndRequest(tx, slotID)
		if err != nil {
			return err
		}
		if slot.Status != models.SlotStatusSubmitted {
			return appErrors.InvalidState(string(slot.Status), string(models.SlotStatusSubmitted))
		}
		if mode == models.AcceptModeManual && request.OwnerID != actorID {
			return appErrors.NewForbiddenError("only the request owner can accept feedback")
		}

		if err := m.acceptLocked(tx, request, slot, mode, helpfulRating); err != nil {
			return err
		}
		if err := m.hooks.OnAccepted(tx, slot, mode, helpfulRating); err != nil {
			return err
		}

		updated = slot
		if slot.ReviewerID != nil {
			reviewerID = *slot.ReviewerID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reviewerID != "" {
		title := "Feedback accepted"
		if mode == models.AcceptModeAuto {
			title = "Feedback auto-accepted"
		}
		m.notifier.Notify(reviewerID, models.NotificationFeedbackAccepted,
			title, "Your review was accepted.", &updated.ID)
	}
	return updated, nil
}

// acceptLocked applies the acceptance mutations under held locks: slot
// state, payment release and request counters. It is shared by the
// manual/auto accept path and the reviewer-wins dispute resolution, which
// is why it does not run the OnAccepted hook: the dispute path settles
// reputation through OnDisputeResolved instead.
func (m *SlotMachine) acceptLocked(tx *gorm.DB, request *models.ReviewRequest, slot *models.ReviewSlot, mode models.AcceptMode, helpfulRating *int) error {
	now := m.now()
	slot.Status = models.SlotStatusAccepted
	slot.AcceptMode = mode
	slot.HelpfulRating = helpfulRating
	slot.AcceptedAt = &now

	if slot.PaymentStatus == models.PaymentStatusEscrowed {
		if _, err := m.payments.Release(tx, slot.ID, slot.ReviewerID, slot.PaymentAmount); err != nil {
			return err
		}
		slot.PaymentStatus = models.PaymentStatusReleased
	}

	if err := m.slotRepo.Save(tx, slot); err != nil {
		return err
	}

	request.CompletedCount++
	if request.CompletedCount >= request.ReviewsRequested {
		request.Status = models.RequestStatusCompleted
	}
	return m.requestRepo.Save(tx, request)
}

// Reject moves a submitted slot to rejected. Notes are mandatory when the
// reason is "other". Escrow stays held: the reviewer may still dispute,
// and the daily sweep refunds once the dispute window lapses.
func (m *SlotMachine) Reject(slotID, requesterID string, reason models.RejectionReason, notes string) (*models.ReviewSlot, error) {
	if !reason.Valid() {
		return nil, appErrors.NewBadRequestError(fmt.Sprintf("unknown rejection reason %q", reason))
	}
	if reason == models.RejectionReasonOther && strings.TrimSpace(notes) == "" {
		return nil, appErrors.NewBadRequestError("notes are required when the rejection reason is \"other\"")
	}

	var updated *models.ReviewSlot
	var reviewerID string
	err := m.db.Transaction(func(tx *gorm.DB) error {
		slot, request, err := m.lockSlotAndRequest(tx, slotID)
		if err != nil {
			return err
		}
		if slot.Status != models.SlotStatusSubmitted {
			return appErrors.InvalidState(string(slot.Status), string(models.SlotStatusSubmitted))
		}
		if request.OwnerID != requesterID {
			return appErrors.NewForbiddenError("only the request owner can reject feedback")
		}

		slot.Status = models.SlotStatusRejected
		slot.RejectionReason = reason
		slot.RejectionNotes = notes

		if err := m.slotRepo.Save(tx, slot); err != nil {
			return err
		}
		if err := m.hooks.OnRejected(tx, slot, reason); err != nil {
			return err
		}

		updated = slot
		if slot.ReviewerID != nil {
			reviewerID = *slot.ReviewerID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reviewerID != "" {
		m.notifier.Notify(reviewerID, models.NotificationFeedbackRejected,
			"Feedback rejected",
			fmt.Sprintf("Your review was rejected (%s). You may dispute this decision.", reason),
			&updated.ID)
	}
	return updated, nil
}

// Dispute flags a rejected slot for admin review. Only the original
// reviewer may dispute.
func (m *SlotMachine) Dispute(slotID, reviewerID, reason string) (*models.ReviewSlot, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, appErrors.NewBadRequestError("a dispute reason is required")
	}

	var updated *models.ReviewSlot
	var ownerID string
	err := m.db.Transaction(func(tx *gorm.DB) error {
		slot, request, err := m.lockSlotAndRequest(tx, slotID)
		if err != nil {
			return err
		}
		if slot.Status != models.SlotStatusRejected {
			return appErrors.InvalidState(string(slot.Status), string(models.SlotStatusRejected))
		}
		// A rejection is final once the dispute window lapsed: the daily
		// sweep has refunded (or will refund) the escrow, so a late
		// reviewer-wins resolution could never be paid. The slot is not
		// saved between rejection and dispute, so UpdatedAt is the
		// rejection time (the same base the sweep queries on). A settled
		// escrow or an existing resolution also closes the window.
		window := time.Duration(m.engine.DisputeWindowDays) * 24 * time.Hour
		if slot.PaymentStatus == models.PaymentStatusRefunded ||
			slot.DisputeResolution != "" ||
			m.now().After(slot.UpdatedAt.Add(window)) {
			return appErrors.ErrDisputeWindowClosed
		}
		if slot.ReviewerID == nil || *slot.ReviewerID != reviewerID {
			return appErrors.NewForbiddenError("only the original reviewer can dispute a rejection")
		}

		slot.Status = models.SlotStatusDisputed
		slot.IsDisputed = true
		slot.DisputeReason = reason

		if err := m.slotRepo.Save(tx, slot); err != nil {
			return err
		}

		updated = slot
		ownerID = request.OwnerID
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.notifier.Notify(ownerID, models.NotificationDisputeOpened,
		"Rejection disputed",
		"The reviewer disputed your rejection; an admin will resolve it.",
		&updated.ID)
	return updated, nil
}

// ResolveDispute settles a disputed slot. reviewer_wins overrides the
// rejection into an acceptance, with payment release and reputation
// correction; requester_wins upholds the rejection permanently and refunds
// escrow. Requires admin privilege.
func (m *SlotMachine) ResolveDispute(slotID, adminID string, resolution models.DisputeResolution) (*models.ReviewSlot, error) {
	if resolution != models.DisputeResolutionReviewerWins && resolution != models.DisputeResolutionRequesterWins {
		return nil, appErrors.NewBadRequestError(fmt.Sprintf("unknown dispute resolution %q", resolution))
	}

	var updated *models.ReviewSlot
	var reviewerID string
	err := m.db.Transaction(func(tx *gorm.DB) error {
		admin, err := m.userRepo.FindByID(tx, adminID)
		if err != nil {
			if err == repositories.ErrUserNotFound {
				return appErrors.ErrUserNotFound
			}
			return err
		}
		if admin.Role != models.UserRoleAdmin {
			return appErrors.NewForbiddenError("dispute resolution requires admin privilege")
		}

		slot, request, err := m.lockSlotAndRequest(tx, slotID)
		if err != nil {
			return err
		}
		if slot.Status != models.SlotStatusDisputed {
			return appErrors.InvalidState(string(slot.Status), string(models.SlotStatusDisputed))
		}

		slot.DisputeResolution = resolution
		slot.ResolvedBy = &adminID

		if resolution == models.DisputeResolutionReviewerWins {
			// Retroactive acceptance: same side effects as a manual
			// accept, then the dispute-specific reputation settlement.
			if err := m.acceptLocked(tx, request, slot, models.AcceptModeManual, nil); err != nil {
				return err
			}
		} else {
			slot.Status = models.SlotStatusRejected
			if slot.PaymentStatus == models.PaymentStatusEscrowed {
				if err := m.payments.Refund(tx, slot.ID, request.OwnerID, slot.PaymentAmount); err != nil {
					return err
				}
				slot.PaymentStatus = models.PaymentStatusRefunded
			}
			if err := m.slotRepo.Save(tx, slot); err != nil {
				return err
			}
		}

		if err := m.hooks.OnDisputeResolved(tx, slot, resolution); err != nil {
			return err
		}

		// Release the admin's queue lock on this slot, if one exists.
		if claim, err := m.adminClaimRepo.FindActiveBySlot(tx, slot.ID); err == nil {
			if err := m.adminClaimRepo.Release(tx, claim.ID, m.now()); err != nil {
				return err
			}
		} else if err != repositories.ErrAdminClaimNotFound {
			return err
		}

		updated = slot
		if slot.ReviewerID != nil {
			reviewerID = *slot.ReviewerID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reviewerID != "" {
		outcome := "upheld"
		if resolution == models.DisputeResolutionReviewerWins {
			outcome = "overturned"
		}
		m.notifier.Notify(reviewerID, models.NotificationDisputeResolved,
			"Dispute resolved",
			fmt.Sprintf("The rejection was %s by an admin.", outcome),
			&updated.ID)
	}
	return updated, nil
}

// Abandon releases a claimed slot, either by the reviewer or by the
// expired-claims sweep. The abandoned row is terminal; a fresh available
// slot replaces it so the request keeps its capacity, and the request's
// claimed counter reverts (back to pending if it drops to zero).
func (m *SlotMachine) Abandon(slotID, actorID string, byScheduler bool) (*models.ReviewSlot, error) {
	var updated *models.ReviewSlot
	var reviewerID string
	err := m.db.Transaction(func(tx *gorm.DB) error {
		slot, request, err := m.lockSlotAndRequest(tx, slotID)
		if err != nil {
			return err
		}
		if slot.Status != models.SlotStatusClaimed {
			return appErrors.InvalidState(string(slot.Status), string(models.SlotStatusClaimed))
		}
		if !byScheduler && (slot.ReviewerID == nil || *slot.ReviewerID != actorID) {
			return appErrors.NewForbiddenError("only the claiming reviewer can abandon a claim")
		}
		reviewerID = *slot.ReviewerID

		now := m.now()
		slot.Status = models.SlotStatusAbandoned
		slot.AbandonedAt = &now
		slot.AbandonedBy = &reviewerID
		slot.ReviewerID = nil
		slot.ClaimDeadline = nil
		if slot.PaymentStatus == models.PaymentStatusEscrowed {
			if err := m.payments.Refund(tx, slot.ID, request.OwnerID, slot.PaymentAmount); err != nil {
				return err
			}
			slot.PaymentStatus = models.PaymentStatusRefunded
		}
		if err := m.slotRepo.Save(tx, slot); err != nil {
			return err
		}

		// Replacement keeps the request claimable without deleting the
		// abandoned row.
		replacement := &models.ReviewSlot{
			RequestID: request.ID,
			Status:    models.SlotStatusAvailable,
		}
		if err := m.slotRepo.Create(tx, replacement); err != nil {
			return err
		}

		if request.ClaimedCount > 0 {
			request.ClaimedCount--
		}
		if request.ClaimedCount == 0 && request.Status == models.RequestStatusInReview {
			request.Status = models.RequestStatusPending
		}
		if err := m.requestRepo.Save(tx, request); err != nil {
			return err
		}

		if err := m.hooks.OnAbandoned(tx, slot, reviewerID); err != nil {
			return err
		}

		updated = slot
		return nil
	})
	if err != nil {
		return nil, err
	}

	if byScheduler {
		m.notifier.Notify(reviewerID, models.NotificationClaimExpired,
			"Claim expired",
			"Your claim deadline passed and the slot was released.",
			&updated.ID)
	}
	return updated, nil
}

// RefundStaleRejected finalizes a rejection whose dispute window lapsed:
// escrow is refunded to the request owner. Used by the daily sweep.
func (m *SlotMachine) RefundStaleRejected(slotID string) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		slot, request, err := m.lockSlotAndRequest(tx, slotID)
		if err != nil {
			return err
		}
		if slot.Status != models.SlotStatusRejected || slot.IsDisputed {
			return appErrors.InvalidState(string(slot.Status), string(models.SlotStatusRejected))
		}
		if slot.PaymentStatus != models.PaymentStatusEscrowed {
			// Already settled; nothing to do.
			return nil
		}
		if err := m.payments.Refund(tx, slot.ID, request.OwnerID, slot.PaymentAmount); err != nil {
			return err
		}
		slot.PaymentStatus = models.PaymentStatusRefunded
		return m.slotRepo.Save(tx, slot)
	})
}

func (m *SlotMachine) validateFeedback(feedbackText string, sections []models.FeedbackSection) error {
	if len(strings.TrimSpace(feedbackText)) >= m.engine.MinFeedbackChars {
		return nil
	}
	words := 0
	for _, sec := range sections {
		words += len(strings.Fields(sec.Title)) + len(strings.Fields(sec.Body))
	}
	if words >= m.engine.MinStructuredWords {
		return nil
	}
	return appErrors.NewBadRequestError(fmt.Sprintf(
		"feedback too short: need %d+ characters of free text or %d+ words of structured feedback",
		m.engine.MinFeedbackChars, m.engine.MinStructuredWords))
}
