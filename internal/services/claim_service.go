package services

import (
	"gorm.io/gorm"

	"github.com/Yzori/Critvue-sub002/internal/appErrors"
	"github.com/Yzori/Critvue-sub002/internal/models"
	"github.com/Yzori/Critvue-sub002/internal/repositories"
)

// ClaimService is the single entry point for taking and releasing review
// slots. Claiming is the hottest race in the system, so every claim runs
// inside one transaction that locks the request row before touching any
// slot; two reviewers racing for the last slot serialize on that lock and
// the loser gets a clean "no slots available" error instead of a double
// claim.
type ClaimService interface {
	// ClaimByRequest claims any available slot on the request.
	ClaimByRequest(requestID, reviewerID string) (*models.ReviewSlot, error)
	// ClaimBySlot claims one specific slot.
	ClaimBySlot(slotID, reviewerID string) (*models.ReviewSlot, error)
	// Unclaim voluntarily abandons a claimed slot.
	Unclaim(slotID, reviewerID string) (*models.ReviewSlot, error)
}

type claimService struct {
	db          Database
	machine     *SlotMachine
	slotRepo    repositories.SlotRepository
	requestRepo repositories.RequestRepository
	userRepo    repositories.UserRepository
	tiers       *TierService
}

func NewClaimService(
	db Database,
	machine *SlotMachine,
	slotRepo repositories.SlotRepository,
	requestRepo repositories.RequestRepository,
	userRepo repositories.UserRepository,
	tiers *TierService,
) ClaimService {
	return &claimService{
		db:          db,
		machine:     machine,
		slotRepo:    slotRepo,
		requestRepo: requestRepo,
		userRepo:    userRepo,
		tiers:       tiers,
	}
}

func (s *claimService) ClaimByRequest(requestID, reviewerID string) (*models.ReviewSlot, error) {
	var claimed *models.ReviewSlot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		request, err := s.requestRepo.FindByIDForUpdate(tx, requestID)
		if err != nil {
			if err == repositories.ErrRequestNotFound {
				return appErrors.ErrRequestNotFound
			}
			return err
		}

		slot, err := s.slotRepo.FindAvailableForUpdate(tx, requestID)
		if err != nil {
			if err == repositories.ErrSlotNotFound {
				// Distinguish "request is full" from "request is closed"
				// only after the cheaper checks have already passed, so
				// validate first with a nil slot.
				slot = nil
			} else {
				return err
			}
		}

		if err := s.validateClaim(tx, request, slot, reviewerID); err != nil {
			return err
		}

		if err := s.machine.ClaimLocked(tx, request, slot, reviewerID, 0); err != nil {
			return err
		}
		claimed = slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *claimService) ClaimBySlot(slotID, reviewerID string) (*models.ReviewSlot, error) {
	var claimed *models.ReviewSlot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		peek, err := s.slotRepo.FindByID(tx, slotID)
		if err != nil {
			if err == repositories.ErrSlotNotFound {
				return appErrors.ErrSlotNotFound
			}
			return err
		}

		request, err := s.requestRepo.FindByIDForUpdate(tx, peek.RequestID)
		if err != nil {
			if err == repositories.ErrRequestNotFound {
				return appErrors.ErrRequestNotFound
			}
			return err
		}

		slot, err := s.slotRepo.FindByIDForUpdate(tx, slotID)
		if err != nil {
			return err
		}
		if slot.Status != models.SlotStatusAvailable {
			return appErrors.ErrSlotAlreadyClaimed
		}

		if err := s.validateClaim(tx, request, slot, reviewerID); err != nil {
			return err
		}

		if err := s.machine.ClaimLocked(tx, request, slot, reviewerID, 0); err != nil {
			return err
		}
		claimed = slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *claimService) Unclaim(slotID, reviewerID string) (*models.ReviewSlot, error) {
	return s.machine.Abandon(slotID, reviewerID, false)
}

// validateClaim runs the claim preconditions in a fixed order so the
// caller always sees the most specific error: own-request, then request
// state, then capacity, then the per-reviewer duplicate check, then
// tier/payout gating for paid requests. Must run under the request lock.
func (s *claimService) validateClaim(tx *gorm.DB, request *models.ReviewRequest, slot *models.ReviewSlot, reviewerID string) error {
	if request.OwnerID == reviewerID {
		return appErrors.ErrCannotClaimOwnRequest
	}
	if !request.Status.IsClaimable() {
		return appErrors.ErrRequestNotClaimable
	}
	if slot == nil {
		return appErrors.ErrNoSlotsAvailable
	}

	hasActive, err := s.slotRepo.HasActiveSlot(tx, request.ID, reviewerID)
	if err != nil {
		return err
	}
	if hasActive {
		return appErrors.ErrDuplicateClaim
	}

	if request.IsPaid() {
		reviewer, err := s.userRepo.FindByID(tx, reviewerID)
		if err != nil {
			if err == repositories.ErrUserNotFound {
				return appErrors.ErrUserNotFound
			}
			return err
		}
		ok, reason, err := s.tiers.CheckPaidClaim(tx, reviewer, *request.BudgetPerReview)
		if err != nil {
			return err
		}
		if !ok {
			return appErrors.PermissionDenied(reason)
		}
	}
	return nil
}
