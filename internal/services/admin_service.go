package services

import (
	"gorm.io/gorm"

	"github.com/Yzori/Critvue-sub002/internal/appErrors"
	"github.com/Yzori/Critvue-sub002/internal/models"
	"github.com/Yzori/Critvue-sub002/internal/repositories"
	"github.com/Yzori/Critvue-sub002/internal/services/dto"
)

// AdminService serves the dispute queue. Admins claim a dispute before
// working it so two admins do not resolve the same slot; the claim is a
// soft lock released on resolution or by the stale-claim sweep.
type AdminService interface {
	ListDisputes(limit, offset int) ([]*dto.SlotResponse, error)
	ClaimDispute(slotID, adminID string) error
	ResolveDispute(slotID, adminID string, resolution models.DisputeResolution) (*dto.SlotResponse, error)
}

type adminService struct {
	db             Database
	machine        *SlotMachine
	slotRepo       repositories.SlotRepository
	adminClaimRepo repositories.AdminClaimRepository
}

func NewAdminService(db Database, machine *SlotMachine, slotRepo repositories.SlotRepository, adminClaimRepo repositories.AdminClaimRepository) AdminService {
	return &adminService{db: db, machine: machine, slotRepo: slotRepo, adminClaimRepo: adminClaimRepo}
}

func (s *adminService) ListDisputes(limit, offset int) ([]*dto.SlotResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var slots []models.ReviewSlot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		slots, err = s.slotRepo.FindDisputed(tx, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]*dto.SlotResponse, len(slots))
	for i := range slots {
		out[i] = SlotToResponse(&slots[i])
	}
	return out, nil
}

func (s *adminService) ClaimDispute(slotID, adminID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		slot, err := s.slotRepo.FindByIDForUpdate(tx, slotID)
		if err != nil {
			if err == repositories.ErrSlotNotFound {
				return appErrors.ErrSlotNotFound
			}
			return err
		}
		if slot.Status != models.SlotStatusDisputed {
			return appErrors.InvalidState(string(slot.Status), string(models.SlotStatusDisputed))
		}

		existing, err := s.adminClaimRepo.FindActiveBySlot(tx, slotID)
		if err == nil {
			if existing.AdminID == adminID {
				return nil
			}
			return appErrors.ErrSlotAlreadyClaimed
		}
		if err != repositories.ErrAdminClaimNotFound {
			return err
		}

		return s.adminClaimRepo.Create(tx, &models.AdminClaim{
			AdminID: adminID,
			SlotID:  slotID,
		})
	})
}

func (s *adminService) ResolveDispute(slotID, adminID string, resolution models.DisputeResolution) (*dto.SlotResponse, error) {
	slot, err := s.machine.ResolveDispute(slotID, adminID, resolution)
	if err != nil {
		return nil, err
	}
	return SlotToResponse(slot), nil
}
