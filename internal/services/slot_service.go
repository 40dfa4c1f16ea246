package services

import (
	"gorm.io/gorm"

	"github.com/Yzori/Critvue-sub002/internal/models"
	"github.com/Yzori/Critvue-sub002/internal/repositories"
	"github.com/Yzori/Critvue-sub002/internal/services/dto"
)

// SlotService is the API-facing wrapper over the slot state machine: it
// maps DTOs to machine calls and rows back to responses.
type SlotService interface {
	Submit(slotID, reviewerID string, req *dto.SubmitFeedbackRequest) (*dto.SlotResponse, error)
	Accept(slotID, ownerID string, req *dto.AcceptFeedbackRequest) (*dto.SlotResponse, error)
	Reject(slotID, ownerID string, req *dto.RejectFeedbackRequest) (*dto.SlotResponse, error)
	Dispute(slotID, reviewerID string, req *dto.DisputeRequest) (*dto.SlotResponse, error)
	// ListByReviewer returns the reviewer's slots across all requests,
	// newest first.
	ListByReviewer(reviewerID string) ([]*dto.SlotResponse, error)
}

type slotService struct {
	db       Database
	machine  *SlotMachine
	slotRepo repositories.SlotRepository
}

func NewSlotService(db Database, machine *SlotMachine, slotRepo repositories.SlotRepository) SlotService {
	return &slotService{db: db, machine: machine, slotRepo: slotRepo}
}

func (s *slotService) Submit(slotID, reviewerID string, req *dto.SubmitFeedbackRequest) (*dto.SlotResponse, error) {
	slot, err := s.machine.Submit(slotID, reviewerID, req.FeedbackText, req.Sections, req.Rating)
	if err != nil {
		return nil, err
	}
	return SlotToResponse(slot), nil
}

func (s *slotService) Accept(slotID, ownerID string, req *dto.AcceptFeedbackRequest) (*dto.SlotResponse, error) {
	slot, err := s.machine.Accept(slotID, ownerID, models.AcceptModeManual, req.HelpfulRating)
	if err != nil {
		return nil, err
	}
	return SlotToResponse(slot), nil
}

func (s *slotService) Reject(slotID, ownerID string, req *dto.RejectFeedbackRequest) (*dto.SlotResponse, error) {
	slot, err := s.machine.Reject(slotID, ownerID, models.RejectionReason(req.Reason), req.Notes)
	if err != nil {
		return nil, err
	}
	return SlotToResponse(slot), nil
}

func (s *slotService) Dispute(slotID, reviewerID string, req *dto.DisputeRequest) (*dto.SlotResponse, error) {
	slot, err := s.machine.Dispute(slotID, reviewerID, req.Reason)
	if err != nil {
		return nil, err
	}
	return SlotToResponse(slot), nil
}

func (s *slotService) ListByReviewer(reviewerID string) ([]*dto.SlotResponse, error) {
	var slots []models.ReviewSlot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		slots, err = s.slotRepo.FindByReviewer(tx, reviewerID)
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
