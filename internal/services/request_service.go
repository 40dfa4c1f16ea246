package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"github.com/Yzori/Critvue-sub002/internal/appErrors"
	"github.com/Yzori/Critvue-sub002/internal/models"
	"github.com/Yzori/Critvue-sub002/internal/repositories"
	"github.com/Yzori/Critvue-sub002/internal/services/dto"
)

// RequestService manages review requests and their slot pools.
type RequestService interface {
	Create(ownerID string, req *dto.CreateRequestRequest) (*dto.RequestResponse, error)
	GetByID(id string, viewerID string) (*dto.RequestResponse, error)
	ListByOwner(ownerID string) ([]*dto.RequestResponse, error)
	Browse(category string, limit, offset int) (*dto.RequestListResponse, error)
	// Publish moves a draft to pending, making its slots claimable.
	Publish(id, ownerID string) (*dto.RequestResponse, error)
	// Delete soft-deletes a request that has no slots in an active state.
	Delete(id, ownerID string) error
}

type requestService struct {
	db          Database
	requestRepo repositories.RequestRepository
	slotRepo    repositories.SlotRepository
}

func NewRequestService(db Database, requestRepo repositories.RequestRepository, slotRepo repositories.SlotRepository) RequestService {
	return &requestService{db: db, requestRepo: requestRepo, slotRepo: slotRepo}
}

// Create inserts the request and its full slot pool in one transaction.
// ReviewsRequested available slots exist from the start; claiming never
// creates slots, it only transitions them.
func (s *requestService) Create(ownerID string, req *dto.CreateRequestRequest) (*dto.RequestResponse, error) {
	status := models.RequestStatusPending
	if req.Draft {
		status = models.RequestStatusDraft
	}

	request := &models.ReviewRequest{
		OwnerID:          ownerID,
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		ReviewsRequested: req.ReviewsRequested,
		Status:           status,
		BudgetPerReview:  req.BudgetPerReview,
		Deadline:         req.Deadline,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.requestRepo.Create(tx, request); err != nil {
			return err
		}
		slots := make([]models.ReviewSlot, req.ReviewsRequested)
		for i := range slots {
			slots[i] = models.ReviewSlot{
				RequestID: request.ID,
				Status:    models.SlotStatusAvailable,
			}
		}
		return s.slotRepo.CreateBatch(tx, slots)
	})
	if err != nil {
		return nil, err
	}
	return s.toResponse(request, nil, true), nil
}

// GetByID returns the request with its slots. Feedback content on
// submitted slots is only visible to the request owner and the slot's
// reviewer; other viewers see slot states without content.
func (s *requestService) GetByID(id string, viewerID string) (*dto.RequestResponse, error) {
	var request *models.ReviewRequest
	var slots []models.ReviewSlot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		request, err = s.requestRepo.FindByID(tx, id)
		if err != nil {
			if err == repositories.ErrRequestNotFound {
				return appErrors.ErrRequestNotFound
			}
			return err
		}
		slots, err = s.slotRepo.FindByRequest(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := s.toResponse(request, slots, false)
	for i, slot := range slots {
		canSee := viewerID == request.OwnerID ||
			(slot.ReviewerID != nil && *slot.ReviewerID == viewerID)
		if !canSee {
			resp.Slots[i].FeedbackText = ""
			resp.Slots[i].Sections = nil
			resp.Slots[i].Rating = nil
			resp.Slots[i].RejectionReason = ""
			resp.Slots[i].RejectionNotes = ""
		}
	}
	return resp, nil
}

func (s *requestService) ListByOwner(ownerID string) ([]*dto.RequestResponse, error) {
	var requests []models.ReviewRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		requests, err = s.requestRepo.FindByOwner(tx, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]*dto.RequestResponse, len(requests))
	for i := range requests {
		out[i] = s.toResponse(&requests[i], nil, true)
	}
	return out, nil
}

func (s *requestService) Browse(category string, limit, offset int) (*dto.RequestListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var requests []models.ReviewRequest
	var total int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		requests, total, err = s.requestRepo.FindClaimable(tx, category, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.RequestListResponse{Total: total, Requests: make([]*dto.RequestResponse, len(requests))}
	for i := range requests {
		resp.Requests[i] = s.toResponse(&requests[i], nil, true)
	}
	return resp, nil
}

func (s *requestService) Publish(id, ownerID string) (*dto.RequestResponse, error) {
	var request *models.ReviewRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		request, err = s.requestRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			if err == repositories.ErrRequestNotFound {
				return appErrors.ErrRequestNotFound
			}
			return err
		}
		if request.OwnerID != ownerID {
			return appErrors.NewForbiddenError("only the request owner can publish")
		}
		if request.Status != models.RequestStatusDraft {
			return appErrors.InvalidState(string(request.Status), string(models.RequestStatusDraft))
		}
		request.Status = models.RequestStatusPending
		return s.requestRepo.Save(tx, request)
	})
	if err != nil {
		return nil, err
	}
	return s.toResponse(request, nil, true), nil
}

func (s *requestService) Delete(id, ownerID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		request, err := s.requestRepo.FindByIDForUpdate(tx, id)
		if err != nil {
			if err == repositories.ErrRequestNotFound {
				return appErrors.ErrRequestNotFound
			}
			return err
		}
		if request.OwnerID != ownerID {
			return appErrors.NewForbiddenError("only the request owner can delete")
		}

		hasActive, err := s.slotRepo.HasActiveSlotsOnRequest(tx, id)
		if err != nil {
			return err
		}
		if hasActive {
			return appErrors.ErrRequestHasActiveSlots
		}

		request.Status = models.RequestStatusCancelled
		if err := s.requestRepo.Save(tx, request); err != nil {
			return err
		}
		return s.requestRepo.SoftDelete(tx, id)
	})
}

func (s *requestService) toResponse(r *models.ReviewRequest, slots []models.ReviewSlot, omitSlots bool) *dto.RequestResponse {
	resp := &dto.RequestResponse{
		ID:               r.ID,
		OwnerID:          r.OwnerID,
		Title:            r.Title,
		Description:      r.Description,
		Category:         r.Category,
		ReviewsRequested: r.ReviewsRequested,
		ClaimedCount:     r.ClaimedCount,
		CompletedCount:   r.CompletedCount,
		Status:           r.Status,
		BudgetPerReview:  r.BudgetPerReview,
		Deadline:         r.Deadline,
		CreatedAt:        r.CreatedAt,
	}
	if omitSlots {
		return resp
	}
	resp.Slots = make([]*dto.SlotResponse, len(slots))
	for i := range slots {
		resp.Slots[i] = SlotToResponse(&slots[i])
	}
	return resp
}

// SlotToResponse maps a slot row to its API shape. Shared with the slot
// handlers.
func SlotToResponse(s *models.ReviewSlot) *dto.SlotResponse {
	resp := &dto.SlotResponse{
		ID:                 s.ID,
		RequestID:          s.RequestID,
		ReviewerID:         s.ReviewerID,
		Status:             s.Status,
		ClaimedAt:          s.ClaimedAt,
		ClaimDeadline:      s.ClaimDeadline,
		AutoAcceptDeadline: s.AutoAcceptDeadline,
		FeedbackText:       s.FeedbackText,
		Rating:             s.Rating,
		RejectionReason:    s.RejectionReason,
		RejectionNotes:     s.RejectionNotes,
		IsDisputed:         s.IsDisputed,
		DisputeResolution:  s.DisputeResolution,
		PaymentAmount:      s.PaymentAmount,
		PaymentStatus:      s.PaymentStatus,
		HelpfulRating:      s.HelpfulRating,
		AcceptMode:         s.AcceptMode,
		SubmittedAt:        s.SubmittedAt,
		AcceptedAt:         s.AcceptedAt,
	}
	if len(s.FeedbackSections) > 0 {
		var sections []models.FeedbackSection
		if err := json.Unmarshal(s.FeedbackSections, &sections); err == nil {
			resp.Sections = sections
		}
	}
	return resp
}
