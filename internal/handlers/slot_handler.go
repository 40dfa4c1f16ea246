package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Yzori/Critvue-sub002/internal/services"
	"github.com/Yzori/Critvue-sub002/internal/services/dto"
)

// SlotHandler exposes claiming and the slot lifecycle transitions.
type SlotHandler struct {
	*BaseHandler
	claimService services.ClaimService
	slotService  services.SlotService
}

func NewSlotHandler(base *BaseHandler, claimService services.ClaimService, slotService services.SlotService) *SlotHandler {
	return &SlotHandler{
		BaseHandler:  base,
		claimService: claimService,
		slotService:  slotService,
	}
}

func (h *SlotHandler) ClaimByRequest(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	slot, err := h.claimService.ClaimByRequest(c.Param("id"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.SlotToResponse(slot))
}

func (h *SlotHandler) ClaimBySlot(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	slot, err := h.claimService.ClaimBySlot(c.Param("id"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.SlotToResponse(slot))
}

func (h *SlotHandler) Unclaim(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	slot, err := h.claimService.Unclaim(c.Param("id"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.SlotToResponse(slot))
}

func (h *SlotHandler) Submit(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitFeedbackRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	resp, err := h.slotService.Submit(c.Param("id"), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SlotHandler) Accept(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.AcceptFeedbackRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	resp, err := h.slotService.Accept(c.Param("id"), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SlotHandler) Reject(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.RejectFeedbackRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	resp, err := h.slotService.Reject(c.Param("id"), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SlotHandler) Dispute(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.DisputeRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	resp, err := h.slotService.Dispute(c.Param("id"), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SlotHandler) ListMine(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.slotService.ListByReviewer(userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": resp})
}
