package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Yzori/Critvue-sub002/internal/models"
	"github.com/Yzori/Critvue-sub002/internal/services"
	"github.com/Yzori/Critvue-sub002/internal/services/dto"
)

// Sweeper exposes the scheduler's sweep passes for manual triggering. The
// slot worker satisfies it.
type Sweeper interface {
	RunExpiredClaimsSweep() int
	RunAutoAcceptSweep() int
	RunStaleRejectedSweep() int
	RunStaleAdminClaimsSweep() int
}

type AdminHandler struct {
	*BaseHandler
	adminService services.AdminService
	sweeper      Sweeper
}

func NewAdminHandler(base *BaseHandler, adminService services.AdminService, sweeper Sweeper) *AdminHandler {
	return &AdminHandler{
		BaseHandler:  base,
		adminService: adminService,
		sweeper:      sweeper,
	}
}

func (h *AdminHandler) ListDisputes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	resp, err := h.adminService.ListDisputes(limit, offset)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disputes": resp})
}

func (h *AdminHandler) ClaimDispute(c *gin.Context) {
	adminID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.adminService.ClaimDispute(c.Param("id"), adminID); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "dispute claimed"})
}

func (h *AdminHandler) ResolveDispute(c *gin.Context) {
	adminID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.ResolveDisputeRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	resp, err := h.adminService.ResolveDispute(c.Param("id"), adminID, models.DisputeResolution(req.Resolution))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// TriggerSweep runs one scheduler sweep pass on demand. The cron schedule
// stays authoritative; this exists for operational catch-up.
func (h *AdminHandler) TriggerSweep(c *gin.Context) {
	var processed int
	switch c.Param("name") {
	case "expired-claims":
		processed = h.sweeper.RunExpiredClaimsSweep()
	case "auto-accept":
		processed = h.sweeper.RunAutoAcceptSweep()
	case "stale-rejected":
		processed = h.sweeper.RunStaleRejectedSweep()
	case "stale-admin-claims":
		processed = h.sweeper.RunStaleAdminClaimsSweep()
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown sweep"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"processed": processed})
}
