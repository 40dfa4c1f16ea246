package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Yzori/Critvue-sub002/internal/services"
)

type ReputationHandler struct {
	*BaseHandler
	reputationService services.ReputationService
}

func NewReputationHandler(base *BaseHandler, reputationService services.ReputationService) *ReputationHandler {
	return &ReputationHandler{
		BaseHandler:       base,
		reputationService: reputationService,
	}
}

// GetMyProfile возвращает репутацию текущего пользователя.
func (h *ReputationHandler) GetMyProfile(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.reputationService.GetProfile(userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetProfile возвращает публичную репутацию по id пользователя.
func (h *ReputationHandler) GetProfile(c *gin.Context) {
	resp, err := h.reputationService.GetProfile(c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	// Публичный профиль без истории событий
	resp.RecentEvents = nil
	c.JSON(http.StatusOK, resp)
}

func (h *ReputationHandler) GetKarmaHistory(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	resp, err := h.reputationService.GetKarmaHistory(userID, limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": resp})
}
