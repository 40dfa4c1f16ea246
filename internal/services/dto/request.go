package dto

import (
	"time"

	"github.com/Yzori/Critvue-sub002/internal/models"
)

type CreateRequestRequest struct {
	Title            string     `json:"title" binding:"required,max=200"`
	Description      string     `json:"description" binding:"max=5000"`
	Category         string     `json:"category" binding:"required,max=50"`
	ReviewsRequested int        `json:"reviews_requested" binding:"required,min=1,max=20"`
	BudgetPerReview  *float64   `json:"budget_per_review,omitempty" binding:"omitempty,gt=0"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	Draft            bool       `json:"draft"`
}

type RequestResponse struct {
	ID               string               `json:"id"`
	OwnerID          string               `json:"owner_id"`
	Title            string               `json:"title"`
	Description      string               `json:"description,omitempty"`
	Category         string               `json:"category"`
	ReviewsRequested int                  `json:"reviews_requested"`
	ClaimedCount     int                  `json:"claimed_count"`
	CompletedCount   int                  `json:"completed_count"`
	Status           models.RequestStatus `json:"status"`
	BudgetPerReview  *float64             `json:"budget_per_review,omitempty"`
	Deadline         *time.Time           `json:"deadline,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	Slots            []*SlotResponse      `json:"slots,omitempty"`
}

type RequestListResponse struct {
	Requests []*RequestResponse `json:"requests"`
	Total    int64              `json:"total"`
}
