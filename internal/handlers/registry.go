package handlers

import (
	"github.com/Yzori/Critvue-sub002/internal/services"
	"github.com/Yzori/Critvue-sub002/internal/validator"
)

// AppHandlers содержит все HTTP-обработчики приложения.
type AppHandlers struct {
	AuthHandler         *AuthHandler
	RequestHandler      *RequestHandler
	SlotHandler         *SlotHandler
	AdminHandler        *AdminHandler
	ReputationHandler   *ReputationHandler
	NotificationHandler *NotificationHandler
}

func NewAppHandlers(sc *services.ServiceContainer, v *validator.Validator, sweeper Sweeper) *AppHandlers {
	base := NewBaseHandler(v)
	return &AppHandlers{
		AuthHandler:         NewAuthHandler(base, sc.AuthService),
		RequestHandler:      NewRequestHandler(base, sc.RequestService),
		SlotHandler:         NewSlotHandler(base, sc.ClaimService, sc.SlotService),
		AdminHandler:        NewAdminHandler(base, sc.AdminService, sweeper),
		ReputationHandler:   NewReputationHandler(base, sc.ReputationService),
		NotificationHandler: NewNotificationHandler(base, sc.NotificationService),
	}
}
