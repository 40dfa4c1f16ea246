package services

import (
	"gorm.io/gorm"

	"github.com/Yzori/Critvue-sub002/internal/config"
	"github.com/Yzori/Critvue-sub002/internal/repositories"
)

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	AuthService         AuthService
	RequestService      RequestService
	ClaimService        ClaimService
	SlotService         SlotService
	AdminService        AdminService
	ReputationService   ReputationService
	NotificationService NotificationService

	// Machine is exported for the scheduler, which drives transitions
	// directly rather than through the API-facing services.
	Machine  *SlotMachine
	Tiers    *TierService
	Rewards  *RewardService
	Payments PaymentProcessor
}

// NewServiceContainer wires repositories and services. The raw *gorm.DB
// satisfies the Database interface; tests swap in a fake.
func NewServiceContainer(db *gorm.DB, cfg *config.Config) *ServiceContainer {
	userRepo := repositories.NewUserRepository()
	requestRepo := repositories.NewRequestRepository()
	slotRepo := repositories.NewSlotRepository()
	repRepo := repositories.NewReputationRepository()
	adminClaimRepo := repositories.NewAdminClaimRepository()
	notificationRepo := repositories.NewNotificationRepository()
	paymentRepo := repositories.NewPaymentRepository()

	notifications := NewNotificationService(db, notificationRepo, userRepo, cfg)
	payments := NewPaymentProcessor(paymentRepo, cfg.Payments.PlatformFeePct)
	tiers := NewTierService(slotRepo, repRepo, notifications)
	rewards := NewRewardService(repRepo, tiers, cfg.Karma)

	machine := NewSlotMachine(db, slotRepo, requestRepo, userRepo, adminClaimRepo,
		rewards, payments, notifications, cfg.Engine)

	return &ServiceContainer{
		AuthService:         NewAuthService(db, userRepo, cfg),
		RequestService:      NewRequestService(db, requestRepo, slotRepo),
		ClaimService:        NewClaimService(db, machine, slotRepo, requestRepo, userRepo, tiers),
		SlotService:         NewSlotService(db, machine, slotRepo),
		AdminService:        NewAdminService(db, machine, slotRepo, adminClaimRepo),
		ReputationService:   NewReputationService(db, repRepo),
		NotificationService: notifications,

		Machine:  machine,
		Tiers:    tiers,
		Rewards:  rewards,
		Payments: payments,
	}
}
