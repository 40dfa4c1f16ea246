package validator

import (
	"log"

	"github.com/go-playground/validator/v10"

	"github.com/Yzori/Critvue-sub002/internal/models"
)

// registerCustomRules регистрирует кастомные правила валидации на основе
// доменных статусов.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-user-role", validateUserRole)
	mustRegister("is-rejection-reason", validateRejectionReason)
	mustRegister("is-dispute-resolution", validateDisputeResolution)
}

func validateUserRole(fl validator.FieldLevel) bool {
	switch models.UserRole(fl.Field().String()) {
	case models.UserRoleReviewer, models.UserRoleCreator, models.UserRoleAdmin:
		return true
	}
	return false
}

func validateRejectionReason(fl validator.FieldLevel) bool {
	return models.RejectionReason(fl.Field().String()).Valid()
}

func validateDisputeResolution(fl validator.FieldLevel) bool {
	switch models.DisputeResolution(fl.Field().String()) {
	case models.DisputeResolutionReviewerWins, models.DisputeResolutionRequesterWins:
		return true
	}
	return false
}
