package appErrors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode - тип для кодов ошибок
type ErrorCode string

// AppError - основная структура ошибки приложения
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
	Err      error       `json:"-"`
	HTTPCode int         `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: httpCode,
	}
}

func Wrap(err error, code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Err:      err,
		HTTPCode: httpCode,
	}
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

func (e *AppError) WithError(err error) *AppError {
	clone := *e
	clone.Err = err
	return &clone
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	type alias struct {
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}
	return json.Marshal(&alias{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}

// Is - обертка над стандартной функцией errors.Is
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As - обертка над стандартной функцией errors.As
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Предопределенные ошибки
var (
	// Аутентификация
	ErrInvalidCredentials = New(CodeInvalidCredentials, "Invalid email or password", http.StatusUnauthorized)
	ErrUnauthorized       = New(CodeUnauthorized, "Authentication required", http.StatusUnauthorized)
	ErrForbidden          = New(CodeForbidden, "Access denied", http.StatusForbidden)
	ErrInvalidToken       = New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
	ErrWeakPassword       = New(CodeWeakPassword, "Password must be at least 6 characters", http.StatusBadRequest)
	ErrEmailExists        = New(CodeEmailExists, "Email already exists", http.StatusConflict)
	ErrInvalidUserRole    = New(CodeInvalidUserRole, "Invalid user role", http.StatusBadRequest)

	// Ресурсы
	ErrUserNotFound    = New(CodeUserNotFound, "User not found", http.StatusNotFound)
	ErrRequestNotFound = New(CodeRequestNotFound, "Review request not found", http.StatusNotFound)
	ErrSlotNotFound    = New(CodeSlotNotFound, "Review slot not found", http.StatusNotFound)

	// Валидация
	ErrValidationFailed = New(CodeValidationFailed, "Validation failed", http.StatusBadRequest)

	// Движок слотов
	ErrCannotClaimOwnRequest = New(CodeForbidden, "Cannot claim a slot on your own request", http.StatusForbidden)
	ErrRequestNotClaimable   = New(CodeInvalidState, "Request is not accepting claims", http.StatusConflict)
	ErrNoSlotsAvailable      = New(CodeNoSlotsAvailable, "No available slots on this request", http.StatusConflict)
	ErrDuplicateClaim        = New(CodeAlreadyExists, "Reviewer already holds an active slot on this request", http.StatusConflict)
	ErrSlotAlreadyClaimed    = New(CodeAlreadyExists, "Slot is already claimed", http.StatusConflict)
	ErrRequestHasActiveSlots = New(CodeInvalidState, "Request has slots in an active state", http.StatusConflict)
	ErrDisputeWindowClosed   = New(CodeInvalidState, "Dispute window has closed; the rejection is final", http.StatusConflict)
)

// InvalidStateDetails names the offending and allowed states so API
// consumers can diagnose a transition failure without guessing.
type InvalidStateDetails struct {
	CurrentState  string   `json:"current_state"`
	AllowedStates []string `json:"allowed_states"`
}

// InvalidState builds the typed transition error required by every state
// machine precondition: it always names the current and allowed states and
// never silently no-ops.
func InvalidState(current string, allowed ...string) *AppError {
	msg := fmt.Sprintf("Transition not allowed from state %q", current)
	return New(CodeInvalidState, msg, http.StatusConflict).WithDetails(InvalidStateDetails{
		CurrentState:  current,
		AllowedStates: allowed,
	})
}

// PermissionDenied carries the specific unmet tier/quota condition so the
// user understands remediation.
func PermissionDenied(reason string) *AppError {
	return New(CodePermissionDenied, reason, http.StatusForbidden)
}

func NotFound(resource string) *AppError {
	return New(CodeSlotNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func ValidationError(details interface{}) *AppError {
	return ErrValidationFailed.WithDetails(details)
}

func InternalError(err error) *AppError {
	return Wrap(err, CodeInternalError, "Internal server error", http.StatusInternalServerError)
}

func NewForbiddenError(message string) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

func NewBadRequestError(message string) *AppError {
	return New(CodeValidationFailed, message, http.StatusBadRequest)
}
