package appErrors

// Коды ошибок сгруппированные по доменам
const (
	// Аутентификация и авторизация
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"

	// Валидация
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeWeakPassword     ErrorCode = "WEAK_PASSWORD"
	CodeInvalidUserRole  ErrorCode = "INVALID_USER_ROLE"

	// Ресурсы
	CodeUserNotFound    ErrorCode = "USER_NOT_FOUND"
	CodeRequestNotFound ErrorCode = "REQUEST_NOT_FOUND"
	CodeSlotNotFound    ErrorCode = "SLOT_NOT_FOUND"

	// Бизнес-логика движка слотов
	CodeInvalidState     ErrorCode = "INVALID_STATE"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeNoSlotsAvailable ErrorCode = "NO_SLOTS_AVAILABLE"
	CodeEmailExists      ErrorCode = "EMAIL_ALREADY_EXISTS"

	// Системные ошибки
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"
)
