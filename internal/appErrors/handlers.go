package appErrors

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Yzori/Critvue-sub002/internal/logger"
)

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// HandleError отправляет ошибку в ответ Gin. Неизвестные ошибки оборачиваются
// в InternalError, чтобы не светить детали наружу.
func HandleError(c *gin.Context, err error) {
	var appErr *AppError
	if !As(err, &appErr) {
		appErr = New(CodeInternalError, "Internal server error", http.StatusInternalServerError).WithError(err)
	}

	if appErr.HTTPCode >= 500 {
		logger.Error("server error", "error", err.Error(), "path", c.Request.URL.Path)
	}

	c.JSON(appErr.HTTPCode, ErrorResponse{Error: appErr})
}
