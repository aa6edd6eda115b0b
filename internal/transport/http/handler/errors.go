package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marvel-rag/internal/app"
	"marvel-rag/internal/observability"
	"marvel-rag/internal/transport/http/response"
)

// writeServiceError maps service errors to HTTP statuses. Unexpected errors
// are logged and hidden behind fallbackMessage.
func writeServiceError(c *gin.Context, logger *zap.Logger, err error, fallbackMessage string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrHeroNotFound):
		response.Error(c, http.StatusNotFound, response.CodeHeroNotFound, err.Error())
	case errors.Is(err, app.ErrLLMUnavailable):
		response.Error(c, http.StatusBadGateway, response.CodeLLMUnavailable, "llm unavailable")
	default:
		observability.Logger(c.Request.Context(), logger).Error(fallbackMessage, zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallbackMessage)
	}
}
