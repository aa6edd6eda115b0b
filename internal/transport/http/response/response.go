// Package response writes the {code, message, data} envelope shared by every
// route.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Business codes. The first three digits repeat the HTTP status.
const (
	CodeOK             = 0
	CodeBadRequest     = 40000
	CodeUnauthorized   = 40100
	CodeHeroNotFound   = 40401
	CodeInternalServer = 50000
	CodeLLMUnavailable = 50201
)

type APIResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{Code: CodeOK, Message: "ok", Data: data})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{Code: code, Message: message})
}

// Abort writes the error envelope and stops the handler chain.
func Abort(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, APIResponse{Code: code, Message: message})
}
