package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marvel-rag/internal/app"
	"marvel-rag/internal/transport/http/response"
)

type AgentAsker interface {
	Ask(ctx context.Context, question string) (*app.AgentResult, error)
}

type AgentHandler struct {
	agent  AgentAsker
	logger *zap.Logger
}

type AskAgentRequest struct {
	Question string `json:"question"`
}

func NewAgentHandler(agent AgentAsker, logger *zap.Logger) *AgentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentHandler{agent: agent, logger: logger}
}

func (h *AgentHandler) Ask(c *gin.Context) {
	var req AskAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.agent.Ask(c.Request.Context(), req.Question)
	if err != nil {
		writeServiceError(c, h.logger, err, "agent ask failed")
		return
	}
	response.OK(c, result)
}
