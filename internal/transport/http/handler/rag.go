package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marvel-rag/internal/app"
	"marvel-rag/internal/transport/http/response"
)

type HeroComparer interface {
	CompareHeroes(ctx context.Context, heroIDs []string, question string) (*app.CompareResult, error)
}

type HeroUpserter interface {
	UpsertHero(ctx context.Context, id, name, text string) error
}

type RAGHandler struct {
	comparer HeroComparer
	upserter HeroUpserter
	logger   *zap.Logger
}

type CompareHeroesRequest struct {
	HeroIDs  []string `json:"heroIds"`
	Question string   `json:"question"`
}

type UpsertHeroRequest struct {
	Nombre    string `json:"nombre" binding:"required,max=256"`
	Contenido string `json:"contenido" binding:"required"`
}

func NewRAGHandler(comparer HeroComparer, upserter HeroUpserter, logger *zap.Logger) *RAGHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RAGHandler{comparer: comparer, upserter: upserter, logger: logger}
}

func (h *RAGHandler) CompareHeroes(c *gin.Context) {
	var req CompareHeroesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.comparer.CompareHeroes(c.Request.Context(), req.HeroIDs, req.Question)
	if err != nil {
		writeServiceError(c, h.logger, err, "compare heroes failed")
		return
	}
	response.OK(c, result)
}

func (h *RAGHandler) UpsertHero(c *gin.Context) {
	var req UpsertHeroRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	heroID := strings.TrimSpace(c.Param("id"))
	if err := h.upserter.UpsertHero(c.Request.Context(), heroID, req.Nombre, req.Contenido); err != nil {
		writeServiceError(c, h.logger, err, "upsert hero failed")
		return
	}
	response.OK(c, gin.H{"heroId": heroID})
}
