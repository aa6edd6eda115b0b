package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marvel-rag/internal/bootstrap"
	"marvel-rag/internal/transport/http/handler"
	"marvel-rag/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.Trace(app.Logger), gin.Recovery())

	deps := make([]handler.Dependency, 0, len(app.Dependencies))
	for _, d := range app.Dependencies {
		deps = append(deps, handler.Dependency{Name: d.Name, Optional: d.Optional, Check: d.Check})
	}
	healthHandler := handler.NewHealthHandler(handler.HealthInfo{
		App:       app.Config.App.Name,
		Env:       app.Config.App.Env,
		StartedAt: app.StartedAt,
		Tiers:     app.Tiers,
	}, deps...)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})))

	ragHandler := handler.NewRAGHandler(app.RAG, app.HeroSync, app.Logger)
	agentHandler := handler.NewAgentHandler(app.Agent, app.Logger)

	api := router.Group("/api")
	ragGroup := api.Group("/rag")
	ragGroup.POST("/heroes/compare", ragHandler.CompareHeroes)
	ragGroup.PUT("/heroes/:id", middleware.AuthJWT(app.Config.Auth.JWTSecret), ragHandler.UpsertHero)

	api.POST("/agent/ask", agentHandler.Ask)

	return router
}
