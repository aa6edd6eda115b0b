package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Dependency is one health probe. Optional dependencies are reported but do
// not fail the check, since retrieval degrades without them.
type Dependency struct {
	Name     string
	Optional bool
	Check    func(ctx context.Context) error
}

type HealthInfo struct {
	App       string
	Env       string
	StartedAt time.Time
	// Tiers lists the retrieval chain of each feature, outermost first.
	Tiers map[string][]string
}

type HealthHandler struct {
	info         HealthInfo
	dependencies []Dependency
}

type dependencyStatus struct {
	OK       bool   `json:"ok"`
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message,omitempty"`
}

func NewHealthHandler(info HealthInfo, dependencies ...Dependency) *HealthHandler {
	return &HealthHandler{info: info, dependencies: dependencies}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	statuses := make(map[string]dependencyStatus, len(h.dependencies))
	allOK := true
	for _, dep := range h.dependencies {
		status := dependencyStatus{OK: true, Optional: dep.Optional}
		if err := dep.Check(ctx); err != nil {
			status.OK = false
			status.Message = err.Error()
			if !dep.Optional {
				allOK = false
			}
		}
		statuses[dep.Name] = status
	}

	statusCode := http.StatusOK
	if !allOK {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"app":          h.info.App,
		"env":          h.info.Env,
		"uptime_sec":   int(time.Since(h.info.StartedAt).Seconds()),
		"tiers":        h.info.Tiers,
		"dependencies": statuses,
	})
}
