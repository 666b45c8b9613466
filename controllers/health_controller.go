package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type HealthController struct {
	service string
	checks  map[string]Check
}

func NewHealthController(service string, checks map[string]Check) *HealthController {
	return &HealthController{service: service, checks: checks}
}

// Health handles GET /health. Any failing dependency yields 503.
func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(gin.H, len(hc.checks))
	for name, check := range hc.checks {
		if err := check(ctx); err != nil {
			deps[name] = "DOWN"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "UP"
	}

	overall := "OK"
	if status != http.StatusOK {
		overall = "DEGRADED"
	}
	c.JSON(status, gin.H{"status": overall, "service": hc.service, "dependencies": deps})
}
