package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

type HealthChecker struct {
	checks map[string]func(context.Context) error
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	return &HealthChecker{
		checks: map[string]func(context.Context) error{
			"postgres": infra.Postgres().Ping,
			"redis":    infra.Redis().Ping,
		},
	}
}

type checkResult struct {
	name string
	err  error
}

// check runs every dependency probe concurrently and reports each one
func (h *HealthChecker) check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	results := make(chan checkResult, len(h.checks))
	for name, probe := range h.checks {
		go func() {
			results <- checkResult{name: name, err: probe(ctx)}
		}()
	}

	report := make(map[string]string, len(h.checks))
	healthy := true
	for range h.checks {
		r := <-results
		if r.err != nil {
			healthy = false
			report[r.name] = "fail: " + r.err.Error()
			continue
		}
		report[r.name] = "pass"
	}

	return report, healthy
}

func (h *HealthChecker) Handler(c *gin.Context) {
	report, healthy := h.check(c.Request.Context())
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "fail",
			"checks": report,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "pass",
		"checks": report,
	})
}
