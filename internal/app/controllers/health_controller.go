package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/registrar/internal/app/models/dto"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController reports service liveness
type HealthController struct {
	store Pinger
}

// NewHealthController creates a new HealthController
func NewHealthController(store Pinger) *HealthController {
	return &HealthController{store: store}
}

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	Store  string `json:"store" example:"ok"`
}

// Health checks the store
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} dto.APIResponse{data=HealthResponse}
// @Failure 503 {object} dto.APIResponse{data=HealthResponse}
// @Router /health [get]
func (c *HealthController) Health(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := c.store.Ping(pingCtx); err != nil {
		resp := dto.NewSuccessResponse(HealthResponse{Status: "degraded", Store: err.Error()})
		resp.Success = false
		ctx.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(HealthResponse{Status: "ok", Store: "ok"}))
}
