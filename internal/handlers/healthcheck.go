package handlers

import (
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/yungbote/skillforge-backend/internal/services"
)

type HealthHandler struct {
  orchestrator services.Orchestrator
}

func NewHealthHandler(orchestrator services.Orchestrator) *HealthHandler {
  return &HealthHandler{orchestrator: orchestrator}
}

// GET /healthz
func (h *HealthHandler) Healthz(c *gin.Context) {
  status := h.orchestrator.Health(c.Request.Context())
  code := http.StatusOK
  if !status.Healthy {
    code = http.StatusServiceUnavailable
  }
  c.JSON(code, status)
}
