package handlers

import (
  "errors"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yungbote/skillforge-backend/internal/repos"
  "github.com/yungbote/skillforge-backend/internal/services"
)

// OpsHandler exposes the batch entry points and the admin approval surface.
type OpsHandler struct {
  orchestrator services.Orchestrator
  approvals    services.ApprovalService
  queue        services.GenerationQueue
  alerts       repos.GenerationAlertRepo
}

func NewOpsHandler(
  orchestrator services.Orchestrator,
  approvals services.ApprovalService,
  queue services.GenerationQueue,
  alerts repos.GenerationAlertRepo,
) *OpsHandler {
  return &OpsHandler{
    orchestrator: orchestrator,
    approvals:    approvals,
    queue:        queue,
    alerts:       alerts,
  }
}

// POST /ops/sweep
func (h *OpsHandler) RunSweep(c *gin.Context) {
  report, err := h.orchestrator.NightlySweep(c.Request.Context())
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "sweep_failed", err)
    return
  }
  RespondOK(c, gin.H{"report": report})
}

// POST /ops/drain
func (h *OpsHandler) RunDrain(c *gin.Context) {
  report, err := h.orchestrator.DrainQueue(c.Request.Context())
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "drain_failed", err)
    return
  }
  RespondOK(c, gin.H{"report": report})
}

// GET /ops/approvals
func (h *OpsHandler) ListApprovals(c *gin.Context) {
  tasks, err := h.approvals.ListPending(c.Request.Context(), 100)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "approvals_unavailable", err)
    return
  }
  RespondOK(c, gin.H{"tasks": tasks})
}

type decideRequest struct {
  Approve   bool   `json:"approve"`
  DecidedBy string `json:"decided_by" binding:"required"`
  Reason    string `json:"reason"`
}

// POST /ops/approvals/:id/decide
func (h *OpsHandler) DecideApproval(c *gin.Context) {
  taskID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_task_id", err)
    return
  }
  var req decideRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request", err)
    return
  }

  err = h.approvals.Decide(c.Request.Context(), taskID, req.Approve, req.DecidedBy, req.Reason)
  if err != nil {
    if errors.Is(err, services.ErrRateLimited) {
      RespondError(c, http.StatusTooManyRequests, "rate_limited", err)
      return
    }
    RespondError(c, http.StatusConflict, "decision_failed", err)
    return
  }
  RespondOK(c, gin.H{"decided": true})
}

// POST /ops/queue/:id/retry
func (h *OpsHandler) RetryQueueItem(c *gin.Context) {
  itemID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_queue_id", err)
    return
  }
  if err := h.queue.Retry(c.Request.Context(), itemID); err != nil {
    RespondError(c, http.StatusConflict, "retry_failed", err)
    return
  }
  RespondOK(c, gin.H{"retried": true})
}

// POST /ops/queue/:id/cancel
func (h *OpsHandler) CancelQueueItem(c *gin.Context) {
  itemID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_queue_id", err)
    return
  }
  if err := h.queue.Cancel(c.Request.Context(), itemID); err != nil {
    RespondError(c, http.StatusConflict, "cancel_failed", err)
    return
  }
  RespondOK(c, gin.H{"cancelled": true})
}

// GET /ops/alerts
func (h *OpsHandler) ListAlerts(c *gin.Context) {
  alerts, err := h.alerts.ListRecent(c.Request.Context(), nil, 100)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "alerts_unavailable", err)
    return
  }
  RespondOK(c, gin.H{"alerts": alerts})
}
