package handlers

import (
  "errors"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yungbote/skillforge-backend/internal/services"
  "github.com/yungbote/skillforge-backend/internal/types"
)

type GenerationHandler struct {
  queue services.GenerationQueue
}

func NewGenerationHandler(queue services.GenerationQueue) *GenerationHandler {
  return &GenerationHandler{queue: queue}
}

type enqueueRequest struct {
  UserID   uuid.UUID `json:"user_id" binding:"required"`
  Topic    string    `json:"topic" binding:"required"`
  Priority int       `json:"priority"`
}

// POST /api/generations
// Ad-hoc topic request with an explicit priority override.
func (h *GenerationHandler) Enqueue(c *gin.Context) {
  var req enqueueRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request", err)
    return
  }

  item, err := h.queue.Enqueue(c.Request.Context(), req.UserID, req.Topic, types.TriggerChannelOnboarding, req.Priority)
  if err != nil {
    if errors.Is(err, services.ErrRateLimited) {
      RespondError(c, http.StatusTooManyRequests, "rate_limited", err)
      return
    }
    RespondError(c, http.StatusInternalServerError, "enqueue_failed", err)
    return
  }
  RespondOK(c, gin.H{"item": item})
}
