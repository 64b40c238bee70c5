package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yungbote/skillforge-backend/internal/services"
  "github.com/yungbote/skillforge-backend/internal/types"
)

type JourneyHandler struct {
  journeys services.JourneyPlanner
}

func NewJourneyHandler(journeys services.JourneyPlanner) *JourneyHandler {
  return &JourneyHandler{journeys: journeys}
}

type planRequest struct {
  UserID   uuid.UUID             `json:"user_id" binding:"required"`
  Strategy types.JourneyStrategy `json:"strategy" binding:"required"`
}

// POST /api/journeys
func (h *JourneyHandler) Plan(c *gin.Context) {
  var req planRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request", err)
    return
  }
  journey, nodes, err := h.journeys.Plan(c.Request.Context(), req.UserID, req.Strategy)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "plan_failed", err)
    return
  }
  RespondOK(c, gin.H{"journey": journey, "nodes": nodes})
}

// POST /api/journeys/:id/nodes/:nodeId/complete
func (h *JourneyHandler) CompleteNode(c *gin.Context) {
  journeyID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_journey_id", err)
    return
  }
  nodeID, err := uuid.Parse(c.Param("nodeId"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_node_id", err)
    return
  }
  journey, err := h.journeys.CompleteNode(c.Request.Context(), journeyID, nodeID)
  if err != nil {
    RespondError(c, http.StatusConflict, "complete_failed", err)
    return
  }
  RespondOK(c, gin.H{"journey": journey})
}

// POST /api/journeys/:id/recalculate
func (h *JourneyHandler) Recalculate(c *gin.Context) {
  journeyID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_journey_id", err)
    return
  }
  if err := h.journeys.Recalculate(c.Request.Context(), journeyID); err != nil {
    RespondError(c, http.StatusConflict, "recalculate_failed", err)
    return
  }
  RespondOK(c, gin.H{"recalculated": true})
}
