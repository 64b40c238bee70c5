package handlers

import (
  "errors"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yungbote/skillforge-backend/internal/services"
)

type TutorialHandler struct {
  tutorials services.TutorialService
}

func NewTutorialHandler(tutorials services.TutorialService) *TutorialHandler {
  return &TutorialHandler{tutorials: tutorials}
}

// GET /api/tutorials/:id
func (h *TutorialHandler) Get(c *gin.Context) {
  tutorialID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_tutorial_id", err)
    return
  }
  tutorial, err := h.tutorials.Get(c.Request.Context(), tutorialID)
  if err != nil {
    RespondError(c, http.StatusNotFound, "tutorial_not_found", err)
    return
  }
  RespondOK(c, gin.H{"tutorial": tutorial})
}

// POST /api/tutorials/:id/audit
func (h *TutorialHandler) Audit(c *gin.Context) {
  tutorialID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_tutorial_id", err)
    return
  }
  report, err := h.tutorials.Audit(c.Request.Context(), tutorialID)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "audit_failed", err)
    return
  }
  RespondOK(c, gin.H{"report": report})
}

type publishRequest struct {
  PublishedBy string `json:"published_by" binding:"required"`
}

// POST /api/tutorials/:id/publish
func (h *TutorialHandler) Publish(c *gin.Context) {
  tutorialID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_tutorial_id", err)
    return
  }
  var req publishRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request", err)
    return
  }
  if err := h.tutorials.Publish(c.Request.Context(), tutorialID, req.PublishedBy); err != nil {
    if errors.Is(err, services.ErrAuditRequired) {
      RespondError(c, http.StatusConflict, "audit_required", err)
      return
    }
    RespondError(c, http.StatusInternalServerError, "publish_failed", err)
    return
  }
  RespondOK(c, gin.H{"published": true})
}

// POST /api/tutorials/:id/archive
func (h *TutorialHandler) Archive(c *gin.Context) {
  tutorialID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_tutorial_id", err)
    return
  }
  if err := h.tutorials.Archive(c.Request.Context(), tutorialID); err != nil {
    RespondError(c, http.StatusInternalServerError, "archive_failed", err)
    return
  }
  RespondOK(c, gin.H{"archived": true})
}

// GET /api/tutorials/:id/versions
func (h *TutorialHandler) Versions(c *gin.Context) {
  tutorialID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_tutorial_id", err)
    return
  }
  versions, err := h.tutorials.Versions(c.Request.Context(), tutorialID)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "versions_unavailable", err)
    return
  }
  RespondOK(c, gin.H{"versions": versions})
}
