package handlers

import (
  "fmt"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/yungbote/skillforge-backend/internal/sse"
)

type SSEHandler struct {
  hub *sse.SSEHub
}

func NewSSEHandler(hub *sse.SSEHub) *SSEHandler {
  return &SSEHandler{hub: hub}
}

// GET /api/sse/stream?user_id=...
// Subscribes the caller to their generation and journey events.
func (h *SSEHandler) Stream(c *gin.Context) {
  userID, err := uuid.Parse(c.Query("user_id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
    return
  }

  client := h.hub.NewSSEClient(userID)
  h.hub.AddChannel(client, fmt.Sprintf("user:%s", userID))
  defer h.hub.RemoveClient(client)

  h.hub.ServeHTTP(c.Writer, c.Request, client)
}
