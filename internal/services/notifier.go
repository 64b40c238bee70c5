package services

import (
  "fmt"

  "github.com/google/uuid"

  "github.com/yungbote/skillforge-backend/internal/sse"
)

// GenerationNotifier is the fire-and-forget signal surface keyed by user.
type GenerationNotifier interface {
  GenerationStarted(userID uuid.UUID, topic string)
  GenerationSucceeded(userID uuid.UUID, topic string, tutorialID uuid.UUID)
  GenerationFailed(userID uuid.UUID, topic string, reason string)
  JourneyUpdated(userID uuid.UUID, journeyID uuid.UUID)
}

type sseNotifier struct {
  hub *sse.SSEHub
}

func NewSSENotifier(hub *sse.SSEHub) GenerationNotifier {
  return &sseNotifier{hub: hub}
}

func userChannel(userID uuid.UUID) string {
  return fmt.Sprintf("user:%s", userID)
}

func (n *sseNotifier) GenerationStarted(userID uuid.UUID, topic string) {
  n.hub.Broadcast(sse.SSEMessage{
    Channel: userChannel(userID),
    Event:   sse.SSEEventGenerationStarted,
    Data:    map[string]any{"topic": topic},
  })
}

func (n *sseNotifier) GenerationSucceeded(userID uuid.UUID, topic string, tutorialID uuid.UUID) {
  n.hub.Broadcast(sse.SSEMessage{
    Channel: userChannel(userID),
    Event:   sse.SSEEventGenerationSucceeded,
    Data:    map[string]any{"topic": topic, "tutorial_id": tutorialID},
  })
}

func (n *sseNotifier) GenerationFailed(userID uuid.UUID, topic string, reason string) {
  n.hub.Broadcast(sse.SSEMessage{
    Channel: userChannel(userID),
    Event:   sse.SSEEventGenerationFailed,
    Data:    map[string]any{"topic": topic, "reason": reason},
  })
}

func (n *sseNotifier) JourneyUpdated(userID uuid.UUID, journeyID uuid.UUID) {
  n.hub.Broadcast(sse.SSEMessage{
    Channel: userChannel(userID),
    Event:   sse.SSEEventJourneyUpdated,
    Data:    map[string]any{"journey_id": journeyID},
  })
}
