package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/skillforge-backend/internal/types"
)

func nodesWithStatuses(statuses ...types.JourneyNodeStatus) []*types.JourneyNode {
	nodes := make([]*types.JourneyNode, len(statuses))
	for i, status := range statuses {
		nodes[i] = &types.JourneyNode{ID: uuid.New(), Order: i, Status: status}
	}
	return nodes
}

func TestAdvanceThroughThreeNodeJourney(t *testing.T) {
	// [A completed, B pending, C pending] -> index 1, still active.
	nodes := nodesWithStatuses(types.JourneyNodeCompleted, types.JourneyNodePending, types.JourneyNodePending)
	next, percent, done := advance(nodes)
	if next != 1 || done {
		t.Fatalf("after A: next=%d done=%v, want 1/false", next, done)
	}
	if percent < 33 || percent > 34 {
		t.Fatalf("after A: percent=%v, want ~33", percent)
	}

	nodes[1].Status = types.JourneyNodeCompleted
	next, percent, done = advance(nodes)
	if next != 2 || done {
		t.Fatalf("after B: next=%d done=%v, want 2/false", next, done)
	}

	nodes[2].Status = types.JourneyNodeCompleted
	next, percent, done = advance(nodes)
	if !done {
		t.Fatalf("all nodes completed, journey should be done")
	}
	if percent != 100 {
		t.Fatalf("percent=%v, want 100", percent)
	}
	if next != 2 {
		t.Fatalf("index should rest on the last node, got %d", next)
	}
}

func TestAdvanceSkipsCompletedGapsInTheMiddle(t *testing.T) {
	nodes := nodesWithStatuses(types.JourneyNodeCompleted, types.JourneyNodeCompleted, types.JourneyNodePending)
	next, percent, done := advance(nodes)
	if next != 2 || done {
		t.Fatalf("next=%d done=%v, want 2/false", next, done)
	}
	if percent < 66 || percent > 67 {
		t.Fatalf("percent=%v, want ~66", percent)
	}
}
