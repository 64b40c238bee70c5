package observability

import (
	"context"
	"testing"

	"github.com/yungbote/skillforge-backend/internal/logger"
)

func TestInitOTelShutdownIsCallableWhenDisabled(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")

	shutdown := InitOTel(context.Background(), logger.NewNop(), OtelConfig{ServiceName: "test"})
	if shutdown == nil {
		t.Fatal("shutdown func must never be nil; main defers it unconditionally")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown returned %v", err)
	}
}
