package services_test

import (
	"testing"

	"yoink/internal/services"
)

func TestJobContextRoundTrip(t *testing.T) {
	ctx := services.WithJobID(t.Context(), 17)
	ctx = services.WithStage(ctx, "delivering")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != 17 {
		t.Errorf("JobIDFromContext = %d, %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "delivering" {
		t.Errorf("StageFromContext = %q, %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Errorf("RequestIDFromContext = %q, %v", rid, ok)
	}
}

func TestEmptyContextValues(t *testing.T) {
	ctx := t.Context()
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Error("unexpected job id in fresh context")
	}
	if _, ok := services.StageFromContext(services.WithStage(ctx, "")); ok {
		t.Error("empty stage should not be stored")
	}
	if _, ok := services.RequestIDFromContext(services.WithRequestID(ctx, "")); ok {
		t.Error("empty request id should not be stored")
	}
}
