package jobs

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID(Prefix)
	if !strings.HasPrefix(id, Prefix) {
		t.Fatalf("expected prefix %q, got %q", Prefix, id)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(id, Prefix)); err != nil {
		t.Errorf("expected uuid suffix, got %q: %v", id, err)
	}
	if GenerateID(Prefix) == id {
		t.Error("expected distinct IDs")
	}
}

func TestIDFromContext(t *testing.T) {
	if _, ok := IDFrom(context.Background()); ok {
		t.Error("expected no ID on empty context")
	}
	if _, ok := IDFrom(WithID(context.Background(), "")); ok {
		t.Error("expected empty ID to be treated as absent")
	}

	ctx := WithID(context.Background(), "cmp-123")
	id, ok := IDFrom(ctx)
	if !ok || id != "cmp-123" {
		t.Errorf("got %q, %v", id, ok)
	}
}
