package types

import (
	"context"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	if _, ok := RequestID(ctx); ok {
		t.Fatalf("expected no request id on empty context")
	}

	ctx = WithRequestID(ctx, "req-1")
	if got, ok := RequestID(ctx); !ok || got != "req-1" {
		t.Fatalf("RequestID mismatch: %v %v", got, ok)
	}

	ctx = WithUserID(ctx, "user")
	if got, ok := UserID(ctx); !ok || got != "user" {
		t.Fatalf("UserID mismatch: %v %v", got, ok)
	}

	ctx = WithRoles(ctx, []string{"admin"})
	if got, ok := Roles(ctx); !ok || len(got) != 1 || got[0] != "admin" {
		t.Fatalf("Roles mismatch: %v %v", got, ok)
	}
}
