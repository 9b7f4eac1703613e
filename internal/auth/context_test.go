package auth

import (
	"context"
	"testing"
)

func TestIdentityFromContext(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatal("expected no identity on a bare context")
	}

	ctx := ContextWithClaims(context.Background(), &Claims{StaffID: 7, Role: RoleWaiter})
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		t.Fatal("expected identity from attached claims")
	}
	if identity.ID != 7 || identity.Role != RoleWaiter {
		t.Errorf("unexpected identity %+v", identity)
	}

	if _, ok := ClaimsFromContext(ContextWithClaims(context.Background(), nil)); ok {
		t.Error("nil claims must not count as authenticated")
	}
}
