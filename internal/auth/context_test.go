package auth

import (
	"context"
	"testing"
)

func TestIdentityContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := IdentityFromContext(ctx); ok {
		t.Fatal("empty context must not carry an identity")
	}

	identity := Identity{AccountID: "acct-1", Email: "vet@farm.example", Role: RoleUser}
	ctx = ContextWithIdentity(ctx, identity)

	got, ok := IdentityFromContext(ctx)
	if !ok {
		t.Fatal("expected identity in context")
	}
	if got != identity {
		t.Fatalf("identity mismatch: %+v", got)
	}
}

func TestTokenContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := TokenFromContext(ctx); ok {
		t.Fatal("empty context must not carry a token")
	}
	if ctx2 := ContextWithToken(ctx, ""); ctx2 != ctx {
		t.Fatal("empty token must not be stored")
	}

	ctx = ContextWithToken(ctx, "tok-123")
	token, ok := TokenFromContext(ctx)
	if !ok || token != "tok-123" {
		t.Fatalf("unexpected token: %q ok=%v", token, ok)
	}
}
