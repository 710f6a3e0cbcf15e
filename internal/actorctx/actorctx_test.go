package actorctx

import (
	"context"
	"testing"
)

func TestPrincipalRoundTrip(t *testing.T) {
	ctx := WithPrincipal(context.Background(), Principal{ID: "u1", Email: "a@b.co"})

	p, ok := PrincipalFrom(ctx)
	if !ok || p.Email != "a@b.co" {
		t.Fatalf("got %+v ok=%v", p, ok)
	}

	id, ok := UserIDFrom(ctx)
	if !ok || id != "u1" {
		t.Fatalf("got id=%q ok=%v", id, ok)
	}
}

func TestPrincipalMissingOrEmpty(t *testing.T) {
	if _, ok := PrincipalFrom(context.Background()); ok {
		t.Fatal("expected no principal")
	}

	ctx := WithPrincipal(context.Background(), Principal{})
	if _, ok := UserIDFrom(ctx); ok {
		t.Fatal("empty id should not count as authenticated")
	}
}
