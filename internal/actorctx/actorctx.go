package actorctx

import "context"

// Principal is the authenticated caller.
type Principal struct {
	ID        string
	Email     string
	Firstname string
	Lastname  string
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)

	return p, ok && p.ID != ""
}

func UserIDFrom(ctx context.Context) (string, bool) {
	p, ok := PrincipalFrom(ctx)

	return p.ID, ok
}
