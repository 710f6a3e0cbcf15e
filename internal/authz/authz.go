package authz

import (
	"context"
	"errors"
)

var ErrForbidden = errors.New("you do not own this resource")

// Owned is anything that records the id of the user who created it.
type Owned interface {
	OwnerID() string
}

// RequireOwner loads a record and checks it belongs to principalID. Errors
// from load (including not-found sentinels) are returned unchanged.
func RequireOwner[T Owned](ctx context.Context, principalID string, load func(context.Context) (T, error)) (T, error) {
	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if principalID == "" || v.OwnerID() != principalID {
		var zero T
		return zero, ErrForbidden
	}

	return v, nil
}
