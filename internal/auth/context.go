package auth

import (
	"context"

	"github.com/Decentr-net/animenexus/internal/entities"
)

type actorKey struct{}

// WithActor puts actor into context.
func WithActor(ctx context.Context, a *entities.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns actor from context or nil for anonymous requests.
func ActorFrom(ctx context.Context) *entities.Actor {
	a, _ := ctx.Value(actorKey{}).(*entities.Actor)
	return a
}
