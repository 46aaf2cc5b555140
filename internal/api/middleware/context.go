package middleware

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/venter/pkg/models"
)

type contextKey string

const actorKey contextKey = "actor"

// SetActor stores the authenticated caller in ctx.
func SetActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor returns the caller set by Authenticate.
func GetActor(r *http.Request) (models.Actor, bool) {
	actor, ok := r.Context().Value(actorKey).(models.Actor)
	return actor, ok
}
