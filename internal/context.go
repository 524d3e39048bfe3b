package internal

import (
	"context"
	"time"
)

// Actor identifies who performed a mutation for audit attribution. Background
// and seed writes use SystemActor instead of resolving a user ambiently.
type Actor struct {
	UserID   string
	Username string
}

// SystemActor attributes automated writes (seeding, expiry resets, migrations).
var SystemActor = Actor{UserID: "SYSTEM", Username: "system"}

func (a Actor) IsSystem() bool {
	return a.UserID == SystemActor.UserID
}

// Ref is the value persisted into created_by/updated_by/deleted_by columns.
func (a Actor) Ref() string {
	if a.UserID == "" {
		return SystemActor.UserID
	}
	return a.UserID
}

type ctxKey string

const contextActorKey ctxKey = "actor"

func ActorFromContext(ctx context.Context) Actor {
	if ctx == nil {
		return SystemActor
	}
	if actor, ok := ctx.Value(contextActorKey).(Actor); ok {
		return actor
	}
	return SystemActor
}

func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextActorKey, actor)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
