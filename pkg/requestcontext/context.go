// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are set by middleware (or tests) and consumed by services. Keeping the
// package free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	actorID := requestcontext.ActorID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithActor(ctx, domain.ActorRegulator, "inspector-7")
package requestcontext

import (
	"context"
	"time"

	"railledger/pkg/domain"
)

type (
	actorIDKey     struct{}
	actorTypeKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyActorID     = actorIDKey{}
	ContextKeyActorType   = actorTypeKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// ActorID retrieves the authenticated actor identifier. Empty when unset.
func ActorID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyActorID).(string); ok {
		return v
	}
	return ""
}

// ActorType retrieves the authenticated actor type. Defaults to ActorSystem so
// background jobs that never pass through auth middleware attribute their
// writes honestly.
func ActorType(ctx context.Context) domain.ActorType {
	if v, ok := ctx.Value(ContextKeyActorType).(domain.ActorType); ok {
		return v
	}
	return domain.ActorSystem
}

// WithActor injects the acting principal into the context.
func WithActor(ctx context.Context, actorType domain.ActorType, actorID string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyActorType, actorType)
	return context.WithValue(ctx, ContextKeyActorID, actorID)
}

// RequestID retrieves the correlation ID for the current request.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

// Now returns the request-pinned time when present, else the wall clock.
// Status derivation reads time exclusively through this accessor so one
// request observes one instant and tests can pin time deterministically.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - Sweeps that need a consistent instant within one batch
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t.UTC())
}
