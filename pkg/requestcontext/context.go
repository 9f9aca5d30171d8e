// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them, services read them, and tests
// inject them without running the HTTP stack.
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey   struct{}
	requestTimeKey struct{}
	operatorKey    struct{}
)

// RequestID retrieves the correlation ID set by middleware, or "".
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Now returns the request time if one was injected, else time.Now().
// Tests pin time with WithTime; production code never needs to.
func Now(ctx context.Context) time.Time {
	if v, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return v
	}
	return time.Now()
}

// WithTime pins the request time in the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Operator retrieves the bearer token of the calling operator, or "".
// The secure computation gateway checks it for the decrypt capability.
func Operator(ctx context.Context) string {
	if v, ok := ctx.Value(operatorKey{}).(string); ok {
		return v
	}
	return ""
}

// WithOperator injects the operator bearer token into the context.
func WithOperator(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, operatorKey{}, token)
}
