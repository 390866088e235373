package auth

import (
	"context"
)

type contextKey string

const CallerKey contextKey = "caller"

// Caller identifies who made an API request.
type Caller struct {
	Name string
}

// APITokenCaller is the caller of every request authenticated by the shared token.
var APITokenCaller = &Caller{Name: "api-token"}

func WithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

func GetCallerFromContext(ctx context.Context) (*Caller, bool) {
	caller, ok := ctx.Value(CallerKey).(*Caller)
	return caller, ok
}
