package voice

import (
	"context"
	"errors"
)

// ErrPermissionDenied is returned by Toggle when microphone access is refused.
var ErrPermissionDenied = errors.New("microphone permission denied")

// Gate decides whether a recognition pass may start.
type Gate interface {
	Authorized(ctx context.Context) bool
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(ctx context.Context) bool

func (f GateFunc) Authorized(ctx context.Context) bool { return f(ctx) }

// AlwaysGranted is a Gate for environments without a permission flow.
var AlwaysGranted Gate = GateFunc(func(context.Context) bool { return true })

type authKey struct{}

// WithAuthorization records the caller's permission decision in ctx.
func WithAuthorization(ctx context.Context, granted bool) context.Context {
	return context.WithValue(ctx, authKey{}, granted)
}

// ContextGate grants access only when the context carries an explicit grant
// set by WithAuthorization.
var ContextGate Gate = GateFunc(func(ctx context.Context) bool {
	granted, _ := ctx.Value(authKey{}).(bool)
	return granted
})
