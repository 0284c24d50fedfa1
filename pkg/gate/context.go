package gate

import "context"

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "gate context value " + k.name
}

var (
	SessionKey = &contextKey{"Session"}
	UserKey    = &contextKey{"User"}
)

// WithSession attaches a session id to ctx. Session middleware should call
// it before the gate runs.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionKey, sessionID)
}

func SessionFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(SessionKey).(string)
	return id, ok
}

// WithUser attaches the authenticated user value to ctx.
func WithUser(ctx context.Context, user any) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

func UserFromContext(ctx context.Context) any {
	return ctx.Value(UserKey)
}
