package session

import "context"

type ctxKey string

const stateKey ctxKey = "session_state"

// ContextWithState stores the session state in the context.
func ContextWithState(ctx context.Context, s State) context.Context {
	return context.WithValue(ctx, stateKey, s)
}

// FromContext extracts the session state from the context.
func FromContext(ctx context.Context) (State, bool) {
	s, ok := ctx.Value(stateKey).(State)
	return s, ok
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	s, ok := FromContext(ctx)
	if !ok || s.Identity.UserID == "" {
		return "", false
	}
	return s.Identity.UserID, true
}
