// Package auth carries the signed-in identity explicitly to the collaborators
// that need an owner.
package auth

import (
	"context"
	"errors"
	"strings"
)

// ErrSignedOut is returned when an operation needs an owner and none is signed in.
var ErrSignedOut = errors.New("auth: sign in required")

// Session is the identity of the user driving the current editing session.
type Session struct {
	UserID string
}

// SignedIn reports whether the session carries a user id.
func (s Session) SignedIn() bool {
	return strings.TrimSpace(s.UserID) != ""
}

// Require returns ErrSignedOut for an anonymous session.
func (s Session) Require() error {
	if !s.SignedIn() {
		return ErrSignedOut
	}
	return nil
}

type sessionKey struct{}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session attached to ctx, or an anonymous one.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey{}).(Session)
	return s
}
