package middleware

import (
	"context"

	tele "gopkg.in/telebot.v4"
)

// Authorizer reports whether a user currently holds an operator session.
type Authorizer interface {
	IsAuthenticated(ctx context.Context, userID int64) bool
}

// OperatorOptions defines how operator-only checks should behave.
type OperatorOptions struct {
	Auth     Authorizer
	OnReject tele.HandlerFunc
}

// OperatorOnlyMiddleware ensures that only an authenticated operator can
// invoke downstream handlers. Unauthenticated callers receive the corrective
// reject handler instead of being silently dropped.
func OperatorOnlyMiddleware(opts OperatorOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.Auth != nil && !opts.Auth.IsAuthenticated(context.Background(), c.Sender().ID) {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}

// WithOperatorCheck wraps a single handler enforcing operator-only execution when required.
func WithOperatorCheck(opts OperatorOptions, operatorOnly bool, h tele.HandlerFunc) tele.HandlerFunc {
	if !operatorOnly || opts.Auth == nil {
		return h
	}
	return OperatorOnlyMiddleware(opts)(h)
}
