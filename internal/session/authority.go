// Package session manages operator authentication: a shared password
// unlocks the admin panel, and the resulting session is persisted so it
// survives process restarts.
package session

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"sync/atomic"
)

// Store persists operator sessions.
type Store interface {
	SetAdminSession(ctx context.Context, id int64) error
	IsAdminAuthenticated(ctx context.Context, id int64) (bool, error)
	ClearAdminSession(ctx context.Context, id int64) error
	ClearAllAdminSessions(ctx context.Context) error
}

// Authority validates the operator password and tracks who is logged in.
type Authority struct {
	store    Store
	password []byte
	log      *slog.Logger

	failedAttempts atomic.Int64
}

// New builds an authority checking against the given password.
func New(store Store, password string, log *slog.Logger) *Authority {
	if log == nil {
		log = slog.Default()
	}
	return &Authority{store: store, password: []byte(password), log: log}
}

// Authenticate compares the submitted password in constant time and, on
// success, persists the session. A mismatch only bumps the failure
// counter; there is no lockout.
func (a *Authority) Authenticate(ctx context.Context, userID int64, password string) (bool, error) {
	if subtle.ConstantTimeCompare([]byte(password), a.password) != 1 {
		n := a.failedAttempts.Add(1)
		a.log.Warn("operator auth failed", "target_id", userID, "failed_attempts", n)
		return false, nil
	}
	if err := a.store.SetAdminSession(ctx, userID); err != nil {
		return false, err
	}
	a.log.Info("operator authenticated", "target_id", userID)
	return true, nil
}

// IsAuthenticated reports whether the user holds an active operator
// session. A store failure reads as not authenticated.
func (a *Authority) IsAuthenticated(ctx context.Context, userID int64) bool {
	ok, err := a.store.IsAdminAuthenticated(ctx, userID)
	if err != nil {
		a.log.Error("session lookup failed", "target_id", userID, "error", err)
		return false
	}
	return ok
}

// Logout drops the user's operator session.
func (a *Authority) Logout(ctx context.Context, userID int64) error {
	if err := a.store.ClearAdminSession(ctx, userID); err != nil {
		return err
	}
	a.log.Info("operator logged out", "target_id", userID)
	return nil
}

// LogoutAll drops every operator session at once.
func (a *Authority) LogoutAll(ctx context.Context) error {
	if err := a.store.ClearAllAdminSessions(ctx); err != nil {
		return err
	}
	a.log.Info("all operator sessions cleared")
	return nil
}

// FailedAttempts returns the number of wrong passwords seen since start.
func (a *Authority) FailedAttempts() int64 {
	return a.failedAttempts.Load()
}
