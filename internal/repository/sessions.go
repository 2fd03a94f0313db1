package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SetAdminSession records that a user passed the shared-secret check.
// The upsert keeps the invariant of at most one session row per user.
func (r *Repository) SetAdminSession(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO admin_sessions (user_id, authenticated) VALUES ($1, TRUE)
		 ON CONFLICT (user_id) DO UPDATE SET authenticated = TRUE`, id); err != nil {
		return fmt.Errorf("set admin session %d: %w", id, err)
	}
	return nil
}

// IsAdminAuthenticated reports whether a user holds an operator session.
func (r *Repository) IsAdminAuthenticated(ctx context.Context, id int64) (bool, error) {
	var authenticated bool
	err := r.db.GetContext(ctx, &authenticated,
		`SELECT authenticated FROM admin_sessions WHERE user_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is admin authenticated %d: %w", id, err)
	}
	return authenticated, nil
}

// ClearAdminSession logs a single operator out.
func (r *Repository) ClearAdminSession(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM admin_sessions WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("clear admin session %d: %w", id, err)
	}
	return nil
}

// ClearAllAdminSessions logs every operator out at once.
func (r *Repository) ClearAllAdminSessions(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM admin_sessions`); err != nil {
		return fmt.Errorf("clear all admin sessions: %w", err)
	}
	return nil
}
