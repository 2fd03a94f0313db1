package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/m3rciful/kinobot/internal/domain"
)

// UserExists reports whether a user record is present.
func (r *Repository) UserExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE user_id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("user exists %d: %w", id, err)
	}
	return exists, nil
}

// CreateUser inserts a new user record. It returns false without error when
// the user is already registered.
func (r *Repository) CreateUser(ctx context.Context, id int64, fullName, username *string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_id, full_name, username, joined_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id) DO NOTHING`,
		id, fullName, username)
	if err != nil {
		return false, fmt.Errorf("create user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create user %d: %w", id, err)
	}
	return n > 0, nil
}

// SetPhone stores the phone captured from a contact share.
func (r *Repository) SetPhone(ctx context.Context, id int64, phone string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE users SET phone = $1 WHERE user_id = $2`, phone, id); err != nil {
		return fmt.Errorf("set phone %d: %w", id, err)
	}
	return nil
}

// IsBlocked reports the blocked flag; unknown users are not blocked.
func (r *Repository) IsBlocked(ctx context.Context, id int64) (bool, error) {
	var blocked bool
	err := r.db.GetContext(ctx, &blocked,
		`SELECT is_blocked FROM users WHERE user_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is blocked %d: %w", id, err)
	}
	return blocked, nil
}

// SetBlocked toggles the blocked flag.
func (r *Repository) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_blocked = $1 WHERE user_id = $2`, blocked, id); err != nil {
		return fmt.Errorf("set blocked %d: %w", id, err)
	}
	return nil
}

// GetUser returns the full user record, or nil when absent.
func (r *Repository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u,
		`SELECT user_id, phone, full_name, username, joined_at, is_blocked
		 FROM users WHERE user_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

// ActiveUserIDs returns the ids of all non-blocked users. The result is a
// snapshot: broadcast runs iterate it without re-evaluating membership.
func (r *Repository) ActiveUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM users WHERE is_blocked = FALSE ORDER BY joined_at`)
	if err != nil {
		return nil, fmt.Errorf("active user ids: %w", err)
	}
	return ids, nil
}

// RecentUsers returns the newest users first, capped at limit.
func (r *Repository) RecentUsers(ctx context.Context, limit int) ([]domain.User, error) {
	var users []domain.User
	err := r.db.SelectContext(ctx, &users,
		`SELECT user_id, phone, full_name, username, joined_at, is_blocked
		 FROM users ORDER BY joined_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent users: %w", err)
	}
	return users, nil
}

// CountUsers returns the total number of registered users.
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM users`)
}

// CountActive returns the number of non-blocked users.
func (r *Repository) CountActive(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM users WHERE is_blocked = FALSE`)
}

// CountBlocked returns the number of blocked users.
func (r *Repository) CountBlocked(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM users WHERE is_blocked = TRUE`)
}

func (r *Repository) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, query); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Stats collects all operator panel counters in one call.
func (r *Repository) Stats(ctx context.Context) (domain.Stats, error) {
	var s domain.Stats
	var err error
	if s.TotalUsers, err = r.CountUsers(ctx); err != nil {
		return s, err
	}
	if s.ActiveUsers, err = r.CountActive(ctx); err != nil {
		return s, err
	}
	if s.BlockedUsers, err = r.CountBlocked(ctx); err != nil {
		return s, err
	}
	if s.TotalMovies, err = r.CountMovies(ctx); err != nil {
		return s, err
	}
	if s.GateChannels, err = r.CountChannels(ctx); err != nil {
		return s, err
	}
	return s, nil
}
