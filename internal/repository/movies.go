package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/m3rciful/kinobot/internal/domain"
)

// AddMovie inserts a catalog entry. It returns false without error when the
// code is already taken, leaving the existing record unchanged.
func (r *Repository) AddMovie(ctx context.Context, code, title, fileID string) (bool, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO movies (code, title, file_id, added_at) VALUES ($1, $2, $3, NOW())`,
		code, title, fileID)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("add movie %q: %w", code, err)
	}
	return true, nil
}

// GetMovie returns the movie for a code, or nil when absent.
func (r *Repository) GetMovie(ctx context.Context, code string) (*domain.Movie, error) {
	var m domain.Movie
	err := r.db.GetContext(ctx, &m,
		`SELECT code, title, file_id, added_at FROM movies WHERE code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get movie %q: %w", code, err)
	}
	return &m, nil
}

// MovieExists reports whether a code is taken.
func (r *Repository) MovieExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM movies WHERE code = $1)`, code)
	if err != nil {
		return false, fmt.Errorf("movie exists %q: %w", code, err)
	}
	return exists, nil
}

// DeleteMovie removes a catalog entry; deleting an absent code is a no-op.
func (r *Repository) DeleteMovie(ctx context.Context, code string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM movies WHERE code = $1`, code); err != nil {
		return fmt.Errorf("delete movie %q: %w", code, err)
	}
	return nil
}

// ListMovies returns the catalog ordered newest first.
func (r *Repository) ListMovies(ctx context.Context) ([]domain.Movie, error) {
	var movies []domain.Movie
	err := r.db.SelectContext(ctx, &movies,
		`SELECT code, title, file_id, added_at FROM movies ORDER BY added_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return movies, nil
}

// CountMovies returns the catalog size.
func (r *Repository) CountMovies(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM movies`)
}
