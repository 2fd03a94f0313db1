// Package repository implements the durable store contract over Postgres.
// Each operation is individually atomic; multi-step dialog writes are
// deliberately not wrapped in one transaction (partial completion on crash
// mid-dialog is acceptable, matching the volatile dialog state).
package repository

import (
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository provides CRUD access to users, movies, channels and operator
// sessions. Insert is the only operation with a uniqueness failure mode;
// keyed lookups and deletes are idempotent.
type Repository struct {
	db *sqlx.DB
}

// New wraps an open database handle.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
