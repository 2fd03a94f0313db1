package repository

import (
	"context"
	"fmt"

	"github.com/m3rciful/kinobot/internal/domain"
)

// AddChannel inserts a gate-list entry. It returns false without error when
// the channel is already listed.
func (r *Repository) AddChannel(ctx context.Context, id, handle string) (bool, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO gate_channels (channel_id, handle, added_at) VALUES ($1, $2, NOW())`,
		id, handle)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("add channel %q: %w", id, err)
	}
	return true, nil
}

// ChannelExists reports whether a channel is on the gate list.
func (r *Repository) ChannelExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM gate_channels WHERE channel_id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("channel exists %q: %w", id, err)
	}
	return exists, nil
}

// DeleteChannel removes a gate-list entry. Deleting an unknown id is a
// no-op, not an error; the caller confirms regardless.
func (r *Repository) DeleteChannel(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM gate_channels WHERE channel_id = $1`, id); err != nil {
		return fmt.Errorf("delete channel %q: %w", id, err)
	}
	return nil
}

// ListChannels returns the full gate list. It is read on every gate
// evaluation, so the set stays small by design.
func (r *Repository) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	var channels []domain.Channel
	err := r.db.SelectContext(ctx, &channels,
		`SELECT channel_id, handle, added_at FROM gate_channels ORDER BY added_at`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return channels, nil
}

// CountChannels returns the gate list size.
func (r *Repository) CountChannels(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM gate_channels`)
}
