// Package access implements the admission pipeline every inbound user
// passes through before reaching content: block list, registration,
// phone capture and mandatory channel membership, checked in that order.
package access

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/kinobot/internal/domain"
)

// Decision is the single admission verdict for a user.
type Decision int

const (
	// Proceed admits the user to content delivery.
	Proceed Decision = iota
	// Blocked denies service entirely.
	Blocked
	// NeedsRegistration means the user was just registered and must now
	// share a phone number.
	NeedsRegistration
	// NeedsPhone means the user is registered but has no phone on file.
	NeedsPhone
	// NeedsSubscription means one or more gate channels are not joined.
	NeedsSubscription
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case Blocked:
		return "blocked"
	case NeedsRegistration:
		return "needs_registration"
	case NeedsPhone:
		return "needs_phone"
	case NeedsSubscription:
		return "needs_subscription"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Outcome carries the verdict plus, for NeedsSubscription, the channels
// the user still has to join.
type Outcome struct {
	Decision Decision
	Missing  []domain.Channel
}

// Profile is the identity snapshot taken from the inbound update, used
// to register a first-time user.
type Profile struct {
	FullName string
	Username string
}

// Store is the persistence surface the gate reads and writes.
type Store interface {
	IsBlocked(ctx context.Context, id int64) (bool, error)
	UserExists(ctx context.Context, id int64) (bool, error)
	CreateUser(ctx context.Context, id int64, fullName, username *string) (bool, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	ListChannels(ctx context.Context) ([]domain.Channel, error)
}

// Membership resolves the user's standing in a gate channel.
type Membership interface {
	MemberStatus(ctx context.Context, channelID string, userID int64) (string, error)
}

// Gate runs the admission pipeline.
type Gate struct {
	store      Store
	membership Membership
	log        *slog.Logger
}

// New builds a gate over the given store and membership source.
func New(store Store, membership Membership, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{store: store, membership: membership, log: log}
}

// Admit runs the full pipeline for one user. The checks are ordered:
// block status first, then registration (registering the user as a side
// effect), then phone, then channel membership. The first failing stage
// decides the outcome; later stages are not evaluated.
func (g *Gate) Admit(ctx context.Context, userID int64, profile Profile) (Outcome, error) {
	return g.run(ctx, userID, &profile)
}

// Review runs the same pipeline read-only: an unknown user yields
// NeedsRegistration without being registered. Used on content requests,
// where registration belongs to /start alone.
func (g *Gate) Review(ctx context.Context, userID int64) (Outcome, error) {
	return g.run(ctx, userID, nil)
}

func (g *Gate) run(ctx context.Context, userID int64, register *Profile) (Outcome, error) {
	blocked, err := g.store.IsBlocked(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("access: block check: %w", err)
	}
	if blocked {
		g.log.Info("admission denied", "target_id", userID, "decision", Blocked.String())
		return Outcome{Decision: Blocked}, nil
	}

	exists, err := g.store.UserExists(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("access: existence check: %w", err)
	}
	if !exists {
		if register != nil {
			created, err := g.store.CreateUser(ctx, userID, optional(register.FullName), optional(register.Username))
			if err != nil {
				return Outcome{}, fmt.Errorf("access: register user: %w", err)
			}
			if created {
				g.log.Info("user registered", "target_id", userID)
			}
		}
		return Outcome{Decision: NeedsRegistration}, nil
	}

	user, err := g.store.GetUser(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("access: load user: %w", err)
	}
	if user == nil || user.Phone == nil || *user.Phone == "" {
		return Outcome{Decision: NeedsPhone}, nil
	}

	missing, err := g.MissingChannels(ctx, userID)
	if err != nil {
		return Outcome{}, err
	}
	if len(missing) > 0 {
		return Outcome{Decision: NeedsSubscription, Missing: missing}, nil
	}
	return Outcome{Decision: Proceed}, nil
}

// MissingChannels returns the gate channels the user has not joined.
// A membership lookup failure on one channel never blocks the user:
// the channel is treated as joined and the error is logged.
func (g *Gate) MissingChannels(ctx context.Context, userID int64) ([]domain.Channel, error) {
	channels, err := g.store.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("access: list channels: %w", err)
	}

	var missing []domain.Channel
	for _, ch := range channels {
		status, err := g.membership.MemberStatus(ctx, ch.ID, userID)
		if err != nil {
			g.log.Error("membership lookup failed",
				"channel_id", ch.ID,
				"target_id", userID,
				"error", err)
			continue
		}
		if status == "left" || status == "kicked" {
			missing = append(missing, ch)
		}
	}
	return missing, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
