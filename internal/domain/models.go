// Package domain declares the durable entities the bot operates on.
package domain

import "time"

// User is an end user of the bot, keyed by the platform-assigned Telegram id.
// Phone and Username are optional: Phone is captured once via contact share
// during registration, Username may be absent on the platform side.
type User struct {
	ID       int64     `db:"user_id"`
	Phone    *string   `db:"phone"`
	FullName *string   `db:"full_name"`
	Username *string   `db:"username"`
	JoinedAt time.Time `db:"joined_at"`
	Blocked  bool      `db:"is_blocked"`
}

// Movie is a catalog entry exchanged for its human-chosen code.
// FileID is the opaque Telegram media reference of the uploaded video.
type Movie struct {
	Code    string    `db:"code"`
	Title   string    `db:"title"`
	FileID  string    `db:"file_id"`
	AddedAt time.Time `db:"added_at"`
}

// Channel is a gate-list entry: a channel every user must be a member of
// before content delivery.
type Channel struct {
	ID      string    `db:"channel_id"`
	Handle  string    `db:"handle"`
	AddedAt time.Time `db:"added_at"`
}

// ChannelStatus is a gate channel confirmed reachable during a refresh,
// enriched with its current title.
type ChannelStatus struct {
	Channel
	Title string
}

// Stats aggregates the counters shown on the operator panel.
type Stats struct {
	TotalUsers   int
	ActiveUsers  int
	BlockedUsers int
	TotalMovies  int
	GateChannels int
}
