package model

import "database/sql"

// InfractionType is the kind of disciplinary action recorded.
type InfractionType string

const (
	InfractionNotice  InfractionType = "notice"
	InfractionWarning InfractionType = "warning"
	InfractionMute    InfractionType = "mute"
	InfractionBan     InfractionType = "ban"
)

// ClaimFor returns the claim a moderator needs to create an infraction of
// the given type.
func ClaimFor(t InfractionType) Claim {
	switch t {
	case InfractionNotice:
		return ClaimModerationNotice
	case InfractionWarning:
		return ClaimModerationWarn
	case InfractionMute:
		return ClaimModerationMute
	case InfractionBan:
		return ClaimModerationBan
	}
	return ""
}

// InfractionState is the lifecycle state of an infraction. Active is the
// only initial state; rescinded and deleted are terminal and an infraction
// transitions at most once.
type InfractionState string

const (
	StateActive    InfractionState = "active"
	StateRescinded InfractionState = "rescinded"
	StateDeleted   InfractionState = "deleted"
)

// Infraction is a recorded disciplinary action. At most one active
// infraction exists per (guild_id, user_id, type); the store enforces this
// with a partial unique index. The database table is 'infractions'.
type Infraction struct {
	InfractionID       int64           `db:"infraction_id"` // Primary Key, Auto-increment
	GuildID            string          `db:"guild_id"`
	UserID             string          `db:"user_id"`
	Type               InfractionType  `db:"type"`
	Reason             string          `db:"reason"`
	DurationSec        sql.NullInt64   `db:"duration_sec"`
	ExpiresAt          sql.NullInt64   `db:"expires_at"` // created_at + duration_sec
	CreatedBy          string          `db:"created_by"`
	CreatedAt          int64           `db:"created_at"`
	State              InfractionState `db:"state"`
	TerminatingEventID sql.NullInt64   `db:"terminating_event_id"` // audit event that ended Active
}

// Temporary reports whether the infraction auto-expires.
func (i *Infraction) Temporary() bool {
	return i.ExpiresAt.Valid
}
