package model

import "database/sql"

// DesignationType tags a role or channel with a special purpose.
type DesignationType string

const (
	DesignationRank        DesignationType = "rank"
	DesignationMuteRole    DesignationType = "mute_role"
	DesignationUnmoderated DesignationType = "unmoderated"
)

// Designation marks a role or channel for a purpose within a guild. Rank
// designations carry the platform-native position of the role at assignment
// time; hierarchy comparisons use that stored position, not a live lookup.
// The database table is 'designations'.
type Designation struct {
	DesignationID int64           `db:"designation_id"` // Primary Key, Auto-increment
	GuildID       string          `db:"guild_id"`
	SubjectKind   SubjectKind     `db:"subject_kind"` // role or channel
	SubjectID     string          `db:"subject_id"`
	Type          DesignationType `db:"type"`
	Position      sql.NullInt64   `db:"position"` // set for rank designations
	CreatedAt     int64           `db:"created_at"`
	RevokedAt     sql.NullInt64   `db:"revoked_at"`
}
