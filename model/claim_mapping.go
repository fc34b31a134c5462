package model

import "database/sql"

// ClaimMapping grants or denies one claim to a role or a specific user
// within a guild. Mappings are never physically deleted; removal sets
// revoked_at. The database table is 'claim_mappings'.
type ClaimMapping struct {
	MappingID   int64         `db:"mapping_id"` // Primary Key, Auto-increment
	GuildID     string        `db:"guild_id"`
	SubjectKind SubjectKind   `db:"subject_kind"` // role or user
	SubjectID   string        `db:"subject_id"`
	Claim       Claim         `db:"claim"`
	Effect      Effect        `db:"effect"`
	CreatedBy   string        `db:"created_by"`
	CreatedAt   int64         `db:"created_at"`
	RevokedAt   sql.NullInt64 `db:"revoked_at"`
}

// Revoked reports whether the mapping has been revoked.
func (m *ClaimMapping) Revoked() bool {
	return m.RevokedAt.Valid
}
