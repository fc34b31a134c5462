package model

// Audit actor values for mutations not initiated by a guild member.
const (
	ActorSystem         = "system"
	ActorExternalPrefix = "external:"
)

// Audit target kinds.
const (
	TargetClaimMapping = "claim_mapping"
	TargetDesignation  = "designation"
	TargetInfraction   = "infraction"
)

// AuditEvent is an append-only record of one state mutation. Every mutation
// of a mapping, designation or infraction writes exactly one event in the
// same transaction. The database table is 'audit_events'.
type AuditEvent struct {
	EventID    int64  `db:"event_id"` // Primary Key, Auto-increment
	GuildID    string `db:"guild_id"`
	Actor      string `db:"actor"` // user ID, "system", or "external:<id>"
	Action     string `db:"action"`
	TargetKind string `db:"target_kind"`
	TargetID   int64  `db:"target_id"`
	Detail     string `db:"detail"`
	CreatedAt  int64  `db:"created_at"`
}
