package auth

import (
	"database/sql"
	"fmt"
	"time"

	"modguard/model"
	"modguard/utils/database"

	"github.com/jmoiron/sqlx"
)

// Registry looks up and manages role/channel designations for a guild.
type Registry struct {
	db *sqlx.DB
}

// NewRegistry creates a registry over the designation store.
func NewRegistry(db *sqlx.DB) *Registry {
	return &Registry{db: db}
}

// Has reports whether a subject carries a live designation of the given type.
func (r *Registry) Has(guildID, subjectID string, t model.DesignationType) (bool, error) {
	return database.HasDesignation(r.db, guildID, subjectID, t)
}

// List returns the live designations of a type, ordered by stored platform
// position descending. For rank this is seniority order.
func (r *Registry) List(guildID string, t model.DesignationType) ([]model.Designation, error) {
	return database.ListDesignations(r.db, guildID, t)
}

// MuteRole returns the guild's designated mute role ID.
func (r *Registry) MuteRole(guildID string) (string, error) {
	return database.MuteRoleID(r.db, guildID)
}

// MaxRank returns the highest rank-designation position among the given
// roles. ok is false when none of the roles carries a rank designation.
func (r *Registry) MaxRank(guildID string, roleIDs []string) (pos int64, ok bool, err error) {
	if len(roleIDs) == 0 {
		return 0, false, nil
	}
	ranks, err := r.List(guildID, model.DesignationRank)
	if err != nil {
		return 0, false, err
	}
	held := make(map[string]bool, len(roleIDs))
	for _, id := range roleIDs {
		held[id] = true
	}
	// Ranks come back position-descending, so the first held role wins.
	for _, d := range ranks {
		if held[d.SubjectID] && d.Position.Valid {
			return d.Position.Int64, true, nil
		}
	}
	return 0, false, nil
}

// Designate tags a subject with a designation type and writes the audit
// event in the same transaction. Position is stored for rank designations.
func (r *Registry) Designate(guildID string, kind model.SubjectKind, subjectID string, t model.DesignationType, position sql.NullInt64, actor string) (int64, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin designate tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	id, err := database.AddDesignation(tx, model.Designation{
		GuildID:     guildID,
		SubjectKind: kind,
		SubjectID:   subjectID,
		Type:        t,
		Position:    position,
		CreatedAt:   now,
	})
	if err != nil {
		return 0, err
	}

	if _, err := database.AddAuditEvent(tx, model.AuditEvent{
		GuildID:    guildID,
		Actor:      actor,
		Action:     "designation.create",
		TargetKind: model.TargetDesignation,
		TargetID:   id,
		Detail:     fmt.Sprintf("%s %s designated %s", kind, subjectID, t),
		CreatedAt:  now,
	}); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit designate tx: %w", err)
	}
	return id, nil
}

// Revoke removes a live designation, writing the audit event in the same
// transaction.
func (r *Registry) Revoke(guildID string, kind model.SubjectKind, subjectID string, t model.DesignationType, actor string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin revoke tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	id, err := database.RevokeDesignation(tx, guildID, kind, subjectID, t, now)
	if err != nil {
		return err
	}

	if _, err := database.AddAuditEvent(tx, model.AuditEvent{
		GuildID:    guildID,
		Actor:      actor,
		Action:     "designation.revoke",
		TargetKind: model.TargetDesignation,
		TargetID:   id,
		Detail:     fmt.Sprintf("%s %s no longer %s", kind, subjectID, t),
		CreatedAt:  now,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit revoke tx: %w", err)
	}
	return nil
}
