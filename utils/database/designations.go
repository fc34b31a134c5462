package database

import (
	"database/sql"
	"errors"
	"fmt"

	"modguard/model"

	"github.com/jmoiron/sqlx"
)

// AddDesignation inserts a new designation and returns its ID. A live
// duplicate yields model.ErrConflict.
func AddDesignation(db sqlx.Ext, d model.Designation) (int64, error) {
	query := `INSERT INTO designations (guild_id, subject_kind, subject_id, type, position, created_at, revoked_at)
			  VALUES (:guild_id, :subject_kind, :subject_id, :type, :position, :created_at, :revoked_at)`

	result, err := sqlx.NamedExec(db, query, d)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("designation %s already set on %s %s: %w", d.Type, d.SubjectKind, d.SubjectID, model.ErrConflict)
		}
		return 0, fmt.Errorf("failed to insert designation: %w", err)
	}
	return result.LastInsertId()
}

// RevokeDesignation marks the live designation of the given type on a
// subject as revoked and returns its ID.
func RevokeDesignation(db sqlx.Ext, guildID string, kind model.SubjectKind, subjectID string, t model.DesignationType, revokedAt int64) (int64, error) {
	var d model.Designation
	query := `SELECT * FROM designations WHERE guild_id = ? AND subject_kind = ? AND subject_id = ? AND type = ? AND revoked_at IS NULL`
	err := sqlx.Get(db, &d, query, guildID, kind, subjectID, t)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("no live %s designation on %s %s: %w", t, kind, subjectID, model.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find designation: %w", err)
	}

	if _, err := db.Exec(`UPDATE designations SET revoked_at = ? WHERE designation_id = ? AND revoked_at IS NULL`, revokedAt, d.DesignationID); err != nil {
		return 0, fmt.Errorf("failed to revoke designation %d: %w", d.DesignationID, err)
	}
	return d.DesignationID, nil
}

// HasDesignation reports whether a subject carries a live designation of the
// given type.
func HasDesignation(db sqlx.Queryer, guildID, subjectID string, t model.DesignationType) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM designations WHERE guild_id = ? AND subject_id = ? AND type = ? AND revoked_at IS NULL`
	if err := sqlx.Get(db, &count, query, guildID, subjectID, t); err != nil {
		return false, fmt.Errorf("failed to check designation %s on %s: %w", t, subjectID, err)
	}
	return count > 0, nil
}

// ListDesignations retrieves all live designations of a type in a guild,
// highest stored position first. For rank designations this is moderation
// seniority order.
func ListDesignations(db sqlx.Queryer, guildID string, t model.DesignationType) ([]model.Designation, error) {
	var designations []model.Designation
	query := `SELECT * FROM designations WHERE guild_id = ? AND type = ? AND revoked_at IS NULL ORDER BY position DESC, created_at ASC`
	if err := sqlx.Select(db, &designations, query, guildID, t); err != nil {
		return nil, fmt.Errorf("failed to list %s designations for guild %s: %w", t, guildID, err)
	}
	return designations, nil
}

// MuteRoleID returns the role carrying the guild's live mute_role
// designation, or model.ErrNotFound if the guild has none.
func MuteRoleID(db sqlx.Queryer, guildID string) (string, error) {
	var roleID string
	query := `SELECT subject_id FROM designations WHERE guild_id = ? AND subject_kind = 'role' AND type = ? AND revoked_at IS NULL LIMIT 1`
	err := sqlx.Get(db, &roleID, query, guildID, model.DesignationMuteRole)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("guild %s has no mute role designation: %w", guildID, model.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get mute role for guild %s: %w", guildID, err)
	}
	return roleID, nil
}
