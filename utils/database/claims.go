package database

import (
	"database/sql"
	"errors"
	"fmt"

	"modguard/model"

	"github.com/jmoiron/sqlx"
)

// AddClaimMapping inserts a new claim mapping and returns its ID. A live
// duplicate of the same (guild, subject, claim, effect) yields model.ErrConflict.
func AddClaimMapping(db sqlx.Ext, m model.ClaimMapping) (int64, error) {
	query := `INSERT INTO claim_mappings (guild_id, subject_kind, subject_id, claim, effect, created_by, created_at, revoked_at)
			  VALUES (:guild_id, :subject_kind, :subject_id, :claim, :effect, :created_by, :created_at, :revoked_at)`

	result, err := sqlx.NamedExec(db, query, m)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("mapping already exists for %s %s on %s: %w", m.SubjectKind, m.SubjectID, m.Claim, model.ErrConflict)
		}
		return 0, fmt.Errorf("failed to insert claim mapping: %w", err)
	}
	return result.LastInsertId()
}

// FindLiveMapping returns the non-revoked mapping matching the key, or
// model.ErrNotFound.
func FindLiveMapping(db sqlx.Queryer, guildID string, kind model.SubjectKind, subjectID string, claim model.Claim, effect model.Effect) (*model.ClaimMapping, error) {
	var m model.ClaimMapping
	query := `SELECT * FROM claim_mappings
			  WHERE guild_id = ? AND subject_kind = ? AND subject_id = ? AND claim = ? AND effect = ? AND revoked_at IS NULL`
	err := sqlx.Get(db, &m, query, guildID, kind, subjectID, claim, effect)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find claim mapping: %w", err)
	}
	return &m, nil
}

// RevokeClaimMapping marks a mapping revoked. Already-revoked or missing
// mappings yield model.ErrNotFound.
func RevokeClaimMapping(db sqlx.Ext, mappingID, revokedAt int64) error {
	result, err := db.Exec(`UPDATE claim_mappings SET revoked_at = ? WHERE mapping_id = ? AND revoked_at IS NULL`, revokedAt, mappingID)
	if err != nil {
		return fmt.Errorf("failed to revoke claim mapping %d: %w", mappingID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for mapping %d: %w", mappingID, err)
	}
	if rows == 0 {
		return fmt.Errorf("no live mapping with id %d: %w", mappingID, model.ErrNotFound)
	}
	return nil
}

// GetLiveMappings retrieves the non-revoked mappings that apply to a user
// (directly or through any of their roles) for the given claims.
func GetLiveMappings(db sqlx.Queryer, guildID, userID string, roleIDs []string, claims []model.Claim) ([]model.ClaimMapping, error) {
	if len(claims) == 0 {
		return nil, nil
	}
	// Role IN () matches nothing but keeps the query shape stable.
	if len(roleIDs) == 0 {
		roleIDs = []string{""}
	}

	query := `SELECT * FROM claim_mappings
			  WHERE guild_id = ? AND revoked_at IS NULL AND claim IN (?)
			  AND ((subject_kind = 'user' AND subject_id = ?) OR (subject_kind = 'role' AND subject_id IN (?)))`
	query, args, err := sqlx.In(query, guildID, claims, userID, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build claim mapping query: %w", err)
	}

	// sqlite uses ? bindvars, which is what sqlx.In emits; no rebind needed.
	var mappings []model.ClaimMapping
	if err := sqlx.Select(db, &mappings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get claim mappings for user %s in guild %s: %w", userID, guildID, err)
	}
	return mappings, nil
}

// ListLiveMappings retrieves all non-revoked mappings for a guild.
func ListLiveMappings(db sqlx.Queryer, guildID string) ([]model.ClaimMapping, error) {
	var mappings []model.ClaimMapping
	query := `SELECT * FROM claim_mappings WHERE guild_id = ? AND revoked_at IS NULL ORDER BY claim, subject_kind, subject_id`
	if err := sqlx.Select(db, &mappings, query, guildID); err != nil {
		return nil, fmt.Errorf("failed to list claim mappings for guild %s: %w", guildID, err)
	}
	return mappings, nil
}

// CountLiveMappings returns the number of non-revoked mappings in a guild.
// The bootstrap guard: zero means the guild has never been seeded.
func CountLiveMappings(db sqlx.Queryer, guildID string) (int, error) {
	var count int
	err := sqlx.Get(db, &count, `SELECT COUNT(*) FROM claim_mappings WHERE guild_id = ? AND revoked_at IS NULL`, guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to count claim mappings for guild %s: %w", guildID, err)
	}
	return count, nil
}
