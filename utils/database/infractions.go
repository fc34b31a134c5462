package database

import (
	"database/sql"
	"errors"
	"fmt"

	"modguard/model"

	"github.com/jmoiron/sqlx"
)

// AddInfraction inserts a new infraction and returns its ID. A second active
// infraction of the same type for the same user yields model.ErrConflict.
func AddInfraction(db sqlx.Ext, inf model.Infraction) (int64, error) {
	query := `INSERT INTO infractions (guild_id, user_id, type, reason, duration_sec, expires_at, created_by, created_at, state, terminating_event_id)
			  VALUES (:guild_id, :user_id, :type, :reason, :duration_sec, :expires_at, :created_by, :created_at, :state, :terminating_event_id)`

	result, err := sqlx.NamedExec(db, query, inf)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("user %s already has an active %s in guild %s: %w", inf.UserID, inf.Type, inf.GuildID, model.ErrConflict)
		}
		return 0, fmt.Errorf("failed to insert infraction: %w", err)
	}
	return result.LastInsertId()
}

// GetInfractionByID retrieves a single infraction by its primary key.
func GetInfractionByID(db sqlx.Queryer, id int64) (*model.Infraction, error) {
	var inf model.Infraction
	err := sqlx.Get(db, &inf, `SELECT * FROM infractions WHERE infraction_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no infraction with id %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get infraction by id %d: %w", id, err)
	}
	return &inf, nil
}

// GetActiveInfraction retrieves the unique active infraction of a type for a
// user, or model.ErrNotFound.
func GetActiveInfraction(db sqlx.Queryer, guildID, userID string, t model.InfractionType) (*model.Infraction, error) {
	var inf model.Infraction
	query := `SELECT * FROM infractions WHERE guild_id = ? AND user_id = ? AND type = ? AND state = 'active'`
	err := sqlx.Get(db, &inf, query, guildID, userID, t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no active %s for user %s in guild %s: %w", t, userID, guildID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active %s for user %s: %w", t, userID, err)
	}
	return &inf, nil
}

// TransitionFromActive moves an infraction out of the active state, recording
// the terminating audit event. It reports whether this call won the
// transition; a false result means the infraction was already terminal.
func TransitionFromActive(db sqlx.Ext, id int64, to model.InfractionState, eventID int64) (bool, error) {
	result, err := db.Exec(`UPDATE infractions SET state = ?, terminating_event_id = ? WHERE infraction_id = ? AND state = 'active'`, to, eventID, id)
	if err != nil {
		return false, fmt.Errorf("failed to transition infraction %d to %s: %w", id, to, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for infraction %d: %w", id, err)
	}
	return rows > 0, nil
}

// MarkDeleted hides an infraction. Permitted from active or rescinded; an
// already-deleted infraction reports false.
func MarkDeleted(db sqlx.Ext, id int64, eventID int64) (bool, error) {
	result, err := db.Exec(`UPDATE infractions SET state = 'deleted', terminating_event_id = ? WHERE infraction_id = ? AND state != 'deleted'`, eventID, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark infraction %d deleted: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for infraction %d: %w", id, err)
	}
	return rows > 0, nil
}

// NextDueInfraction returns the active duration-bearing infraction with the
// earliest expiry, or model.ErrNotFound when nothing is pending. The
// infractions table is the durable expiry queue; in-memory timers are only a
// cache over this query.
func NextDueInfraction(db sqlx.Queryer) (*model.Infraction, error) {
	var inf model.Infraction
	query := `SELECT * FROM infractions WHERE state = 'active' AND expires_at IS NOT NULL ORDER BY expires_at ASC LIMIT 1`
	err := sqlx.Get(db, &inf, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no pending expiries: %w", model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next due infraction: %w", err)
	}
	return &inf, nil
}

// ListInfractionsByUser retrieves a user's undeleted infractions in a guild,
// newest first.
func ListInfractionsByUser(db sqlx.Queryer, guildID, userID string) ([]model.Infraction, error) {
	var infractions []model.Infraction
	query := `SELECT * FROM infractions WHERE guild_id = ? AND user_id = ? AND state != 'deleted' ORDER BY created_at DESC`
	if err := sqlx.Select(db, &infractions, query, guildID, userID); err != nil {
		return nil, fmt.Errorf("failed to list infractions for user %s in guild %s: %w", userID, guildID, err)
	}
	return infractions, nil
}
