package database

import (
	"fmt"

	"modguard/model"

	"github.com/jmoiron/sqlx"
)

// AddAuditEvent appends one audit event and returns its ID. Events are
// append-only; there is no update or delete path.
func AddAuditEvent(db sqlx.Ext, ev model.AuditEvent) (int64, error) {
	query := `INSERT INTO audit_events (guild_id, actor, action, target_kind, target_id, detail, created_at)
			  VALUES (:guild_id, :actor, :action, :target_kind, :target_id, :detail, :created_at)`

	result, err := sqlx.NamedExec(db, query, ev)
	if err != nil {
		return 0, fmt.Errorf("failed to insert audit event: %w", err)
	}
	return result.LastInsertId()
}

// ListAuditEventsByTarget retrieves the audit trail for one record, oldest
// first.
func ListAuditEventsByTarget(db sqlx.Queryer, targetKind string, targetID int64) ([]model.AuditEvent, error) {
	var events []model.AuditEvent
	query := `SELECT * FROM audit_events WHERE target_kind = ? AND target_id = ? ORDER BY event_id ASC`
	if err := sqlx.Select(db, &events, query, targetKind, targetID); err != nil {
		return nil, fmt.Errorf("failed to list audit events for %s %d: %w", targetKind, targetID, err)
	}
	return events, nil
}
