package auth

import (
	"fmt"
	"time"

	"modguard/model"
	"modguard/utils/database"

	"github.com/jmoiron/sqlx"
)

// Mappings manages explicit claim grants and denials issued by moderators.
// Every write pairs the mapping change with its audit event in one
// transaction.
type Mappings struct {
	db *sqlx.DB
}

// NewMappings creates a mapping manager over the claim store.
func NewMappings(db *sqlx.DB) *Mappings {
	return &Mappings{db: db}
}

// Put records a grant or deny of one claim to a role or user. A live
// duplicate yields model.ErrConflict.
func (m *Mappings) Put(guildID string, kind model.SubjectKind, subjectID string, claim model.Claim, effect model.Effect, actor string) (int64, error) {
	if !model.ValidClaim(claim) {
		return 0, fmt.Errorf("unknown claim %q: %w", claim, model.ErrNotFound)
	}

	tx, err := m.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin mapping tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	id, err := database.AddClaimMapping(tx, model.ClaimMapping{
		GuildID:     guildID,
		SubjectKind: kind,
		SubjectID:   subjectID,
		Claim:       claim,
		Effect:      effect,
		CreatedBy:   actor,
		CreatedAt:   now,
	})
	if err != nil {
		return 0, err
	}

	if _, err := database.AddAuditEvent(tx, model.AuditEvent{
		GuildID:    guildID,
		Actor:      actor,
		Action:     "claim_mapping.create",
		TargetKind: model.TargetClaimMapping,
		TargetID:   id,
		Detail:     fmt.Sprintf("%s %s for %s %s", effect, claim, kind, subjectID),
		CreatedAt:  now,
	}); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit mapping tx: %w", err)
	}
	return id, nil
}

// Revoke marks the live mapping matching the key as revoked. Mappings are
// never physically deleted.
func (m *Mappings) Revoke(guildID string, kind model.SubjectKind, subjectID string, claim model.Claim, effect model.Effect, actor string) error {
	tx, err := m.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin revoke tx: %w", err)
	}
	defer tx.Rollback()

	mapping, err := database.FindLiveMapping(tx, guildID, kind, subjectID, claim, effect)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	if err := database.RevokeClaimMapping(tx, mapping.MappingID, now); err != nil {
		return err
	}

	if _, err := database.AddAuditEvent(tx, model.AuditEvent{
		GuildID:    guildID,
		Actor:      actor,
		Action:     "claim_mapping.revoke",
		TargetKind: model.TargetClaimMapping,
		TargetID:   mapping.MappingID,
		Detail:     fmt.Sprintf("revoked %s %s for %s %s", effect, claim, kind, subjectID),
		CreatedAt:  now,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit revoke tx: %w", err)
	}
	return nil
}

// List returns all live mappings for a guild.
func (m *Mappings) List(guildID string) ([]model.ClaimMapping, error) {
	return database.ListLiveMappings(m.db, guildID)
}
