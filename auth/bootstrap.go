package auth

import (
	"errors"
	"fmt"
	"log"
	"time"

	"modguard/model"
	"modguard/utils"
	"modguard/utils/database"

	"github.com/jmoiron/sqlx"
)

// RoleSnapshot is the bootstrapper's view of one platform role at the moment
// a guild becomes available.
type RoleSnapshot struct {
	ID            string
	Position      int64
	Administrator bool
}

// Bootstrapper seeds default claim mappings the first time a guild is
// observed: every administrator-capable role receives a grant of the full
// claim catalog, authored by the bot itself.
type Bootstrapper struct {
	db        *sqlx.DB
	locks     *utils.KeyMutex
	botUserID string
}

// NewBootstrapper creates a bootstrapper writing mappings as botUserID.
func NewBootstrapper(db *sqlx.DB, botUserID string) *Bootstrapper {
	return &Bootstrapper{
		db:        db,
		locks:     utils.NewKeyMutex(),
		botUserID: botUserID,
	}
}

// EnsureGuild seeds the guild if it has zero live claim mappings and reports
// whether this call did the seeding. Safe under concurrent triggers for the
// same guild: a per-guild lock plus a re-check inside it serializes local
// racers, and the store's unique index turns any remaining collision into a
// no-op instead of duplicate rows.
func (b *Bootstrapper) EnsureGuild(guildID string, roles []RoleSnapshot) (bool, error) {
	count, err := database.CountLiveMappings(b.db, guildID)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	unlock := b.locks.Lock(guildID)
	defer unlock()

	count, err = database.CountLiveMappings(b.db, guildID)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	var adminRoles []RoleSnapshot
	for _, role := range roles {
		if role.Administrator {
			adminRoles = append(adminRoles, role)
		}
	}
	if len(adminRoles) == 0 {
		log.Printf("Guild %s has no administrator roles, skipping bootstrap", guildID)
		return false, nil
	}

	if err := b.seed(guildID, adminRoles); err != nil {
		if errors.Is(err, model.ErrConflict) {
			// A concurrent bootstrap won the race.
			return false, nil
		}
		return false, err
	}

	log.Printf("Bootstrapped guild %s: %d admin roles x %d claims", guildID, len(adminRoles), len(model.ClaimCatalog))
	return true, nil
}

// seed inserts the grant matrix in one all-or-nothing transaction, one audit
// event per mapping.
func (b *Bootstrapper) seed(guildID string, adminRoles []RoleSnapshot) error {
	tx, err := b.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin bootstrap tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, role := range adminRoles {
		for _, claim := range model.ClaimCatalog {
			id, err := database.AddClaimMapping(tx, model.ClaimMapping{
				GuildID:     guildID,
				SubjectKind: model.SubjectRole,
				SubjectID:   role.ID,
				Claim:       claim,
				Effect:      model.EffectGrant,
				CreatedBy:   b.botUserID,
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}
			if _, err := database.AddAuditEvent(tx, model.AuditEvent{
				GuildID:    guildID,
				Actor:      b.botUserID,
				Action:     "claim_mapping.bootstrap",
				TargetKind: model.TargetClaimMapping,
				TargetID:   id,
				Detail:     fmt.Sprintf("grant %s to role %s", claim, role.ID),
				CreatedAt:  now,
			}); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bootstrap tx: %w", err)
	}
	return nil
}
