package moderation

import (
	"errors"
	"fmt"
	"log"

	"modguard/model"
	"modguard/utils"
	"modguard/utils/database"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Reconciler ingests moderation actions the platform allowed to happen
// outside the bot: manual bans and role loss on leave/rejoin. It records
// what already happened rather than acting, so claim and rank checks are
// bypassed, and replays of the same event are no-ops.
type Reconciler struct {
	db        *sqlx.DB
	lifecycle *Lifecycle
	platform  Platform
	lookback  int
	webhook   string
}

// NewReconciler creates a reconciler searching at most lookback audit-trail
// entries for attribution.
func NewReconciler(db *sqlx.DB, lifecycle *Lifecycle, platform Platform, lookback int, webhookURL string) *Reconciler {
	if lookback <= 0 {
		lookback = 25
	}
	return &Reconciler{
		db:        db,
		lifecycle: lifecycle,
		platform:  platform,
		lookback:  lookback,
		webhook:   webhookURL,
	}
}

// OnBan handles an externally observed ban. An already-tracked active ban
// means the event is a replay or the bot's own action; otherwise the ban is
// attributed from the platform audit trail and recorded. An entry the audit
// trail no longer holds is logged as unreconciled and skipped, never fatal.
func (r *Reconciler) OnBan(guildID, userID string) error {
	_, err := database.GetActiveInfraction(r.db, guildID, userID, model.InfractionBan)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return err
	}

	entry, err := r.platform.FindBanEntry(guildID, userID, r.lookback)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			log.Printf("Unreconciled ban of %s in guild %s: no audit entry found", userID, guildID)
			utils.LogWarn(r.webhook, "Reconciler", "Unreconciled",
				fmt.Sprintf("ban of %s in guild %s: %v", userID, guildID, model.ErrUnreconciled))
			return nil
		}
		return err
	}

	reason := entry.Reason
	if reason == "" {
		reason = "banned outside the bot"
	}
	correlation := uuid.NewString()
	_, err = r.lifecycle.RecordExternal(guildID, model.InfractionBan, userID, reason, entry.ActorID,
		fmt.Sprintf("reconciled external ban, correlation %s", correlation))
	if errors.Is(err, model.ErrConflict) {
		// A concurrent replay of the same event recorded it first.
		return nil
	}
	if err != nil {
		return err
	}

	log.Printf("Reconciled external ban of %s in guild %s by %s (correlation %s)", userID, guildID, entry.ActorID, correlation)
	return nil
}

// OnMemberJoin reapplies the mute role to a rejoining member with an active
// mute, before any other per-user processing. The platform forgets role
// assignments on leave; the infraction record does not.
func (r *Reconciler) OnMemberJoin(guildID, userID string) error {
	_, err := database.GetActiveInfraction(r.db, guildID, userID, model.InfractionMute)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.lifecycle.ReapplyMute(guildID, userID); err != nil {
		log.Printf("Failed to reapply mute to %s in guild %s: %v", userID, guildID, err)
		utils.LogError(r.webhook, "Reconciler", "ReapplyMute",
			fmt.Sprintf("user %s in guild %s: %v", userID, guildID, err))
		return err
	}

	log.Printf("Reapplied mute role to rejoining user %s in guild %s", userID, guildID)
	return nil
}
