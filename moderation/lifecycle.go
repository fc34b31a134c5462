package moderation

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"modguard/auth"
	"modguard/model"
	"modguard/utils"
	"modguard/utils/database"

	"github.com/jmoiron/sqlx"
)

// Waker is notified when a new expiry deadline is persisted so the scheduler
// can shorten its wait.
type Waker interface {
	Wake()
}

// Lifecycle owns every infraction state transition. Moderation commands, the
// expiry scheduler and the external-event reconciler all funnel through it,
// making it the serialization point for the at-most-one-active invariant.
//
// Transitions are guarded three ways: a per-(guild, user, type) mutex, the
// store's partial unique index on active rows, and conditional updates that
// only move rows out of the active state. Platform side effects run after
// the transaction commits; the persisted record is authoritative even when
// the platform call fails.
type Lifecycle struct {
	db       *sqlx.DB
	platform Platform
	resolver *auth.Resolver
	guard    *auth.Guard
	registry *auth.Registry
	locks    *utils.KeyMutex
	tuning   model.Tuning
	webhook  string
	waker    Waker
}

// NewLifecycle wires the lifecycle over its collaborators.
func NewLifecycle(db *sqlx.DB, platform Platform, resolver *auth.Resolver, guard *auth.Guard, registry *auth.Registry, tuning model.Tuning, webhookURL string) *Lifecycle {
	return &Lifecycle{
		db:       db,
		platform: platform,
		resolver: resolver,
		guard:    guard,
		registry: registry,
		locks:    utils.NewKeyMutex(),
		tuning:   tuning,
		webhook:  webhookURL,
	}
}

// SetWaker registers the expiry scheduler's wake hook.
func (l *Lifecycle) SetWaker(w Waker) {
	l.waker = w
}

func lockKey(guildID, userID string, t model.InfractionType) string {
	return guildID + "|" + userID + "|" + string(t)
}

// CreateParams describes a moderation command creating an infraction.
type CreateParams struct {
	GuildID   string
	Type      model.InfractionType
	Moderator auth.Member
	Subject   auth.Member
	Reason    string
	Duration  time.Duration // 0 means permanent
}

// Create records a new infraction after claim and rank checks, applies the
// platform side effect for mutes and bans, and registers temporary
// infractions for auto-expiry. A second active infraction of the same type
// yields model.ErrConflict.
func (l *Lifecycle) Create(p CreateParams) (*model.Infraction, error) {
	granted, err := l.resolver.Check(p.GuildID, p.Moderator.UserID, p.Moderator.RoleIDs, model.ClaimFor(p.Type))
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, fmt.Errorf("%s lacks the %s claim: %w", p.Moderator.UserID, model.ClaimFor(p.Type), model.ErrForbidden)
	}

	allowed, err := l.guard.Allow(p.GuildID, p.Moderator, p.Subject)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%s outranks or ties %s: %w", p.Subject.UserID, p.Moderator.UserID, model.ErrForbidden)
	}

	return l.create(p.GuildID, p.Type, p.Subject.UserID, p.Reason, p.Duration, p.Moderator.UserID, "", true)
}

// create persists the infraction and its audit event in one transaction,
// then runs side effects. actor is the audit actor; detail is extra audit
// context (reconciliation correlation); applyEffects is false when recording
// an action the platform already performed.
func (l *Lifecycle) create(guildID string, t model.InfractionType, userID, reason string, duration time.Duration, actor, detail string, applyEffects bool) (*model.Infraction, error) {
	unlock := l.locks.Lock(lockKey(guildID, userID, t))
	defer unlock()

	now := time.Now()
	inf := model.Infraction{
		GuildID:   guildID,
		UserID:    userID,
		Type:      t,
		Reason:    reason,
		CreatedBy: actor,
		CreatedAt: now.Unix(),
		State:     model.StateActive,
	}
	if duration > 0 {
		inf.DurationSec = sql.NullInt64{Int64: int64(duration.Seconds()), Valid: true}
		inf.ExpiresAt = sql.NullInt64{Int64: now.Add(duration).Unix(), Valid: true}
	}

	tx, err := l.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin create tx: %w", err)
	}
	defer tx.Rollback()

	id, err := database.AddInfraction(tx, inf)
	if err != nil {
		return nil, err
	}
	inf.InfractionID = id

	if _, err := database.AddAuditEvent(tx, model.AuditEvent{
		GuildID:    guildID,
		Actor:      actor,
		Action:     "infraction.create",
		TargetKind: model.TargetInfraction,
		TargetID:   id,
		Detail:     detail,
		CreatedAt:  now.Unix(),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit create tx: %w", err)
	}

	if applyEffects {
		l.applySideEffect(&inf)
	}
	if inf.Temporary() && l.waker != nil {
		l.waker.Wake()
	}
	return &inf, nil
}

// applySideEffect performs the platform action backing a new infraction.
// Failures are logged and retried within bounds, never rolled back into the
// record.
func (l *Lifecycle) applySideEffect(inf *model.Infraction) {
	var err error
	switch inf.Type {
	case model.InfractionMute:
		var roleID string
		roleID, err = l.ensureMuteRole(inf.GuildID)
		if err == nil {
			err = withRetry(l.tuning.PlatformRetryAttempts, l.tuning.PlatformRetryBackoff(), "add mute role",
				func() error { return l.platform.AddRole(inf.GuildID, inf.UserID, roleID) })
		}
	case model.InfractionBan:
		err = withRetry(l.tuning.PlatformRetryAttempts, l.tuning.PlatformRetryBackoff(), "ban",
			func() error { return l.platform.Ban(inf.GuildID, inf.UserID, inf.Reason) })
	default:
		return
	}
	if err != nil {
		log.Printf("Side effect for infraction %d failed: %v", inf.InfractionID, err)
		utils.LogError(l.webhook, "Lifecycle", "SideEffect",
			fmt.Sprintf("infraction %d (%s on %s): %v", inf.InfractionID, inf.Type, inf.UserID, err))
	}
}

// ensureMuteRole returns the guild's mute role, creating and designating one
// when the guild has none.
func (l *Lifecycle) ensureMuteRole(guildID string) (string, error) {
	roleID, err := l.registry.MuteRole(guildID)
	if err == nil {
		return roleID, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return "", err
	}

	name := l.tuning.MuteRoleName
	if name == "" {
		name = "Muted"
	}
	roleID, _, err = l.platform.CreateRole(guildID, name)
	if err != nil {
		return "", fmt.Errorf("failed to create mute role: %w", err)
	}
	if _, err := l.registry.Designate(guildID, model.SubjectRole, roleID, model.DesignationMuteRole, sql.NullInt64{}, model.ActorSystem); err != nil && !errors.Is(err, model.ErrConflict) {
		return "", err
	}
	return roleID, nil
}

// Rescind ends the unique active infraction of a type for a subject. The
// caller needs the rescind claim and rank authority over the subject. The
// winning transition reverses the platform side effect exactly once.
func (l *Lifecycle) Rescind(guildID string, t model.InfractionType, subject, by auth.Member, reason string) error {
	granted, err := l.resolver.Check(guildID, by.UserID, by.RoleIDs, model.ClaimModerationRescind)
	if err != nil {
		return err
	}
	if !granted {
		return fmt.Errorf("%s lacks the %s claim: %w", by.UserID, model.ClaimModerationRescind, model.ErrForbidden)
	}

	allowed, err := l.guard.Allow(guildID, by, subject)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%s outranks or ties %s: %w", subject.UserID, by.UserID, model.ErrForbidden)
	}

	unlock := l.locks.Lock(lockKey(guildID, subject.UserID, t))
	defer unlock()

	inf, err := database.GetActiveInfraction(l.db, guildID, subject.UserID, t)
	if err != nil {
		return err
	}

	won, err := l.terminate(inf, model.StateRescinded, by.UserID, reason)
	if err != nil {
		return err
	}
	if !won {
		return fmt.Errorf("infraction %d already terminal: %w", inf.InfractionID, model.ErrConflict)
	}

	l.reverseSideEffect(inf)
	if l.waker != nil {
		l.waker.Wake()
	}
	return nil
}

// AutoExpire is the system-initiated rescind for a duration-bearing
// infraction. It bypasses claim and rank checks and is idempotent: an
// infraction that is no longer active is a silent no-op and never triggers a
// second side-effect reversal.
func (l *Lifecycle) AutoExpire(infractionID int64) error {
	inf, err := database.GetInfractionByID(l.db, infractionID)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if inf.State != model.StateActive {
		return nil
	}

	unlock := l.locks.Lock(lockKey(inf.GuildID, inf.UserID, inf.Type))
	defer unlock()

	won, err := l.terminate(inf, model.StateRescinded, model.ActorSystem, "duration elapsed")
	if err != nil {
		return err
	}
	if !won {
		// A human rescinded or deleted it first.
		return nil
	}

	log.Printf("Auto-expired infraction %d (%s on %s in guild %s)", inf.InfractionID, inf.Type, inf.UserID, inf.GuildID)
	l.reverseSideEffect(inf)
	return nil
}

// Delete hides an infraction from the record. Permitted from active or
// rescinded, requires the delete claim, and never reverses platform side
// effects.
func (l *Lifecycle) Delete(infractionID int64, by auth.Member) error {
	inf, err := database.GetInfractionByID(l.db, infractionID)
	if err != nil {
		return err
	}

	granted, err := l.resolver.Check(inf.GuildID, by.UserID, by.RoleIDs, model.ClaimModerationDelete)
	if err != nil {
		return err
	}
	if !granted {
		return fmt.Errorf("%s lacks the %s claim: %w", by.UserID, model.ClaimModerationDelete, model.ErrForbidden)
	}

	unlock := l.locks.Lock(lockKey(inf.GuildID, inf.UserID, inf.Type))
	defer unlock()

	now := time.Now().Unix()
	tx, err := l.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin delete tx: %w", err)
	}
	defer tx.Rollback()

	eventID, err := database.AddAuditEvent(tx, model.AuditEvent{
		GuildID:    inf.GuildID,
		Actor:      by.UserID,
		Action:     "infraction.delete",
		TargetKind: model.TargetInfraction,
		TargetID:   inf.InfractionID,
		CreatedAt:  now,
	})
	if err != nil {
		return err
	}

	won, err := database.MarkDeleted(tx, inf.InfractionID, eventID)
	if err != nil {
		return err
	}
	if !won {
		return fmt.Errorf("infraction %d already deleted: %w", inf.InfractionID, model.ErrConflict)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete tx: %w", err)
	}
	return nil
}

// terminate writes the terminating audit event and the conditional
// active-to-terminal transition in one transaction. Reports whether this
// call won the transition.
func (l *Lifecycle) terminate(inf *model.Infraction, to model.InfractionState, actor, detail string) (bool, error) {
	tx, err := l.db.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin terminate tx: %w", err)
	}
	defer tx.Rollback()

	action := "infraction.rescind"
	if to == model.StateDeleted {
		action = "infraction.delete"
	}
	eventID, err := database.AddAuditEvent(tx, model.AuditEvent{
		GuildID:    inf.GuildID,
		Actor:      actor,
		Action:     action,
		TargetKind: model.TargetInfraction,
		TargetID:   inf.InfractionID,
		Detail:     detail,
		CreatedAt:  time.Now().Unix(),
	})
	if err != nil {
		return false, err
	}

	won, err := database.TransitionFromActive(tx, inf.InfractionID, to, eventID)
	if err != nil {
		return false, err
	}
	if !won {
		// Lost the race; roll the audit event back with the tx.
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit terminate tx: %w", err)
	}
	return true, nil
}

// reverseSideEffect undoes the platform action for a mute or ban. Called
// only by the transition winner, so it runs at most once per infraction.
func (l *Lifecycle) reverseSideEffect(inf *model.Infraction) {
	var err error
	switch inf.Type {
	case model.InfractionMute:
		roleID, muteErr := l.registry.MuteRole(inf.GuildID)
		if muteErr != nil {
			err = muteErr
			break
		}
		err = withRetry(l.tuning.PlatformRetryAttempts, l.tuning.PlatformRetryBackoff(), "remove mute role",
			func() error { return l.platform.RemoveRole(inf.GuildID, inf.UserID, roleID) })
	case model.InfractionBan:
		err = withRetry(l.tuning.PlatformRetryAttempts, l.tuning.PlatformRetryBackoff(), "unban",
			func() error { return l.platform.Unban(inf.GuildID, inf.UserID) })
	default:
		return
	}
	if err != nil {
		log.Printf("Side effect reversal for infraction %d failed: %v", inf.InfractionID, err)
		utils.LogError(l.webhook, "Lifecycle", "SideEffectReversal",
			fmt.Sprintf("infraction %d (%s on %s): %v", inf.InfractionID, inf.Type, inf.UserID, err))
	}
}

// ReapplyMute reassigns the guild's mute role to a user with an active mute,
// used when the platform forgot the assignment (leave and rejoin).
func (l *Lifecycle) ReapplyMute(guildID, userID string) error {
	roleID, err := l.registry.MuteRole(guildID)
	if err != nil {
		return err
	}
	return withRetry(l.tuning.PlatformRetryAttempts, l.tuning.PlatformRetryBackoff(), "reapply mute role",
		func() error { return l.platform.AddRole(guildID, userID, roleID) })
}

// RecordExternal records an infraction for an action the platform already
// performed. Claim and rank checks are bypassed and no side effect is
// issued; the actor is attributed as external.
func (l *Lifecycle) RecordExternal(guildID string, t model.InfractionType, userID, reason, externalActorID, detail string) (*model.Infraction, error) {
	actor := model.ActorExternalPrefix + externalActorID
	return l.create(guildID, t, userID, reason, 0, actor, detail, false)
}
