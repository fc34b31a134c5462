package moderation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"modguard/auth"
	"modguard/model"
	"modguard/utils/database"
)

func TestCreateMuteAssignsAutoCreatedRole(t *testing.T) {
	f := newFixture(t)

	f.create(t, model.InfractionMute, 0)

	addRole, _, _, _ := f.platform.counts()
	if addRole != 1 {
		t.Fatalf("expected 1 role assignment, got %d", addRole)
	}
	if len(f.platform.createdRoles) != 1 || f.platform.createdRoles[0] != "Muted" {
		t.Fatalf("expected one auto-created Muted role, got %v", f.platform.createdRoles)
	}

	// The created role was designated as the guild's mute role.
	roleID, err := f.registry.MuteRole(testGuild)
	if err != nil {
		t.Fatalf("expected mute role designation: %v", err)
	}
	if roleID != "muted-role" {
		t.Fatalf("expected designated role muted-role, got %s", roleID)
	}
}

func TestCreateMuteReusesDesignatedRole(t *testing.T) {
	f := newFixture(t)
	designateMuteRole(t, f, "existing-mute")

	f.create(t, model.InfractionMute, 0)

	if len(f.platform.createdRoles) != 0 {
		t.Fatalf("expected no role creation, got %v", f.platform.createdRoles)
	}
	if f.platform.lastRoleID != "existing-mute" {
		t.Fatalf("expected designated role to be assigned, got %s", f.platform.lastRoleID)
	}
}

func TestCreateBanCallsPlatform(t *testing.T) {
	f := newFixture(t)

	f.create(t, model.InfractionBan, 0)

	_, _, ban, _ := f.platform.counts()
	if ban != 1 {
		t.Fatalf("expected 1 ban call, got %d", ban)
	}
}

func TestCreateDuplicateActiveRejected(t *testing.T) {
	f := newFixture(t)

	f.create(t, model.InfractionWarning, 0)
	_, err := f.lifecycle.Create(CreateParams{
		GuildID:   testGuild,
		Type:      model.InfractionWarning,
		Moderator: f.moderator,
		Subject:   f.subject,
		Reason:    "again",
	})
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate active warning, got %v", err)
	}
}

func TestCreateWithoutClaimForbidden(t *testing.T) {
	f := newFixture(t)

	outsider := auth.Member{UserID: "nobody", RoleIDs: []string{"plainrole"}}
	_, err := f.lifecycle.Create(CreateParams{
		GuildID:   testGuild,
		Type:      model.InfractionBan,
		Moderator: outsider,
		Subject:   f.subject,
		Reason:    "no authority",
	})
	if !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("expected ErrForbidden without claim, got %v", err)
	}

	_, _, ban, _ := f.platform.counts()
	if ban != 0 {
		t.Fatalf("expected no platform call on refusal, got %d bans", ban)
	}
}

func TestCreateOutrankedForbidden(t *testing.T) {
	f := newFixture(t)

	addRankRole(t, f, "seniorrole", 20)
	senior := auth.Member{UserID: "senior", RoleIDs: []string{"seniorrole"}}
	_, err := f.lifecycle.Create(CreateParams{
		GuildID:   testGuild,
		Type:      model.InfractionWarning,
		Moderator: f.moderator,
		Subject:   senior,
		Reason:    "reaching up",
	})
	if !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("expected ErrForbidden against higher rank, got %v", err)
	}
}

func TestRescindReversesAndFreesSlot(t *testing.T) {
	f := newFixture(t)

	inf := f.create(t, model.InfractionMute, 0)
	if err := f.lifecycle.Rescind(testGuild, model.InfractionMute, f.subject, f.moderator, "appealed"); err != nil {
		t.Fatalf("rescind failed: %v", err)
	}

	_, remove, _, _ := f.platform.counts()
	if remove != 1 {
		t.Fatalf("expected 1 role removal, got %d", remove)
	}
	if got := f.state(t, inf.InfractionID); got != model.StateRescinded {
		t.Fatalf("expected rescinded state, got %s", got)
	}

	// The active slot is free again.
	f.create(t, model.InfractionMute, 0)
}

func TestRescindBanUnbans(t *testing.T) {
	f := newFixture(t)

	f.create(t, model.InfractionBan, 0)
	if err := f.lifecycle.Rescind(testGuild, model.InfractionBan, f.subject, f.moderator, "appealed"); err != nil {
		t.Fatalf("rescind failed: %v", err)
	}

	_, _, _, unban := f.platform.counts()
	if unban != 1 {
		t.Fatalf("expected 1 unban, got %d", unban)
	}
}

func TestRescindWithoutActiveNotFound(t *testing.T) {
	f := newFixture(t)

	err := f.lifecycle.Rescind(testGuild, model.InfractionMute, f.subject, f.moderator, "nothing there")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAutoExpireIdempotent(t *testing.T) {
	f := newFixture(t)

	inf := f.create(t, model.InfractionMute, time.Hour)

	if err := f.lifecycle.AutoExpire(inf.InfractionID); err != nil {
		t.Fatalf("auto-expire failed: %v", err)
	}
	if err := f.lifecycle.AutoExpire(inf.InfractionID); err != nil {
		t.Fatalf("repeat auto-expire failed: %v", err)
	}

	_, remove, _, _ := f.platform.counts()
	if remove != 1 {
		t.Fatalf("expected exactly 1 role removal across repeats, got %d", remove)
	}
	if got := f.state(t, inf.InfractionID); got != model.StateRescinded {
		t.Fatalf("expected rescinded state, got %s", got)
	}
}

func TestAutoExpireRescindRaceReversesOnce(t *testing.T) {
	f := newFixture(t)

	inf := f.create(t, model.InfractionMute, time.Hour)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := f.lifecycle.AutoExpire(inf.InfractionID); err != nil {
			t.Errorf("auto-expire failed: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		err := f.lifecycle.Rescind(testGuild, model.InfractionMute, f.subject, f.moderator, "race")
		if err != nil && !errors.Is(err, model.ErrNotFound) && !errors.Is(err, model.ErrConflict) {
			t.Errorf("rescind failed: %v", err)
		}
	}()
	wg.Wait()

	_, remove, _, _ := f.platform.counts()
	if remove != 1 {
		t.Fatalf("expected exactly 1 role removal under race, got %d", remove)
	}
	if got := f.state(t, inf.InfractionID); got != model.StateRescinded {
		t.Fatalf("expected rescinded state, got %s", got)
	}
}

func TestDeleteFromRescindedWithoutReversal(t *testing.T) {
	f := newFixture(t)

	inf := f.create(t, model.InfractionMute, 0)
	if err := f.lifecycle.Rescind(testGuild, model.InfractionMute, f.subject, f.moderator, "appealed"); err != nil {
		t.Fatalf("rescind failed: %v", err)
	}
	if err := f.lifecycle.Delete(inf.InfractionID, f.moderator); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if got := f.state(t, inf.InfractionID); got != model.StateDeleted {
		t.Fatalf("expected deleted state, got %s", got)
	}
	// Deletion hides the record; it never touches the platform again.
	_, remove, _, _ := f.platform.counts()
	if remove != 1 {
		t.Fatalf("expected no extra reversal on delete, got %d removals", remove)
	}

	err := f.lifecycle.Delete(inf.InfractionID, f.moderator)
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected ErrConflict on repeat delete, got %v", err)
	}
}

func TestDeleteWithoutClaimForbidden(t *testing.T) {
	f := newFixture(t)

	inf := f.create(t, model.InfractionNotice, 0)
	err := f.lifecycle.Delete(inf.InfractionID, auth.Member{UserID: "nobody"})
	if !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestLifecycleWritesAuditTrail(t *testing.T) {
	f := newFixture(t)

	inf := f.create(t, model.InfractionWarning, 0)
	if err := f.lifecycle.Rescind(testGuild, model.InfractionWarning, f.subject, f.moderator, "appealed"); err != nil {
		t.Fatalf("rescind failed: %v", err)
	}

	events, err := database.ListAuditEventsByTarget(f.db, model.TargetInfraction, inf.InfractionID)
	if err != nil {
		t.Fatalf("failed to list audit events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 audit events, got %d", len(events))
	}
	if events[0].Action != "infraction.create" || events[1].Action != "infraction.rescind" {
		t.Fatalf("unexpected audit actions: %s, %s", events[0].Action, events[1].Action)
	}
	if events[1].Actor != f.moderator.UserID {
		t.Fatalf("expected rescind attributed to %s, got %s", f.moderator.UserID, events[1].Actor)
	}

	// The terminating event is linked from the record.
	stored, err := database.GetInfractionByID(f.db, inf.InfractionID)
	if err != nil {
		t.Fatalf("failed to load infraction: %v", err)
	}
	if !stored.TerminatingEventID.Valid || stored.TerminatingEventID.Int64 != events[1].EventID {
		t.Fatalf("expected terminating event %d, got %+v", events[1].EventID, stored.TerminatingEventID)
	}
}
