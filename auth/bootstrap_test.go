package auth

import (
	"sync"
	"testing"

	"modguard/model"
	"modguard/utils/database"
)

func snapshotRoles() []RoleSnapshot {
	return []RoleSnapshot{
		{ID: "admin1", Position: 10, Administrator: true},
		{ID: "admin2", Position: 9, Administrator: true},
		{ID: "member", Position: 1, Administrator: false},
	}
}

func TestBootstrapSeedsAdminRoles(t *testing.T) {
	db := newTestDB(t)
	bootstrapper := NewBootstrapper(db, "bot")

	seeded, err := bootstrapper.EnsureGuild("g1", snapshotRoles())
	if err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if !seeded {
		t.Fatalf("expected first bootstrap to seed")
	}

	count, err := database.CountLiveMappings(db, "g1")
	if err != nil {
		t.Fatalf("failed to count mappings: %v", err)
	}
	want := 2 * len(model.ClaimCatalog)
	if count != want {
		t.Fatalf("expected %d mappings (2 admin roles x %d claims), got %d", want, len(model.ClaimCatalog), count)
	}

	// A user holding an admin role now resolves every claim.
	resolver := NewResolver(db)
	granted, err := resolver.Check("g1", "u1", []string{"admin1"}, model.ClaimModerationBan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !granted {
		t.Fatalf("expected seeded admin role to grant ban claim")
	}

	// The non-admin role received nothing.
	granted, err = resolver.Check("g1", "u2", []string{"member"}, model.ClaimModerationBan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if granted {
		t.Fatalf("expected non-admin role to stay denied")
	}
}

func TestBootstrapIdempotent(t *testing.T) {
	db := newTestDB(t)
	bootstrapper := NewBootstrapper(db, "bot")

	if _, err := bootstrapper.EnsureGuild("g1", snapshotRoles()); err != nil {
		t.Fatalf("first bootstrap failed: %v", err)
	}
	seeded, err := bootstrapper.EnsureGuild("g1", snapshotRoles())
	if err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}
	if seeded {
		t.Fatalf("expected rejoin bootstrap to be a no-op")
	}

	count, err := database.CountLiveMappings(db, "g1")
	if err != nil {
		t.Fatalf("failed to count mappings: %v", err)
	}
	if want := 2 * len(model.ClaimCatalog); count != want {
		t.Fatalf("expected %d mappings after rerun, got %d", want, count)
	}
}

func TestBootstrapConcurrentTriggers(t *testing.T) {
	db := newTestDB(t)
	bootstrapper := NewBootstrapper(db, "bot")

	var wg sync.WaitGroup
	for n := 0; n < 4; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := bootstrapper.EnsureGuild("g1", snapshotRoles()); err != nil {
				t.Errorf("concurrent bootstrap failed: %v", err)
			}
		}()
	}
	wg.Wait()

	count, err := database.CountLiveMappings(db, "g1")
	if err != nil {
		t.Fatalf("failed to count mappings: %v", err)
	}
	if want := 2 * len(model.ClaimCatalog); count != want {
		t.Fatalf("expected exactly %d mappings under concurrent triggers, got %d", want, count)
	}
}

func TestBootstrapSkipsSeededGuild(t *testing.T) {
	db := newTestDB(t)
	bootstrapper := NewBootstrapper(db, "bot")

	// Any pre-existing live mapping means the guild is not new.
	addMapping(t, db, "g1", model.SubjectUser, "u1", model.ClaimModerationWarn, model.EffectGrant)

	seeded, err := bootstrapper.EnsureGuild("g1", snapshotRoles())
	if err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if seeded {
		t.Fatalf("expected bootstrap to skip a guild with existing mappings")
	}
}

func TestBootstrapNoAdminRoles(t *testing.T) {
	db := newTestDB(t)
	bootstrapper := NewBootstrapper(db, "bot")

	seeded, err := bootstrapper.EnsureGuild("g1", []RoleSnapshot{{ID: "member", Position: 1}})
	if err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if seeded {
		t.Fatalf("expected nothing to seed without admin roles")
	}
}
