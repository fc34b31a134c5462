package auth

import (
	"testing"

	"modguard/model"
)

func TestResolverDefaultDeny(t *testing.T) {
	db := newTestDB(t)
	resolver := NewResolver(db)

	granted, err := resolver.Check("g1", "u1", []string{"r1"}, model.ClaimModerationWarn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if granted {
		t.Fatalf("expected deny with no mappings")
	}
}

func TestResolverUserDenyOverridesRoleGrant(t *testing.T) {
	db := newTestDB(t)
	resolver := NewResolver(db)

	addMapping(t, db, "g1", model.SubjectRole, "r1", model.ClaimModerationWarn, model.EffectGrant)
	addMapping(t, db, "g1", model.SubjectUser, "u1", model.ClaimModerationWarn, model.EffectDeny)

	granted, err := resolver.Check("g1", "u1", []string{"r1"}, model.ClaimModerationWarn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if granted {
		t.Fatalf("expected user deny to beat role grant")
	}
}

func TestResolverUserGrantOverridesRoleDeny(t *testing.T) {
	db := newTestDB(t)
	resolver := NewResolver(db)

	addMapping(t, db, "g1", model.SubjectRole, "r1", model.ClaimModerationWarn, model.EffectDeny)
	addMapping(t, db, "g1", model.SubjectUser, "u1", model.ClaimModerationWarn, model.EffectGrant)

	granted, err := resolver.Check("g1", "u1", []string{"r1"}, model.ClaimModerationWarn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !granted {
		t.Fatalf("expected user grant to beat role deny")
	}
}

func TestResolverRoleDenyBeatsRoleGrant(t *testing.T) {
	db := newTestDB(t)
	resolver := NewResolver(db)

	// Two roles held by the same user, one grants and one denies.
	addMapping(t, db, "g1", model.SubjectRole, "r1", model.ClaimModerationMute, model.EffectGrant)
	addMapping(t, db, "g1", model.SubjectRole, "r2", model.ClaimModerationMute, model.EffectDeny)

	granted, err := resolver.Check("g1", "u1", []string{"r1", "r2"}, model.ClaimModerationMute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if granted {
		t.Fatalf("expected any deny at the role tier to beat any grant")
	}
}

func TestResolverRevokedMappingIgnored(t *testing.T) {
	db := newTestDB(t)
	resolver := NewResolver(db)
	mappings := NewMappings(db)

	addMapping(t, db, "g1", model.SubjectRole, "r1", model.ClaimModerationBan, model.EffectGrant)
	if err := mappings.Revoke("g1", model.SubjectRole, "r1", model.ClaimModerationBan, model.EffectGrant, "test"); err != nil {
		t.Fatalf("failed to revoke mapping: %v", err)
	}

	granted, err := resolver.Check("g1", "u1", []string{"r1"}, model.ClaimModerationBan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if granted {
		t.Fatalf("expected revoked grant to no longer apply")
	}
}

func TestResolverMultiClaimSubset(t *testing.T) {
	db := newTestDB(t)
	resolver := NewResolver(db)

	addMapping(t, db, "g1", model.SubjectRole, "r1", model.ClaimModerationWarn, model.EffectGrant)
	addMapping(t, db, "g1", model.SubjectRole, "r1", model.ClaimModerationMute, model.EffectGrant)

	granted, err := resolver.Resolve("g1", "u1", []string{"r1"},
		model.ClaimModerationWarn, model.ClaimModerationMute, model.ClaimModerationBan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !granted[model.ClaimModerationWarn] || !granted[model.ClaimModerationMute] {
		t.Fatalf("expected warn and mute to be granted, got %v", granted)
	}
	if granted[model.ClaimModerationBan] {
		t.Fatalf("expected ban to stay denied, got %v", granted)
	}
}

func TestResolverDeterministic(t *testing.T) {
	db := newTestDB(t)
	resolver := NewResolver(db)

	addMapping(t, db, "g1", model.SubjectRole, "r1", model.ClaimModerationWarn, model.EffectGrant)
	addMapping(t, db, "g1", model.SubjectRole, "r2", model.ClaimModerationWarn, model.EffectDeny)
	addMapping(t, db, "g1", model.SubjectUser, "u1", model.ClaimModerationMute, model.EffectGrant)

	first, err := resolver.Resolve("g1", "u1", []string{"r1", "r2"}, model.ClaimModerationWarn, model.ClaimModerationMute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for n := 0; n < 20; n++ {
		again, err := resolver.Resolve("g1", "u1", []string{"r1", "r2"}, model.ClaimModerationWarn, model.ClaimModerationMute)
		if err != nil {
			t.Fatalf("unexpected error on repeat %d: %v", n, err)
		}
		for claim, want := range first {
			if again[claim] != want {
				t.Fatalf("resolution changed between calls: %v vs %v", first, again)
			}
		}
	}
}

func TestResolverDuplicateMappingRejected(t *testing.T) {
	db := newTestDB(t)
	mappings := NewMappings(db)

	if _, err := mappings.Put("g1", model.SubjectRole, "r1", model.ClaimModerationWarn, model.EffectGrant, "test"); err != nil {
		t.Fatalf("first mapping failed: %v", err)
	}
	_, err := mappings.Put("g1", model.SubjectRole, "r1", model.ClaimModerationWarn, model.EffectGrant, "test")
	if err == nil {
		t.Fatalf("expected duplicate live mapping to be rejected")
	}
}
