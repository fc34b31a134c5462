package auth

import (
	"testing"
)

func TestGuardRankComparisons(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	guard := NewGuard(registry)

	addRank(t, registry, "g1", "r3", 3)
	addRank(t, registry, "g1", "r5", 5)
	addRank(t, registry, "g1", "r7", 7)

	moderator := Member{UserID: "mod", RoleIDs: []string{"r5"}}

	cases := []struct {
		name    string
		subject Member
		want    bool
	}{
		{"lower rank allowed", Member{UserID: "s1", RoleIDs: []string{"r3"}}, true},
		{"equal rank denied", Member{UserID: "s2", RoleIDs: []string{"r5"}}, false},
		{"higher rank denied", Member{UserID: "s3", RoleIDs: []string{"r7"}}, false},
		{"rankless subject allowed", Member{UserID: "s4"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := guard.Allow("g1", moderator, tc.subject)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Allow(%s) = %v, want %v", tc.subject.UserID, got, tc.want)
			}
		})
	}
}

func TestGuardRanklessModeratorDenied(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	guard := NewGuard(registry)

	// Neither party holds a rank role: ties deny, so even a rankless
	// subject is off limits.
	allowed, err := guard.Allow("g1", Member{UserID: "mod"}, Member{UserID: "subject"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("expected rankless moderator to be denied")
	}
}

func TestGuardAdministratorBypassesRank(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	guard := NewGuard(registry)

	addRank(t, registry, "g1", "r7", 7)

	admin := Member{UserID: "admin", IsAdministrator: true}
	allowed, err := guard.Allow("g1", admin, Member{UserID: "subject", RoleIDs: []string{"r7"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected administrator to act on anyone")
	}
}

func TestGuardUsesHighestHeldRank(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	guard := NewGuard(registry)

	addRank(t, registry, "g1", "r3", 3)
	addRank(t, registry, "g1", "r5", 5)

	// Moderator holds both a low and a high rank role; the high one counts.
	moderator := Member{UserID: "mod", RoleIDs: []string{"r3", "r5"}}
	allowed, err := guard.Allow("g1", moderator, Member{UserID: "subject", RoleIDs: []string{"r3"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected highest held rank to be used")
	}
}
