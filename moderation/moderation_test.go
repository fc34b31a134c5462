package moderation

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"modguard/auth"
	"modguard/model"
	"modguard/utils/database"

	"github.com/jmoiron/sqlx"
)

// fakePlatform counts platform calls instead of talking to a chat service.
type fakePlatform struct {
	mu           sync.Mutex
	addRoleCalls int
	removeCalls  int
	banCalls     int
	unbanCalls   int
	createdRoles []string
	lastRoleID   string

	banEntry     *BanEntry
	banEntryErr  error
	findBanCalls int
}

func (f *fakePlatform) AddRole(guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addRoleCalls++
	f.lastRoleID = roleID
	return nil
}

func (f *fakePlatform) RemoveRole(guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	f.lastRoleID = roleID
	return nil
}

func (f *fakePlatform) Ban(guildID, userID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banCalls++
	return nil
}

func (f *fakePlatform) Unban(guildID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unbanCalls++
	return nil
}

func (f *fakePlatform) CreateRole(guildID, name string) (string, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdRoles = append(f.createdRoles, name)
	return "muted-role", 2, nil
}

func (f *fakePlatform) FindBanEntry(guildID, userID string, lookback int) (*BanEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findBanCalls++
	if f.banEntryErr != nil {
		return nil, f.banEntryErr
	}
	if f.banEntry == nil {
		return nil, model.ErrNotFound
	}
	return f.banEntry, nil
}

func (f *fakePlatform) counts() (addRole, remove, ban, unban int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addRoleCalls, f.removeCalls, f.banCalls, f.unbanCalls
}

// fixture wires a lifecycle over an in-memory store with one ranked
// moderator role holding the full moderation claim set.
type fixture struct {
	db        *sqlx.DB
	platform  *fakePlatform
	lifecycle *Lifecycle
	registry  *auth.Registry
	moderator auth.Member
	subject   auth.Member
}

const testGuild = "g1"

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Init(dsn)
	if err != nil {
		t.Fatalf("failed to init test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	now := time.Now().Unix()
	for _, claim := range model.ClaimCatalog {
		if _, err := database.AddClaimMapping(db, model.ClaimMapping{
			GuildID:     testGuild,
			SubjectKind: model.SubjectRole,
			SubjectID:   "modrole",
			Claim:       claim,
			Effect:      model.EffectGrant,
			CreatedBy:   "test",
			CreatedAt:   now,
		}); err != nil {
			t.Fatalf("failed to seed claim %s: %v", claim, err)
		}
	}

	registry := auth.NewRegistry(db)
	if _, err := registry.Designate(testGuild, model.SubjectRole, "modrole", model.DesignationRank,
		sql.NullInt64{Int64: 10, Valid: true}, "test"); err != nil {
		t.Fatalf("failed to designate rank role: %v", err)
	}

	platform := &fakePlatform{}
	resolver := auth.NewResolver(db)
	guard := auth.NewGuard(registry)
	tuning := model.Tuning{PlatformRetryAttempts: 1, PlatformRetryBackoffMS: 1, MuteRoleName: "Muted"}
	lifecycle := NewLifecycle(db, platform, resolver, guard, registry, tuning, "")

	return &fixture{
		db:        db,
		platform:  platform,
		lifecycle: lifecycle,
		registry:  registry,
		moderator: auth.Member{UserID: "mod", RoleIDs: []string{"modrole"}},
		subject:   auth.Member{UserID: "target"},
	}
}

func (f *fixture) create(t *testing.T, typ model.InfractionType, duration time.Duration) *model.Infraction {
	t.Helper()
	inf, err := f.lifecycle.Create(CreateParams{
		GuildID:   testGuild,
		Type:      typ,
		Moderator: f.moderator,
		Subject:   f.subject,
		Reason:    "test reason",
		Duration:  duration,
	})
	if err != nil {
		t.Fatalf("failed to create %s: %v", typ, err)
	}
	return inf
}

func addRankRole(t *testing.T, f *fixture, roleID string, position int64) {
	t.Helper()
	if _, err := f.registry.Designate(testGuild, model.SubjectRole, roleID, model.DesignationRank,
		sql.NullInt64{Int64: position, Valid: true}, "test"); err != nil {
		t.Fatalf("failed to designate rank role %s: %v", roleID, err)
	}
}

func designateMuteRole(t *testing.T, f *fixture, roleID string) {
	t.Helper()
	if _, err := f.registry.Designate(testGuild, model.SubjectRole, roleID, model.DesignationMuteRole,
		sql.NullInt64{}, "test"); err != nil {
		t.Fatalf("failed to designate mute role %s: %v", roleID, err)
	}
}

func (f *fixture) state(t *testing.T, id int64) model.InfractionState {
	t.Helper()
	inf, err := database.GetInfractionByID(f.db, id)
	if err != nil {
		t.Fatalf("failed to load infraction %d: %v", id, err)
	}
	return inf.State
}
