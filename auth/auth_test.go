package auth

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"modguard/model"
	"modguard/utils/database"

	"github.com/jmoiron/sqlx"
)

// newTestDB opens a private in-memory database with the full schema. The
// shared-cache DSN keeps one database across pooled connections; the single
// open connection serializes concurrent test writers.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Init(dsn)
	if err != nil {
		t.Fatalf("failed to init test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func addMapping(t *testing.T, db *sqlx.DB, guildID string, kind model.SubjectKind, subjectID string, claim model.Claim, effect model.Effect) {
	t.Helper()
	_, err := database.AddClaimMapping(db, model.ClaimMapping{
		GuildID:     guildID,
		SubjectKind: kind,
		SubjectID:   subjectID,
		Claim:       claim,
		Effect:      effect,
		CreatedBy:   "test",
		CreatedAt:   time.Now().Unix(),
	})
	if err != nil {
		t.Fatalf("failed to add mapping: %v", err)
	}
}

func addRank(t *testing.T, registry *Registry, guildID, roleID string, position int64) {
	t.Helper()
	_, err := registry.Designate(guildID, model.SubjectRole, roleID, model.DesignationRank,
		sql.NullInt64{Int64: position, Valid: true}, "test")
	if err != nil {
		t.Fatalf("failed to designate rank role %s: %v", roleID, err)
	}
}
