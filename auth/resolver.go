package auth

import (
	"modguard/model"
	"modguard/utils/database"

	"github.com/jmoiron/sqlx"
)

// Resolver computes effective permissions from the guild's claim mappings.
//
// Mappings are partitioned into four tiers and the highest applicable tier
// wins: User-Deny > User-Grant > Role-Deny > Role-Grant. A claim with no
// mapping at all is denied; within a tier any Deny beats any Grant, so a
// user holding two roles where one denies and one grants a claim is denied.
type Resolver struct {
	db *sqlx.DB
}

// NewResolver creates a resolver over the claim store.
func NewResolver(db *sqlx.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve evaluates the given claims for a user acting through their current
// roles and returns the granted subset. Absence of mappings is a normal deny
// result, never an error; a guild that has not been bootstrapped simply
// denies everything.
func (r *Resolver) Resolve(guildID, userID string, roleIDs []string, claims ...model.Claim) (map[model.Claim]bool, error) {
	granted := make(map[model.Claim]bool, len(claims))
	for _, c := range claims {
		granted[c] = false
	}

	mappings, err := database.GetLiveMappings(r.db, guildID, userID, roleIDs, claims)
	if err != nil {
		return nil, err
	}

	type tiers struct {
		userDeny, userGrant, roleDeny, roleGrant bool
	}
	byClaim := make(map[model.Claim]*tiers)
	for _, m := range mappings {
		t := byClaim[m.Claim]
		if t == nil {
			t = &tiers{}
			byClaim[m.Claim] = t
		}
		switch {
		case m.SubjectKind == model.SubjectUser && m.Effect == model.EffectDeny:
			t.userDeny = true
		case m.SubjectKind == model.SubjectUser && m.Effect == model.EffectGrant:
			t.userGrant = true
		case m.SubjectKind == model.SubjectRole && m.Effect == model.EffectDeny:
			t.roleDeny = true
		case m.SubjectKind == model.SubjectRole && m.Effect == model.EffectGrant:
			t.roleGrant = true
		}
	}

	for claim, t := range byClaim {
		switch {
		case t.userDeny:
			granted[claim] = false
		case t.userGrant:
			granted[claim] = true
		case t.roleDeny:
			granted[claim] = false
		case t.roleGrant:
			granted[claim] = true
		}
	}

	return granted, nil
}

// Check evaluates a single claim.
func (r *Resolver) Check(guildID, userID string, roleIDs []string, claim model.Claim) (bool, error) {
	granted, err := r.Resolve(guildID, userID, roleIDs, claim)
	if err != nil {
		return false, err
	}
	return granted[claim], nil
}
