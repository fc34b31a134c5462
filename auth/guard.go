package auth

// Member is the guard's view of a guild member: identity, current roles and
// whether the platform grants them the administrator capability.
type Member struct {
	UserID          string
	RoleIDs         []string
	IsAdministrator bool
}

// Guard enforces the rank hierarchy: moderators may only act on subjects of
// strictly lower rank. Rank is the highest rank-designation position among a
// member's roles.
type Guard struct {
	registry *Registry
}

// NewGuard creates a guard over the designation registry.
func NewGuard(registry *Registry) *Guard {
	return &Guard{registry: registry}
}

// Allow reports whether moderator may act on subject. Administrators may act
// on anyone. A moderator with no rank role may act on no one, and equal
// ranks deny, so a moderator can never act on their own tier or above.
func (g *Guard) Allow(guildID string, moderator, subject Member) (bool, error) {
	if moderator.IsAdministrator {
		return true, nil
	}

	modRank, modOK, err := g.registry.MaxRank(guildID, moderator.RoleIDs)
	if err != nil {
		return false, err
	}
	if !modOK {
		return false, nil
	}

	subjRank, subjOK, err := g.registry.MaxRank(guildID, subject.RoleIDs)
	if err != nil {
		return false, err
	}
	if !subjOK {
		// Subject has no rank at all, below any ranked moderator.
		return true, nil
	}

	return subjRank < modRank, nil
}
