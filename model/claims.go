package model

// Claim is an atomic permission unit from the closed catalog below.
type Claim string

const (
	ClaimModerationNotice  Claim = "moderation.notice"
	ClaimModerationWarn    Claim = "moderation.warn"
	ClaimModerationMute    Claim = "moderation.mute"
	ClaimModerationBan     Claim = "moderation.ban"
	ClaimModerationRescind Claim = "moderation.rescind"
	ClaimModerationDelete  Claim = "moderation.delete"
	ClaimModerationView    Claim = "moderation.view"
	ClaimPermissionManage  Claim = "permission.manage"
	ClaimGuildConfigure    Claim = "guild.configure"
)

// ClaimCatalog lists every claim the bot understands. Bootstrap grants the
// full catalog to administrator roles; anything outside it is rejected.
var ClaimCatalog = []Claim{
	ClaimModerationNotice,
	ClaimModerationWarn,
	ClaimModerationMute,
	ClaimModerationBan,
	ClaimModerationRescind,
	ClaimModerationDelete,
	ClaimModerationView,
	ClaimPermissionManage,
	ClaimGuildConfigure,
}

// ValidClaim reports whether c is part of the catalog.
func ValidClaim(c Claim) bool {
	for _, known := range ClaimCatalog {
		if known == c {
			return true
		}
	}
	return false
}

// Effect is the polarity of a claim mapping.
type Effect string

const (
	EffectGrant Effect = "grant"
	EffectDeny  Effect = "deny"
)

// SubjectKind identifies what a mapping or designation is attached to.
type SubjectKind string

const (
	SubjectRole    SubjectKind = "role"
	SubjectUser    SubjectKind = "user"
	SubjectChannel SubjectKind = "channel"
)
