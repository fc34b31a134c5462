package moderation

import (
	"fmt"

	"modguard/model"

	"github.com/bwmarrin/discordgo"
)

// DiscordPlatform implements Platform over a discordgo session.
type DiscordPlatform struct {
	session *discordgo.Session
}

// NewDiscordPlatform wraps a session as the lifecycle's platform.
func NewDiscordPlatform(session *discordgo.Session) *DiscordPlatform {
	return &DiscordPlatform{session: session}
}

func (d *DiscordPlatform) AddRole(guildID, userID, roleID string) error {
	return d.session.GuildMemberRoleAdd(guildID, userID, roleID)
}

func (d *DiscordPlatform) RemoveRole(guildID, userID, roleID string) error {
	return d.session.GuildMemberRoleRemove(guildID, userID, roleID)
}

func (d *DiscordPlatform) Ban(guildID, userID, reason string) error {
	return d.session.GuildBanCreateWithReason(guildID, userID, reason, 0)
}

func (d *DiscordPlatform) Unban(guildID, userID string) error {
	return d.session.GuildBanDelete(guildID, userID)
}

func (d *DiscordPlatform) CreateRole(guildID, name string) (string, int64, error) {
	role, err := d.session.GuildRoleCreate(guildID, &discordgo.RoleParams{Name: name})
	if err != nil {
		return "", 0, fmt.Errorf("failed to create role %q in guild %s: %w", name, guildID, err)
	}
	return role.ID, int64(role.Position), nil
}

func (d *DiscordPlatform) FindBanEntry(guildID, userID string, lookback int) (*BanEntry, error) {
	auditLog, err := d.session.GuildAuditLog(guildID, "", "", int(discordgo.AuditLogActionMemberBanAdd), lookback)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log for guild %s: %w", guildID, err)
	}
	for _, entry := range auditLog.AuditLogEntries {
		if entry.TargetID == userID {
			return &BanEntry{ActorID: entry.UserID, Reason: entry.Reason}, nil
		}
	}
	return nil, fmt.Errorf("no ban entry for user %s in recent audit log: %w", userID, model.ErrNotFound)
}
