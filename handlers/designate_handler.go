package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"modguard/bot"
	"modguard/model"
	"modguard/utils"

	"github.com/bwmarrin/discordgo"
)

// HandleDesignateCommand handles /designate rank|muterole|unmoderated|remove.
func HandleDesignateCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	moderator := moderatorFromInteraction(i)
	granted, err := b.Resolver.Check(i.GuildID, moderator.UserID, moderator.RoleIDs, model.ClaimGuildConfigure)
	if err != nil {
		log.Printf("Failed to resolve guild.configure: %v", err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to check permissions.")
		return
	}
	if !granted && !moderator.IsAdministrator {
		utils.SendFollowUpError(s, i.Interaction, "You do not have permission to manage designations.")
		return
	}

	sub := i.ApplicationCommandData().Options[0]
	optionMap := mapOptions(sub.Options)

	var opErr error
	var confirmation string
	switch sub.Name {
	case "rank":
		role := optionMap["role"].RoleValue(s, i.GuildID)
		position, err := rolePosition(s, i.GuildID, role.ID)
		if err != nil {
			log.Printf("Failed to read position of role %s: %v", role.ID, err)
			utils.SendFollowUpError(s, i.Interaction, "Could not read the role's position.")
			return
		}
		_, opErr = b.Registry.Designate(i.GuildID, model.SubjectRole, role.ID, model.DesignationRank,
			sql.NullInt64{Int64: position, Valid: true}, moderator.UserID)
		confirmation = fmt.Sprintf("Designated <@&%s> as a rank tier at position %d.", role.ID, position)
	case "muterole":
		role := optionMap["role"].RoleValue(s, i.GuildID)
		_, opErr = b.Registry.Designate(i.GuildID, model.SubjectRole, role.ID, model.DesignationMuteRole,
			sql.NullInt64{}, moderator.UserID)
		confirmation = fmt.Sprintf("Designated <@&%s> as the mute role.", role.ID)
	case "unmoderated":
		channel := optionMap["channel"].ChannelValue(s)
		_, opErr = b.Registry.Designate(i.GuildID, model.SubjectChannel, channel.ID, model.DesignationUnmoderated,
			sql.NullInt64{}, moderator.UserID)
		confirmation = fmt.Sprintf("Marked <#%s> as unmoderated.", channel.ID)
	case "remove":
		dtype := model.DesignationType(optionMap["type"].StringValue())
		kind, subjectID, ok := designationSubject(s, optionMap)
		if !ok {
			utils.SendFollowUpError(s, i.Interaction, "Pick exactly one subject: a role or a channel.")
			return
		}
		opErr = b.Registry.Revoke(i.GuildID, kind, subjectID, dtype, moderator.UserID)
		confirmation = fmt.Sprintf("Removed the %s designation from %s %s.", dtype, kind, subjectID)
	default:
		utils.SendFollowUpError(s, i.Interaction, "Unknown designation operation.")
		return
	}

	switch {
	case opErr == nil:
		utils.SendFollowUp(s, i.Interaction, confirmation)
	case errors.Is(opErr, model.ErrConflict):
		utils.SendFollowUpError(s, i.Interaction, "That designation is already set.")
	case errors.Is(opErr, model.ErrNotFound):
		utils.SendFollowUpError(s, i.Interaction, "No such live designation.")
	default:
		log.Printf("Designation operation failed: %v", opErr)
		utils.SendFollowUpError(s, i.Interaction, "The designation operation failed.")
	}
}

// rolePosition reads the platform-native position of a role. Stored on the
// designation at assignment time; hierarchy checks use the stored value.
func rolePosition(s *discordgo.Session, guildID, roleID string) (int64, error) {
	roles, err := s.GuildRoles(guildID)
	if err != nil {
		return 0, err
	}
	for _, role := range roles {
		if role.ID == roleID {
			return int64(role.Position), nil
		}
	}
	return 0, fmt.Errorf("role %s not found in guild %s: %w", roleID, guildID, model.ErrNotFound)
}

func designationSubject(s *discordgo.Session, optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption) (model.SubjectKind, string, bool) {
	roleOpt, hasRole := optionMap["role"]
	channelOpt, hasChannel := optionMap["channel"]
	if hasRole == hasChannel {
		return "", "", false
	}
	if hasRole {
		return model.SubjectRole, roleOpt.RoleValue(s, "").ID, true
	}
	return model.SubjectChannel, channelOpt.ChannelValue(s).ID, true
}
