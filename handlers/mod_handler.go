package handlers

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"modguard/bot"
	"modguard/model"
	"modguard/moderation"
	"modguard/utils"
	"modguard/utils/database"

	"github.com/bwmarrin/discordgo"
)

// HandleModCommand handles /mod notice|warn|mute|ban.
func HandleModCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	sub := i.ApplicationCommandData().Options[0]
	optionMap := mapOptions(sub.Options)

	var infractionType model.InfractionType
	switch sub.Name {
	case "notice":
		infractionType = model.InfractionNotice
	case "warn":
		infractionType = model.InfractionWarning
	case "mute":
		infractionType = model.InfractionMute
	case "ban":
		infractionType = model.InfractionBan
	default:
		utils.SendFollowUpError(s, i.Interaction, "Unknown moderation action.")
		return
	}

	targetUser := optionMap["user"].UserValue(s)
	reason := optionMap["reason"].StringValue()

	var duration time.Duration
	if opt, ok := optionMap["duration"]; ok {
		parsed, err := utils.ParseDuration(opt.StringValue())
		if err != nil {
			utils.SendFollowUpError(s, i.Interaction, "Invalid duration. Use forms like 30m, 12h, 3d or 2w.")
			return
		}
		duration = parsed
	}

	infraction, err := b.Lifecycle.Create(moderation.CreateParams{
		GuildID:   i.GuildID,
		Type:      infractionType,
		Moderator: moderatorFromInteraction(i),
		Subject:   subjectMember(s, i.GuildID, targetUser.ID),
		Reason:    reason,
		Duration:  duration,
	})
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, describeError(err, infractionType, targetUser.ID))
		return
	}

	msg := fmt.Sprintf("Recorded %s #%d against <@%s>.", infractionType, infraction.InfractionID, targetUser.ID)
	if infraction.Temporary() {
		msg += fmt.Sprintf(" Expires <t:%d:R>.", infraction.ExpiresAt.Int64)
	}
	utils.SendFollowUp(s, i.Interaction, msg)
}

// HandleModRevokeCommand handles /mod-revoke.
func HandleModRevokeCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	optionMap := mapOptions(i.ApplicationCommandData().Options)
	infractionType := model.InfractionType(optionMap["type"].StringValue())
	targetUser := optionMap["user"].UserValue(s)
	reason := ""
	if opt, ok := optionMap["reason"]; ok {
		reason = opt.StringValue()
	}

	err := b.Lifecycle.Rescind(i.GuildID, infractionType, subjectMember(s, i.GuildID, targetUser.ID), moderatorFromInteraction(i), reason)
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, describeError(err, infractionType, targetUser.ID))
		return
	}
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("Rescinded the active %s for <@%s>.", infractionType, targetUser.ID))
}

// HandleModDeleteCommand handles /mod-delete.
func HandleModDeleteCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	optionMap := mapOptions(i.ApplicationCommandData().Options)
	idStr := optionMap["infraction_id"].StringValue()
	infractionID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, "Invalid infraction ID.")
		return
	}

	if err := b.Lifecycle.Delete(infractionID, moderatorFromInteraction(i)); err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			utils.SendFollowUpError(s, i.Interaction, "No such infraction.")
		case errors.Is(err, model.ErrConflict):
			utils.SendFollowUpError(s, i.Interaction, "That infraction is already deleted.")
		case errors.Is(err, model.ErrForbidden):
			utils.SendFollowUpError(s, i.Interaction, "You do not have permission to delete infractions.")
		default:
			log.Printf("Failed to delete infraction %d: %v", infractionID, err)
			utils.SendFollowUpError(s, i.Interaction, "Failed to delete the infraction.")
		}
		return
	}
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("Deleted infraction #%d.", infractionID))
}

// HandleModRecordCommand handles /mod-record.
func HandleModRecordCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	moderator := moderatorFromInteraction(i)
	granted, err := b.Resolver.Check(i.GuildID, moderator.UserID, moderator.RoleIDs, model.ClaimModerationView)
	if err != nil {
		log.Printf("Failed to resolve view claim: %v", err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to check permissions.")
		return
	}
	if !granted && !moderator.IsAdministrator {
		utils.SendFollowUpError(s, i.Interaction, "You do not have permission to view records.")
		return
	}

	targetUser := mapOptions(i.ApplicationCommandData().Options)["user"].UserValue(s)
	infractions, err := database.ListInfractionsByUser(b.DB, i.GuildID, targetUser.ID)
	if err != nil {
		log.Printf("Failed to list infractions for %s: %v", targetUser.ID, err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to fetch the record.")
		return
	}
	if len(infractions) == 0 {
		utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("<@%s> has a clean record.", targetUser.ID))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Record for <@%s>:\n", targetUser.ID)
	for _, inf := range infractions {
		fmt.Fprintf(&sb, "• #%d %s (%s): %s, <t:%d:R>\n", inf.InfractionID, inf.Type, inf.State, inf.Reason, inf.CreatedAt)
	}
	utils.SendFollowUp(s, i.Interaction, sb.String())
}

func mapOptions(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	optionMap := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		optionMap[opt.Name] = opt
	}
	return optionMap
}

func describeError(err error, t model.InfractionType, userID string) string {
	switch {
	case errors.Is(err, model.ErrConflict):
		return fmt.Sprintf("<@%s> already has an active %s.", userID, t)
	case errors.Is(err, model.ErrNotFound):
		return fmt.Sprintf("<@%s> has no active %s.", userID, t)
	case errors.Is(err, model.ErrForbidden):
		return "You are not permitted to do that, either by claim or by rank."
	default:
		log.Printf("Moderation command failed: %v", err)
		return "The operation failed."
	}
}
