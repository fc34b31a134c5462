package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"modguard/bot"
	"modguard/model"
	"modguard/utils"

	"github.com/bwmarrin/discordgo"
)

// HandleClaimCommand handles /claim grant|deny|revoke-grant|revoke-deny|list.
func HandleClaimCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	moderator := moderatorFromInteraction(i)
	granted, err := b.Resolver.Check(i.GuildID, moderator.UserID, moderator.RoleIDs, model.ClaimPermissionManage)
	if err != nil {
		log.Printf("Failed to resolve permission.manage: %v", err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to check permissions.")
		return
	}
	if !granted && !moderator.IsAdministrator {
		utils.SendFollowUpError(s, i.Interaction, "You do not have permission to manage claims.")
		return
	}

	sub := i.ApplicationCommandData().Options[0]
	if sub.Name == "list" {
		listMappings(s, i, b)
		return
	}

	optionMap := mapOptions(sub.Options)
	claim := model.Claim(optionMap["claim"].StringValue())

	kind, subjectID, ok := claimSubject(s, optionMap)
	if !ok {
		utils.SendFollowUpError(s, i.Interaction, "Pick exactly one subject: a role or a user.")
		return
	}

	var opErr error
	var confirmation string
	switch sub.Name {
	case "grant":
		_, opErr = b.Mappings.Put(i.GuildID, kind, subjectID, claim, model.EffectGrant, moderator.UserID)
		confirmation = fmt.Sprintf("Granted %s to %s %s.", claim, kind, subjectID)
	case "deny":
		_, opErr = b.Mappings.Put(i.GuildID, kind, subjectID, claim, model.EffectDeny, moderator.UserID)
		confirmation = fmt.Sprintf("Denied %s to %s %s.", claim, kind, subjectID)
	case "revoke-grant":
		opErr = b.Mappings.Revoke(i.GuildID, kind, subjectID, claim, model.EffectGrant, moderator.UserID)
		confirmation = fmt.Sprintf("Revoked the %s grant for %s %s.", claim, kind, subjectID)
	case "revoke-deny":
		opErr = b.Mappings.Revoke(i.GuildID, kind, subjectID, claim, model.EffectDeny, moderator.UserID)
		confirmation = fmt.Sprintf("Revoked the %s deny for %s %s.", claim, kind, subjectID)
	default:
		utils.SendFollowUpError(s, i.Interaction, "Unknown claim operation.")
		return
	}

	switch {
	case opErr == nil:
		utils.SendFollowUp(s, i.Interaction, confirmation)
	case errors.Is(opErr, model.ErrConflict):
		utils.SendFollowUpError(s, i.Interaction, "An identical live mapping already exists.")
	case errors.Is(opErr, model.ErrNotFound):
		utils.SendFollowUpError(s, i.Interaction, "No such live mapping.")
	default:
		log.Printf("Claim operation failed: %v", opErr)
		utils.SendFollowUpError(s, i.Interaction, "The claim operation failed.")
	}
}

func claimSubject(s *discordgo.Session, optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption) (model.SubjectKind, string, bool) {
	roleOpt, hasRole := optionMap["role"]
	userOpt, hasUser := optionMap["user"]
	if hasRole == hasUser {
		return "", "", false
	}
	if hasRole {
		return model.SubjectRole, roleOpt.RoleValue(s, "").ID, true
	}
	return model.SubjectUser, userOpt.UserValue(s).ID, true
}

func listMappings(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	mappings, err := b.Mappings.List(i.GuildID)
	if err != nil {
		log.Printf("Failed to list mappings for guild %s: %v", i.GuildID, err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to list claim mappings.")
		return
	}
	if len(mappings) == 0 {
		utils.SendFollowUp(s, i.Interaction, "This guild has no live claim mappings.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Live claim mappings:\n")
	for _, m := range mappings {
		fmt.Fprintf(&sb, "• %s %s for %s %s\n", m.Effect, m.Claim, m.SubjectKind, m.SubjectID)
	}
	utils.SendFollowUp(s, i.Interaction, sb.String())
}
