package commands

import (
	"modguard/model"

	"github.com/bwmarrin/discordgo"
)

func claimChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(model.ClaimCatalog))
	for _, c := range model.ClaimCatalog {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  string(c),
			Value: string(c),
		})
	}
	return choices
}

func infractionTypeChoices() []*discordgo.ApplicationCommandOptionChoice {
	return []*discordgo.ApplicationCommandOptionChoice{
		{Name: "notice", Value: string(model.InfractionNotice)},
		{Name: "warning", Value: string(model.InfractionWarning)},
		{Name: "mute", Value: string(model.InfractionMute)},
		{Name: "ban", Value: string(model.InfractionBan)},
	}
}

func infractionSubcommand(name, description string, withDuration bool) *discordgo.ApplicationCommandOption {
	options := []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Target user",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "Reason for the action",
			Required:    true,
		},
	}
	if withDuration {
		options = append(options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "duration",
			Description: "Duration such as 30m, 12h, 3d or 2w; omit for permanent",
		})
	}
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

// Generate returns the bot's application command set.
func Generate() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "mod",
			Description: "Record a moderation action against a user",
			Options: []*discordgo.ApplicationCommandOption{
				infractionSubcommand("notice", "Record a notice", false),
				infractionSubcommand("warn", "Record a warning", false),
				infractionSubcommand("mute", "Mute a user", true),
				infractionSubcommand("ban", "Ban a user", true),
			},
		},
		{
			Name:        "mod-revoke",
			Description: "Rescind a user's active infraction",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "type",
					Description: "Infraction type to rescind",
					Required:    true,
					Choices:     infractionTypeChoices(),
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Target user",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Reason for rescinding",
				},
			},
		},
		{
			Name:        "mod-delete",
			Description: "Hide an infraction from the record",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "infraction_id",
					Description: "Infraction ID",
					Required:    true,
				},
			},
		},
		{
			Name:        "mod-record",
			Description: "Show a user's infraction record",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Target user",
					Required:    true,
				},
			},
		},
		{
			Name:        "claim",
			Description: "Manage claim mappings",
			Options: []*discordgo.ApplicationCommandOption{
				claimSubcommand("grant", "Grant a claim to a role or user"),
				claimSubcommand("deny", "Deny a claim to a role or user"),
				claimSubcommand("revoke-grant", "Revoke a grant mapping"),
				claimSubcommand("revoke-deny", "Revoke a deny mapping"),
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List the guild's live claim mappings",
				},
			},
		},
		{
			Name:        "designate",
			Description: "Manage role and channel designations",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "rank",
					Description: "Designate a role as a moderation rank tier",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionRole,
							Name:        "role",
							Description: "Rank role",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "muterole",
					Description: "Designate the guild's mute role",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionRole,
							Name:        "role",
							Description: "Mute role",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "unmoderated",
					Description: "Mark a channel as unmoderated",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionChannel,
							Name:        "channel",
							Description: "Unmoderated channel",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a designation from a role or channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "type",
							Description: "Designation type",
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "rank", Value: string(model.DesignationRank)},
								{Name: "muterole", Value: string(model.DesignationMuteRole)},
								{Name: "unmoderated", Value: string(model.DesignationUnmoderated)},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionRole,
							Name:        "role",
							Description: "Role to clear",
						},
						{
							Type:        discordgo.ApplicationCommandOptionChannel,
							Name:        "channel",
							Description: "Channel to clear",
						},
					},
				},
			},
		},
		{
			Name:        "mod-status",
			Description: "Show bot and host status",
		},
	}
}

func claimSubcommand(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "claim",
				Description: "Claim from the catalog",
				Required:    true,
				Choices:     claimChoices(),
			},
			{
				Type:        discordgo.ApplicationCommandOptionRole,
				Name:        "role",
				Description: "Role subject",
			},
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "User subject",
			},
		},
	}
}
