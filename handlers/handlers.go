package handlers

import (
	"log"

	"modguard/auth"
	"modguard/bot"

	"github.com/bwmarrin/discordgo"
)

// Register wires the interaction dispatch and the gateway events the
// reconciler and bootstrapper listen to.
func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)

	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if handler, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
			handler(s, i)
		}
	})

	b.Session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		roles := make([]auth.RoleSnapshot, 0, len(g.Roles))
		for _, role := range g.Roles {
			roles = append(roles, auth.RoleSnapshot{
				ID:            role.ID,
				Position:      int64(role.Position),
				Administrator: role.Permissions&discordgo.PermissionAdministrator != 0,
			})
		}
		go func() {
			if _, err := b.Bootstrapper.EnsureGuild(g.ID, roles); err != nil {
				log.Printf("Bootstrap of guild %s failed: %v", g.ID, err)
			}
		}()
	})

	b.Session.AddHandler(func(s *discordgo.Session, event *discordgo.GuildBanAdd) {
		go func() {
			if err := b.Reconciler.OnBan(event.GuildID, event.User.ID); err != nil {
				log.Printf("Ban reconciliation for %s in guild %s failed: %v", event.User.ID, event.GuildID, err)
			}
		}()
	})

	// Synchronous on purpose: the mute role must be back before anything
	// else is processed for the rejoining member.
	b.Session.AddHandler(func(s *discordgo.Session, event *discordgo.GuildMemberAdd) {
		if err := b.Reconciler.OnMemberJoin(event.GuildID, event.User.ID); err != nil {
			log.Printf("Mute reapply for %s in guild %s failed: %v", event.User.ID, event.GuildID, err)
		}
	})
}

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"mod": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleModCommand(s, i, b)
		},
		"mod-revoke": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleModRevokeCommand(s, i, b)
		},
		"mod-delete": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleModDeleteCommand(s, i, b)
		},
		"mod-record": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleModRecordCommand(s, i, b)
		},
		"claim": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleClaimCommand(s, i, b)
		},
		"designate": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleDesignateCommand(s, i, b)
		},
		"mod-status": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleStatusCommand(s, i, b)
		},
	}
}

// moderatorFromInteraction builds the guard's view of the invoking member.
func moderatorFromInteraction(i *discordgo.InteractionCreate) auth.Member {
	return auth.Member{
		UserID:          i.Member.User.ID,
		RoleIDs:         i.Member.Roles,
		IsAdministrator: i.Member.Permissions&discordgo.PermissionAdministrator != 0,
	}
}

// subjectMember fetches the target's current roles. A user who is not (or no
// longer) a member is treated as rankless.
func subjectMember(s *discordgo.Session, guildID, userID string) auth.Member {
	member, err := s.GuildMember(guildID, userID)
	if err != nil {
		return auth.Member{UserID: userID}
	}
	return auth.Member{UserID: userID, RoleIDs: member.Roles}
}
