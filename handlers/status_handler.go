package handlers

import (
	"fmt"
	"log"

	"modguard/bot"
	"modguard/utils"

	"github.com/bwmarrin/discordgo"
)

// HandleStatusCommand handles /mod-status with a bot and host overview.
func HandleStatusCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	stats := utils.CollectSystemStats()

	embed := &discordgo.MessageEmbed{
		Title: "Bot Status",
		Color: 0x5865F2, // Discord Blurple
		Fields: []*discordgo.MessageEmbedField{
			{Name: "OS", Value: stats.Platform, Inline: true},
			{Name: "Kernel", Value: stats.KernelVersion, Inline: true},
			{Name: "Go", Value: stats.GoVersion, Inline: true},
			{Name: "CPUs", Value: fmt.Sprintf("%d", stats.CPUCount), Inline: true},
			{Name: "CPU Usage", Value: fmt.Sprintf("%.1f%%", stats.CPUPercent), Inline: true},
			{Name: "Memory", Value: stats.MemUsed, Inline: true},
			{Name: "Guilds", Value: fmt.Sprintf("%d", len(s.State.Guilds)), Inline: true},
			{Name: "Latency", Value: s.HeartbeatLatency().String(), Inline: true},
			{Name: "Goroutines", Value: fmt.Sprintf("%d", stats.Goroutines), Inline: true},
		},
	}
	utils.SendFollowUpEmbed(s, i.Interaction, embed)
}
