package bot

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"modguard/commands"
	"modguard/utils"
)

// Run opens the session, registers commands, starts the expiry scheduler and
// blocks until interrupted.
func (b *Bot) Run() {
	err := b.Session.Open()
	if err != nil {
		log.Fatalf("Error opening connection: %v", err)
	}

	log.Println("Registering application commands...")
	b.RefreshCommands(commands.Generate())

	b.Scheduler.Start()

	stats := utils.CollectSystemStats()
	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	utils.LogInfo(b.GetConfig().LogWebhookURL, "System", "Startup",
		fmt.Sprintf("Bot started on %s (%s, %d goroutines)", stats.Platform, stats.GoVersion, stats.Goroutines))

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
}
