package bot

import (
	"log"
	"sync/atomic"

	"modguard/auth"
	"modguard/model"
	"modguard/moderation"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
)

// Bot wires the Discord session, the store and the core moderation services
// together.
type Bot struct {
	Session            *discordgo.Session
	DB                 *sqlx.DB
	RegisteredCommands []*discordgo.ApplicationCommand
	CommandHandlers    map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)

	Resolver     *auth.Resolver
	Registry     *auth.Registry
	Guard        *auth.Guard
	Mappings     *auth.Mappings
	Bootstrapper *auth.Bootstrapper
	Lifecycle    *moderation.Lifecycle
	Scheduler    *moderation.Scheduler
	Reconciler   *moderation.Reconciler

	config atomic.Value // *model.Config
	done   chan struct{}
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load().(*model.Config)
}

func (b *Bot) GetDB() *sqlx.DB {
	return b.DB
}

func (b *Bot) GetSession() *discordgo.Session {
	return b.Session
}

// New creates the bot and its service graph. Nothing touches Discord until
// Run opens the session.
func New(cfg *model.Config, db *sqlx.DB) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildBans
	dg.StateEnabled = true

	resolver := auth.NewResolver(db)
	registry := auth.NewRegistry(db)
	guard := auth.NewGuard(registry)
	platform := moderation.NewDiscordPlatform(dg)
	lifecycle := moderation.NewLifecycle(db, platform, resolver, guard, registry, cfg.Tuning, cfg.LogWebhookURL)
	scheduler := moderation.NewScheduler(db, lifecycle, cfg.Tuning.ExpiryPoll())
	lifecycle.SetWaker(scheduler)

	b := &Bot{
		Session:      dg,
		DB:           db,
		Resolver:     resolver,
		Registry:     registry,
		Guard:        guard,
		Mappings:     auth.NewMappings(db),
		Bootstrapper: auth.NewBootstrapper(db, cfg.AppID),
		Lifecycle:    lifecycle,
		Scheduler:    scheduler,
		Reconciler:   moderation.NewReconciler(db, lifecycle, platform, cfg.Tuning.AuditLookbackEntries, cfg.LogWebhookURL),
		done:         make(chan struct{}),
	}
	b.config.Store(cfg)
	return b, nil
}

// Close shuts the bot down gracefully.
func (b *Bot) Close() {
	log.Println("Gracefully shutting down.")
	close(b.done)
	b.Scheduler.Stop()
	b.Session.Close()
}

// RefreshCommands overwrites the bot's global application commands.
func (b *Bot) RefreshCommands(cmds []*discordgo.ApplicationCommand) {
	registered, err := b.Session.ApplicationCommandBulkOverwrite(b.GetConfig().AppID, "", cmds)
	if err != nil {
		log.Printf("cannot update application commands: %v", err)
		return
	}
	b.RegisteredCommands = registered
	log.Printf("Registered %d application commands", len(registered))
}
