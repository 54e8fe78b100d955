package main

import (
	"fmt"
	"os"

	"github.com/ARF-DEV/ytqueue_bot/config"
	"github.com/ARF-DEV/ytqueue_bot/internal/bot"
	"github.com/ARF-DEV/ytqueue_bot/internal/logger"
	"github.com/bwmarrin/discordgo"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Component(logger.Init(cfg.LogLevel), "deploy")

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Error("error when creating session", "err", err)
		os.Exit(1)
	}

	// an empty guild id overwrites the global commands
	registered, err := session.ApplicationCommandBulkOverwrite(cfg.ClientID, cfg.GuildID, bot.Commands())
	if err != nil {
		log.Error("Failed to register commands", "err", err)
		os.Exit(1)
	}

	if cfg.RegistersGlobally() {
		log.Info("Registered global slash commands (may take up to 1 hour).", "count", len(registered))
		return
	}
	log.Info("Registered guild slash commands.", "guild", cfg.GuildID, "count", len(registered))
}
