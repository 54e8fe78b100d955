package bot

import (
	"context"
	"log/slog"

	"github.com/ARF-DEV/ytqueue_bot/internal/musicplayer"
	"github.com/bwmarrin/discordgo"
)

type (
	DisBot struct {
		session *discordgo.Session
		ctrl    *musicplayer.Controller
		cmdFns  map[ActionType]discordCmdFn
		log     *slog.Logger

		// cancelled by Close; metadata lookups and voice joins started by commands use it
		ctx    context.Context
		cancel context.CancelFunc
	}

	discordCmdFn func(*discordgo.InteractionCreate)
	ActionType   string
)

const (
	PLAY  ActionType = "play"
	SKIP  ActionType = "skip"
	QUEUE ActionType = "queue"
	STOP  ActionType = "stop"
)

const (
	MsgInvalidURL       = "Please provide a valid YouTube video URL."
	MsgNotInVoice       = "You need to be in a voice channel to use this."
	MsgResolveFailed    = "Failed to fetch video info. Please try a different link."
	MsgVoiceUnavailable = "Could not connect to your voice channel."
	MsgGuildOnly        = "This command only works in a server."
	MsgUnexpected       = "Something went wrong."
)
