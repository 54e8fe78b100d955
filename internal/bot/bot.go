package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ARF-DEV/ytqueue_bot/config"
	"github.com/ARF-DEV/ytqueue_bot/internal/cache"
	"github.com/ARF-DEV/ytqueue_bot/internal/logger"
	"github.com/ARF-DEV/ytqueue_bot/internal/musicplayer"
	"github.com/ARF-DEV/ytqueue_bot/utils/ytutils"
	"github.com/bwmarrin/discordgo"
)

// Deps are the collaborators DisBot plays music with. Cache may be nil.
type Deps struct {
	Extractor   ytutils.Extractor
	NewResource musicplayer.ResourceFunc
	Cache       cache.Cache
	Logger      *slog.Logger
}

func NewDisBot(cfg config.Config, deps Deps) (*DisBot, error) {
	b, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	disBot := DisBot{
		session: b,
		cmdFns:  map[ActionType]discordCmdFn{},
		log:     logger.Component(deps.Logger, "bot"),
		ctx:     ctx,
		cancel:  cancel,
	}
	disBot.ctrl = musicplayer.NewController(musicplayer.Options{
		Extractor:   deps.Extractor,
		Joiner:      &voiceJoiner{session: b},
		NewResource: deps.NewResource,
		Cache:       deps.Cache,
		CacheTTL:    cfg.TrackCacheTTL,
		Logger:      deps.Logger,
	})

	disBot.insertCmdFn(PLAY, disBot.play)
	disBot.insertCmdFn(SKIP, disBot.skip)
	disBot.insertCmdFn(QUEUE, disBot.queue)
	disBot.insertCmdFn(STOP, disBot.stop)
	disBot.init()

	return &disBot, nil
}

func (db *DisBot) insertCmdFn(actionType ActionType, f discordCmdFn) {
	db.cmdFns[actionType] = f
}

func (db *DisBot) Open() error {
	return db.session.Open()
}

// Close stops every guild's playback, leaves voice and closes the gateway.
func (db *DisBot) Close() error {
	db.cancel()
	db.ctrl.Shutdown()
	return db.session.Close()
}

func (db *DisBot) init() {
	db.session.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildVoiceStates
	db.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		db.log.Info("logged in", "user", r.User.Username, "guilds", len(r.Guilds))
	})
	db.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		db.dispatch(i)
	})
}

func (db *DisBot) dispatch(i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	handler, found := db.cmdFns[ActionType(name)]
	if !found {
		db.log.Warn("handler for command is not implemented", "command", name)
		return
	}
	if i.GuildID == "" {
		db.respond(i, MsgGuildOnly, true)
		return
	}
	handler(i)
}

func (db *DisBot) play(i *discordgo.InteractionCreate) {
	url := optionString(i.ApplicationCommandData().Options, urlOption)
	if !db.ctrl.ValidateURL(url) {
		db.respond(i, MsgInvalidURL, true)
		return
	}

	userID := interactionUserID(i)
	voiceChannelID := db.voiceChannelOf(i.GuildID, userID)
	if voiceChannelID == "" {
		db.respond(i, MsgNotInVoice, true)
		return
	}

	if !db.deferReply(i, false) {
		return
	}
	reply, err := db.ctrl.Play(db.ctx, musicplayer.PlayRequest{
		GuildID:        i.GuildID,
		TextChannelID:  i.ChannelID,
		VoiceChannelID: voiceChannelID,
		UserID:         userID,
		URL:            url,
	})
	if err != nil {
		reply = replyForError(err)
	}
	db.editReply(i, reply)
}

func (db *DisBot) skip(i *discordgo.InteractionCreate) {
	if db.deferReply(i, true) {
		db.editReply(i, db.ctrl.Skip(i.GuildID))
	}
}

func (db *DisBot) queue(i *discordgo.InteractionCreate) {
	if db.deferReply(i, true) {
		db.editReply(i, db.ctrl.List(i.GuildID))
	}
}

func (db *DisBot) stop(i *discordgo.InteractionCreate) {
	if db.deferReply(i, true) {
		db.editReply(i, db.ctrl.Stop(i.GuildID))
	}
}

func (db *DisBot) voiceChannelOf(guildID, userID string) string {
	vs, err := db.session.State.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

func (db *DisBot) respond(i *discordgo.InteractionCreate, content string, ephemeral bool) {
	err := db.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   responseFlags(ephemeral),
		},
	})
	if err != nil {
		db.log.Error("error when responding to interaction", "command", i.ApplicationCommandData().Name, "err", err)
	}
}

func (db *DisBot) deferReply(i *discordgo.InteractionCreate, ephemeral bool) bool {
	err := db.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: responseFlags(ephemeral)},
	})
	if err != nil {
		db.log.Error("error when deferring reply", "command", i.ApplicationCommandData().Name, "err", err)
		return false
	}
	return true
}

func (db *DisBot) editReply(i *discordgo.InteractionCreate, content string) {
	if _, err := db.session.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		db.log.Error("error when editing reply", "command", i.ApplicationCommandData().Name, "err", err)
	}
}

func responseFlags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func replyForError(err error) string {
	switch {
	case errors.Is(err, musicplayer.ErrInvalidURL):
		return MsgInvalidURL
	case errors.Is(err, musicplayer.ErrNotInVoice):
		return MsgNotInVoice
	case errors.Is(err, musicplayer.ErrResolve):
		return MsgResolveFailed
	case errors.Is(err, musicplayer.ErrVoiceUnavailable):
		return MsgVoiceUnavailable
	default:
		return MsgUnexpected
	}
}
