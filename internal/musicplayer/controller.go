package musicplayer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ARF-DEV/ytqueue_bot/internal/cache"
	"github.com/ARF-DEV/ytqueue_bot/internal/logger"
	"github.com/ARF-DEV/ytqueue_bot/utils/ytutils"
)

const (
	DefaultConnectTimeout  = 20 * time.Second
	DefaultDisconnectDelay = 1500 * time.Millisecond

	unknownTitle = "Unknown title"
	maxListed    = 10
)

const (
	MsgSkipped           = "Skipped."
	MsgNothingPlaying    = "Nothing is playing."
	MsgQueueEmpty        = "Queue is empty."
	MsgNoUpcoming        = "No upcoming songs."
	MsgStopped           = "Stopped and disconnected."
	MsgNotConnected      = "Not connected."
	statusPlaying        = "Playing now"
	statusIdle           = "Idle"
	nowPlayingFmt        = "Now playing: %s"
	queuedFmt            = "Queued: %s"
	upcomingListFmt      = "%s. Upcoming:\n%s"
	metaCacheKeyTemplate = "meta:%s"
)

var (
	ErrInvalidURL       = errors.New("invalid YouTube video URL")
	ErrNotInVoice       = errors.New("requester is not in a voice channel")
	ErrResolve          = errors.New("failed to fetch video info")
	ErrVoiceUnavailable = errors.New("voice connection unavailable")
)

// ResourceFunc turns an extracted audio stream into something the player can
// play. It owns src and must close it on failure.
type ResourceFunc func(src *ytutils.AudioStream) (Resource, error)

type Options struct {
	Extractor   ytutils.Extractor
	Joiner      Joiner
	NewResource ResourceFunc

	// Cache is optional; nil disables metadata caching.
	Cache    cache.Cache
	CacheTTL time.Duration

	ConnectTimeout  time.Duration
	DisconnectDelay time.Duration

	Logger *slog.Logger
}

// PlayRequest is a play command issued in a guild. VoiceChannelID is the
// channel the requester currently sits in, empty when none.
type PlayRequest struct {
	GuildID        string
	TextChannelID  string
	VoiceChannelID string
	UserID         string
	URL            string
}

// Controller drives the per guild queues: it binds voice connections, feeds
// the guild players and reacts to their events.
type Controller struct {
	store       *Store
	extractor   ytutils.Extractor
	joiner      Joiner
	newResource ResourceFunc
	cache       cache.Cache
	cacheTTL    time.Duration

	connectTimeout  time.Duration
	disconnectDelay time.Duration

	// ctx bounds stream extraction; Shutdown cancels it
	ctx    context.Context
	cancel context.CancelFunc

	log *slog.Logger
}

func NewController(opts Options) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		ctx:             ctx,
		cancel:          cancel,
		store:           NewStore(),
		extractor:       opts.Extractor,
		joiner:          opts.Joiner,
		newResource:     opts.NewResource,
		cache:           opts.Cache,
		cacheTTL:        opts.CacheTTL,
		connectTimeout:  opts.ConnectTimeout,
		disconnectDelay: opts.DisconnectDelay,
		log:             logger.Component(opts.Logger, "player"),
	}
	if c.connectTimeout <= 0 {
		c.connectTimeout = DefaultConnectTimeout
	}
	if c.disconnectDelay <= 0 {
		c.disconnectDelay = DefaultDisconnectDelay
	}
	return c
}

func (c *Controller) Store() *Store {
	return c.store
}

func (c *Controller) ValidateURL(rawURL string) bool {
	return ytutils.ValidateURL(rawURL)
}

// Play enqueues the video at req.URL and starts playback when the guild is
// idle. On success it returns the reply for the requester.
func (c *Controller) Play(ctx context.Context, req PlayRequest) (string, error) {
	if !ytutils.ValidateURL(req.URL) {
		return "", ErrInvalidURL
	}
	if req.VoiceChannelID == "" {
		return "", ErrNotInVoice
	}

	q := c.store.GetOrCreate(req.GuildID)
	c.registerPlayerEvents(q)

	meta, err := c.resolve(ctx, req.URL)
	if err != nil {
		c.log.Warn("failed to fetch video info", "guild", req.GuildID, "url", req.URL, "err", err)
		return "", fmt.Errorf("%w: %v", ErrResolve, err)
	}
	title := meta.Title
	if title == "" {
		title = unknownTitle
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	c.cancelDisconnectLocked(q)
	q.songs = append(q.songs, Track{URL: req.URL, Title: title, RequestedBy: req.UserID})
	q.textChannelID = req.TextChannelID

	if err := c.ensureConnectedLocked(ctx, q, req.VoiceChannelID); err != nil {
		q.songs = q.songs[:len(q.songs)-1]
		c.log.Warn("voice connection unavailable", "guild", req.GuildID, "channel", req.VoiceChannelID, "err", err)
		return "", fmt.Errorf("%w: %v", ErrVoiceUnavailable, err)
	}

	if !q.playing {
		c.advanceLocked(q)
		return fmt.Sprintf(nowPlayingFmt, title), nil
	}
	return fmt.Sprintf(queuedFmt, title), nil
}

func (c *Controller) Skip(guildID string) string {
	q, found := c.store.Get(guildID)
	if !found {
		return MsgNothingPlaying
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.playing {
		return MsgNothingPlaying
	}
	if q.current == nil {
		// still opening the track; advancing supersedes that load
		c.advanceLocked(q)
		return MsgSkipped
	}
	// the idle event of the stopped resource advances the queue
	q.player.Stop()
	return MsgSkipped
}

func (c *Controller) List(guildID string) string {
	q, found := c.store.Get(guildID)
	if !found {
		return MsgQueueEmpty
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.songs) == 0 && !q.playing {
		return MsgQueueEmpty
	}

	status := statusIdle
	if q.playing {
		status = statusPlaying
	}

	lines := make([]string, 0, maxListed)
	for i, song := range q.songs {
		if i == maxListed {
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, song.Title))
	}
	list := strings.Join(lines, "\n")
	if list == "" {
		list = MsgNoUpcoming
	}
	return fmt.Sprintf(upcomingListFmt, status, list)
}

func (c *Controller) Stop(guildID string) string {
	q, found := c.store.Get(guildID)
	if !found {
		return MsgNotConnected
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	c.resetLocked(q)
	return MsgStopped
}

// Advance moves the guild to its next playable track. No-op for unknown guilds.
func (c *Controller) Advance(guildID string) {
	q, found := c.store.Get(guildID)
	if !found {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	c.advanceLocked(q)
}

// Shutdown aborts pending extractions, stops every player and closes every
// voice connection.
func (c *Controller) Shutdown() {
	c.cancel()
	for _, q := range c.store.All() {
		q.mu.Lock()
		c.resetLocked(q)
		q.mu.Unlock()
	}
}

// resetLocked empties q, stops its player and leaves voice right away.
func (c *Controller) resetLocked(q *Queue) {
	q.songs = []Track{}
	// clearing current first makes the idle event of the stopped resource stale
	q.current = nil
	q.loadSeq++
	q.player.Stop()
	c.cancelDisconnectLocked(q)
	c.disconnectLocked(q)
	q.playing = false
}

func (c *Controller) registerPlayerEvents(q *Queue) {
	registered := q.player.OnEvent(func(ev PlayerEvent) {
		c.onPlayerEvent(q, ev)
	})
	if registered {
		c.log.Debug("player events registered", "guild", q.GuildID)
	}
}

func (c *Controller) onPlayerEvent(q *Queue, ev PlayerEvent) {
	if ev.Type == EventError {
		c.log.Error("audio player error", "guild", q.GuildID, "err", ev.Err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current == nil || q.current != ev.Resource {
		c.log.Debug("ignoring event for replaced resource", "guild", q.GuildID, "event", ev.Type)
		return
	}
	q.current = nil
	c.advanceLocked(q)
}

// advanceLocked pops tracks until one starts playing. Every popped track is
// gone for good, whether it played or failed. An exhausted queue goes idle
// and schedules the deferred disconnect.
//
// q.mu is released while a track is opened; the queue counts as playing
// meanwhile. A stop, skip or other advance during that window bumps
// q.loadSeq, and the superseded load is dropped.
func (c *Controller) advanceLocked(q *Queue) {
	for len(q.songs) > 0 {
		next := q.songs[0]
		q.songs = q.songs[1:]

		if next.URL == "" {
			c.log.Warn("queue item without URL, skipping", "guild", q.GuildID, "title", next.Title)
			continue
		}

		q.playing = true
		q.current = nil
		q.loadSeq++
		seq := q.loadSeq

		res, err := c.openUnlocked(q, next)
		if seq != q.loadSeq {
			if res != nil {
				res.Close()
			}
			c.log.Debug("dropping superseded track", "guild", q.GuildID, "url", next.URL)
			return
		}
		if err != nil {
			c.log.Error("failed to play", "guild", q.GuildID, "url", next.URL, "err", err)
			continue
		}

		q.current = res
		q.player.Play(res)
		q.playing = true
		c.log.Info("now playing", "guild", q.GuildID, "title", next.Title, "remaining", len(q.songs))
		return
	}

	q.loadSeq++
	q.playing = false
	q.current = nil
	c.scheduleDisconnectLocked(q)
}

// openUnlocked opens t with q.mu released and reacquires it before returning.
func (c *Controller) openUnlocked(q *Queue, t Track) (Resource, error) {
	q.mu.Unlock()
	defer q.mu.Lock()

	// the stream outlives the command that queued the track
	stream, err := c.extractor.AudioOnly(c.ctx, t.URL)
	if err != nil {
		return nil, err
	}
	return c.newResource(stream)
}

// ensureConnectedLocked binds q to channelID, reusing the current connection
// when it already sits there.
func (c *Controller) ensureConnectedLocked(ctx context.Context, q *Queue, channelID string) error {
	if q.conn != nil && q.voiceChannelID == channelID {
		return nil
	}

	joinCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	conn, err := c.joiner.Join(joinCtx, q.GuildID, channelID)
	if err != nil {
		c.disconnectLocked(q)
		return err
	}

	q.conn = conn
	q.voiceChannelID = channelID
	q.player.Subscribe(conn)
	c.log.Info("joined voice channel", "guild", q.GuildID, "channel", channelID)
	return nil
}

func (c *Controller) scheduleDisconnectLocked(q *Queue) {
	c.cancelDisconnectLocked(q)

	var t *time.Timer
	t = time.AfterFunc(c.disconnectDelay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		if q.disconnectTimer != t {
			return
		}
		q.disconnectTimer = nil
		if q.playing {
			return
		}
		c.disconnectLocked(q)
	})
	q.disconnectTimer = t
}

func (c *Controller) cancelDisconnectLocked(q *Queue) {
	if q.disconnectTimer == nil {
		return
	}
	q.disconnectTimer.Stop()
	q.disconnectTimer = nil
}

func (c *Controller) disconnectLocked(q *Queue) {
	q.player.Subscribe(nil)
	if q.conn != nil {
		if err := q.conn.Disconnect(); err != nil {
			c.log.Warn("error when disconnecting", "guild", q.GuildID, "err", err)
		} else {
			c.log.Info("left voice channel", "guild", q.GuildID, "channel", q.voiceChannelID)
		}
	}
	q.conn = nil
	q.voiceChannelID = ""
}

func (c *Controller) resolve(ctx context.Context, rawURL string) (ytutils.VideoMeta, error) {
	id, err := ytutils.VideoID(rawURL)
	if err != nil {
		return ytutils.VideoMeta{}, err
	}
	key := fmt.Sprintf(metaCacheKeyTemplate, id)

	if c.cache != nil {
		var meta ytutils.VideoMeta
		err := c.cache.GetAndParse(ctx, key, &meta)
		if err == nil && meta.Title != "" {
			return meta, nil
		}
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.log.Warn("cache read failed", "key", key, "err", err)
		}
	}

	meta, err := c.extractor.GetBasicInfo(ctx, rawURL)
	if err != nil {
		return ytutils.VideoMeta{}, err
	}

	if c.cache != nil && meta.Title != "" {
		if err := c.cache.SetExp(ctx, key, meta, c.cacheTTL); err != nil {
			c.log.Warn("cache write failed", "key", key, "err", err)
		}
	}
	return meta, nil
}
