package bot

import (
	"context"
	"time"

	"github.com/ARF-DEV/ytqueue_bot/internal/musicplayer"
	"github.com/bwmarrin/discordgo"
)

const readyPollInterval = 50 * time.Millisecond

var _ musicplayer.Joiner = (*voiceJoiner)(nil)

type voiceJoiner struct {
	session *discordgo.Session
}

type joinResult struct {
	vc  *discordgo.VoiceConnection
	err error
}

func (vj *voiceJoiner) Join(ctx context.Context, guildID, channelID string) (musicplayer.Connection, error) {
	done := make(chan joinResult, 1)
	go func() {
		vc, err := vj.session.ChannelVoiceJoin(guildID, channelID, false, true)
		done <- joinResult{vc: vc, err: err}
	}()

	var vc *discordgo.VoiceConnection
	select {
	case <-ctx.Done():
		go func() {
			if res := <-done; res.vc != nil {
				res.vc.Disconnect()
			}
		}()
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			if res.vc != nil {
				res.vc.Disconnect()
			}
			return nil, res.err
		}
		vc = res.vc
	}

	if err := waitReady(ctx, vc); err != nil {
		vc.Disconnect()
		return nil, err
	}
	return &voiceConn{vc: vc}, nil
}

func waitReady(ctx context.Context, vc *discordgo.VoiceConnection) error {
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()
	for {
		vc.RLock()
		ready := vc.Ready
		vc.RUnlock()
		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type voiceConn struct {
	vc *discordgo.VoiceConnection
}

func (c *voiceConn) ChannelID() string {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.ChannelID
}

func (c *voiceConn) Speaking(b bool) error {
	return c.vc.Speaking(b)
}

func (c *voiceConn) OpusSend() chan<- []byte {
	return c.vc.OpusSend
}

func (c *voiceConn) Disconnect() error {
	return c.vc.Disconnect()
}
