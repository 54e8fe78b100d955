package musicplayer

import "context"

// Connection is a voice transport session bound to one voice channel.
type Connection interface {
	ChannelID() string
	Speaking(bool) error
	OpusSend() chan<- []byte
	Disconnect() error
}

// Joiner establishes voice connections. Join returns once the connection is
// ready to carry audio; when ctx expires first it tears down whatever it
// started and returns ctx's error.
type Joiner interface {
	Join(ctx context.Context, guildID, channelID string) (Connection, error)
}

// Resource is a playable source of Opus frames.
type Resource interface {
	ReadFrame() ([]byte, error)
	Close() error
}
