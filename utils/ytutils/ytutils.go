package ytutils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/kkdai/youtube/v2"
)

var (
	ErrInvalidURL     = errors.New("not a YouTube video URL")
	ErrNoAudioFormats = errors.New("no audio formats found for video")
)

var (
	validHosts = map[string]bool{
		"youtube.com":              true,
		"www.youtube.com":          true,
		"m.youtube.com":            true,
		"music.youtube.com":        true,
		"gaming.youtube.com":       true,
		"www.youtube-nocookie.com": true,
	}
	// path prefixes that carry the id as the next segment
	idPathPrefixes = []string{"/shorts/", "/embed/", "/live/", "/v/"}
	idPattern      = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// Extractor resolves YouTube video URLs to metadata and audio.
type Extractor interface {
	GetBasicInfo(ctx context.Context, rawURL string) (VideoMeta, error)
	// AudioOnly opens the highest bitrate audio-only stream of the video.
	// Cancelling ctx aborts the stream; Close releases it.
	AudioOnly(ctx context.Context, rawURL string) (*AudioStream, error)
}

type VideoMeta struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Duration time.Duration `json:"duration"`
}

func (vm VideoMeta) MarshalBinary() ([]byte, error) {
	return json.Marshal(vm)
}

// AudioStream is an encoded audio byte stream. Container names the ffmpeg
// demuxer for the bytes, empty when unknown.
type AudioStream struct {
	io.ReadCloser
	URL       string
	Container string
}

// ValidateURL reports whether rawURL is a link to a single YouTube video.
func ValidateURL(rawURL string) bool {
	_, err := VideoID(rawURL)
	return err == nil
}

// VideoID extracts the 11 character video id from a YouTube video link.
// Bare ids are rejected.
func VideoID(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case host == "youtu.be":
	case validHosts[host]:
		if !hasVideoPath(u) {
			return "", ErrInvalidURL
		}
	default:
		return "", ErrInvalidURL
	}

	id, err := youtube.ExtractVideoID(u.String())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !idPattern.MatchString(id) {
		return "", ErrInvalidURL
	}
	return id, nil
}

func hasVideoPath(u *url.URL) bool {
	if u.Path == "/watch" {
		return u.Query().Get("v") != ""
	}
	for _, prefix := range idPathPrefixes {
		if strings.HasPrefix(u.Path, prefix) {
			return true
		}
	}
	return false
}

// ContainerFromMime maps a stream mime type such as
// `audio/webm; codecs="opus"` to an ffmpeg demuxer name.
func ContainerFromMime(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	_, sub, ok := strings.Cut(strings.TrimSpace(base), "/")
	if !ok {
		return ""
	}
	switch strings.ToLower(sub) {
	case "webm":
		return "webm"
	case "mp4", "m4a":
		return "mp4"
	case "ogg":
		return "ogg"
	case "mpeg":
		return "mp3"
	default:
		return ""
	}
}

// streamCloser releases everything tied to an open stream exactly once.
type streamCloser struct {
	io.Reader
	once    sync.Once
	closeFn func() error
	err     error
}

func (sc *streamCloser) Close() error {
	sc.once.Do(func() {
		sc.err = sc.closeFn()
	})
	return sc.err
}
