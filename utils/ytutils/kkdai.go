package ytutils

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
)

var _ Extractor = (*KkdaiExtractor)(nil)

// KkdaiExtractor talks to YouTube directly through github.com/kkdai/youtube.
type KkdaiExtractor struct {
	client *youtube.Client
}

func NewKkdaiExtractor(cookie string) *KkdaiExtractor {
	return &KkdaiExtractor{
		client: &youtube.Client{
			HTTPClient: &http.Client{
				Transport: NewCookieTransport(cookie, nil),
			},
		},
	}
}

func (ke *KkdaiExtractor) GetBasicInfo(ctx context.Context, rawURL string) (VideoMeta, error) {
	video, err := ke.client.GetVideoContext(ctx, rawURL)
	if err != nil {
		return VideoMeta{}, fmt.Errorf("error when fetching video info: %w", err)
	}

	return VideoMeta{
		ID:       video.ID,
		Title:    video.Title,
		Duration: video.Duration,
	}, nil
}

func (ke *KkdaiExtractor) AudioOnly(ctx context.Context, rawURL string) (*AudioStream, error) {
	video, err := ke.client.GetVideoContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("error when fetching video info: %w", err)
	}

	formats := audioOnlyFormats(video.Formats)
	if len(formats) == 0 {
		return nil, ErrNoAudioFormats
	}
	format := formats[0]

	streamCtx, cancel := context.WithCancel(ctx)
	body, _, err := ke.client.GetStreamContext(streamCtx, video, &format)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("error when opening audio stream: %w", err)
	}

	return &AudioStream{
		ReadCloser: &streamCloser{
			Reader: body,
			closeFn: func() error {
				defer cancel()
				return body.Close()
			},
		},
		URL:       rawURL,
		Container: ContainerFromMime(format.MimeType),
	}, nil
}

// audioOnlyFormats returns the formats without a video track, highest
// bitrate first.
func audioOnlyFormats(formats youtube.FormatList) youtube.FormatList {
	audio := make(youtube.FormatList, 0, len(formats))
	for _, f := range formats {
		if strings.HasPrefix(f.MimeType, "audio/") && f.AudioChannels > 0 {
			audio = append(audio, f)
		}
	}
	sort.SliceStable(audio, func(i, j int) bool {
		return audio[i].Bitrate > audio[j].Bitrate
	})
	return audio
}

// NewExtractor returns the backend registered under name.
func NewExtractor(name, cookie string) (Extractor, error) {
	switch name {
	case "", "kkdai":
		return NewKkdaiExtractor(cookie), nil
	case "ytdlp":
		return NewYtdlpExtractor(cookie, 2*time.Minute), nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", name)
	}
}
