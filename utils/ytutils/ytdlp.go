package ytutils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

var _ Extractor = (*YtdlpExtractor)(nil)

type YTVideoMeta struct {
	Title     string   `json:"title"`
	FullTitle string   `json:"fulltitle"`
	ID        string   `json:"id"`
	Type      MetaType `json:"_type"`
	Duration  float64  `json:"duration"`
}

type MetaType string

const (
	MetaPlayList MetaType = "playlist"
	MetaVideo    MetaType = "video"
)

var ErrPlaylist = errors.New("url points to a playlist")

const stderrTail = 4096

// YtdlpExtractor shells out to the yt-dlp binary.
type YtdlpExtractor struct {
	cookie      string
	metaTimeout time.Duration
}

func NewYtdlpExtractor(cookie string, metaTimeout time.Duration) *YtdlpExtractor {
	return &YtdlpExtractor{cookie: cookie, metaTimeout: metaTimeout}
}

func (ye *YtdlpExtractor) args(rest ...string) []string {
	var args []string
	if ye.cookie != "" {
		args = append(args, "--add-headers", "Cookie:"+ye.cookie)
	}
	return append(args, rest...)
}

func (ye *YtdlpExtractor) GetBasicInfo(ctx context.Context, rawURL string) (VideoMeta, error) {
	if ye.metaTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ye.metaTimeout)
		defer cancel()
	}

	res, err := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, ye.args("--skip-download", "--dump-single-json", rawURL)...)
	if err != nil {
		if res != nil && res.Stderr != "" {
			return VideoMeta{}, fmt.Errorf("yt-dlp metadata: %w: %s", err, strings.TrimSpace(res.Stderr))
		}
		return VideoMeta{}, fmt.Errorf("yt-dlp metadata: %w", err)
	}

	meta, err := ParseMetaData([]byte(res.Stdout))
	if err != nil {
		return VideoMeta{}, err
	}

	title := meta.Title
	if title == "" {
		title = meta.FullTitle
	}
	return VideoMeta{
		ID:       meta.ID,
		Title:    title,
		Duration: time.Duration(meta.Duration * float64(time.Second)),
	}, nil
}

// ParseMetaData decodes the output of `yt-dlp --dump-single-json`.
func ParseMetaData(raw []byte) (YTVideoMeta, error) {
	trimmed := bytes.TrimSpace(bytes.ReplaceAll(raw, []byte("\u0000"), nil))
	meta := YTVideoMeta{}
	if err := json.Unmarshal(trimmed, &meta); err != nil {
		return YTVideoMeta{}, fmt.Errorf("error when decoding yt-dlp output: %w", err)
	}
	if meta.Type == MetaPlayList {
		return YTVideoMeta{}, ErrPlaylist
	}
	return meta, nil
}

func (ye *YtdlpExtractor) AudioOnly(ctx context.Context, rawURL string) (*AudioStream, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	cmd := ytdlp.New().
		Format("bestaudio[acodec=opus]/bestaudio").
		Output("-").
		NoPart().
		Quiet().
		NoProgress().
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		BuildCommand(streamCtx, ye.args(rawURL)...)

	stderr := NewTailBuffer(stderrTail)
	cmd.Stderr = stderr
	out, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err = cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("error when starting yt-dlp: %w", err)
	}

	return &AudioStream{
		ReadCloser: &streamCloser{
			Reader: out,
			closeFn: func() error {
				cancel()
				// killed by the context cancel, the exit status carries no information
				_ = cmd.Wait()
				return processError("yt-dlp", stderr)
			},
		},
		URL: rawURL,
	}, nil
}

// processError turns what a helper process wrote to stderr into an error,
// nil when it wrote nothing.
func processError(name string, stderr *TailBuffer) error {
	if msg := stderr.String(); msg != "" {
		return fmt.Errorf("%s: %s", name, msg)
	}
	return nil
}
