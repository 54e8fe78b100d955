package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/ARF-DEV/ytqueue_bot/utils/ytutils"
	"github.com/hraban/opus"
)

const (
	audioChannels  = 2
	audioFrameRate = 48000
	audioFrameSize = 960 // 20ms
	audioBitRate   = 64  // kbit/s
	maxOpusFrame   = 1000
	stderrTail     = 4096
)

var ErrEmptyStream = errors.New("stream produced no audio")

type OpusFrame []byte

// Stream decodes an extracted audio stream with ffmpeg and encodes it to Opus
// frames ready for a discord voice connection.
type Stream struct {
	src     *ytutils.AudioStream
	ffmpeg  *exec.Cmd
	pcm     *bufio.Reader
	encoder *opus.Encoder
	buf     []int16
	stderr  *ytutils.TailBuffer

	waitOnce sync.Once
	waitErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewStream starts decoding src. The container type announced by the
// extractor is passed to ffmpeg as the demuxer; when empty ffmpeg probes it.
// It fails when ffmpeg cannot produce a single sample from src.
func NewStream(src *ytutils.AudioStream) (*Stream, error) {
	encoder, err := opus.NewEncoder(audioFrameRate, audioChannels, opus.AppAudio)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("error when creating opus encoder: %w", err)
	}
	if err = encoder.SetBitrate(audioBitRate * 1000); err != nil {
		src.Close()
		return nil, fmt.Errorf("error when setting opus bitrate: %w", err)
	}

	ffmpeg := exec.Command("ffmpeg", ffmpegArgs(src.Container)...)
	stderr := ytutils.NewTailBuffer(stderrTail)
	ffmpeg.Stdin = src
	ffmpeg.Stderr = stderr
	ffmpegOut, err := ffmpeg.StdoutPipe()
	if err != nil {
		src.Close()
		return nil, err
	}
	if err = ffmpeg.Start(); err != nil {
		src.Close()
		return nil, fmt.Errorf("error when starting ffmpeg: %w", err)
	}

	s := &Stream{
		src:     src,
		ffmpeg:  ffmpeg,
		pcm:     bufio.NewReaderSize(ffmpegOut, 16000),
		encoder: encoder,
		buf:     make([]int16, audioChannels*audioFrameSize),
		stderr:  stderr,
	}

	if _, err = s.pcm.Peek(2); err != nil {
		exitErr := s.exitError()
		s.Close()
		if errors.Is(err, io.EOF) {
			return nil, errors.Join(ErrEmptyStream, exitErr)
		}
		return nil, fmt.Errorf("error when probing stream: %w", err)
	}

	return s, nil
}

func ffmpegArgs(container string) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if container != "" {
		args = append(args, "-f", container)
	}
	return append(args,
		"-i", "pipe:0",
		"-vn",
		"-f", "s16le",
		"-ar", strconv.Itoa(audioFrameRate),
		"-ac", strconv.Itoa(audioChannels),
		"pipe:1",
	)
}

// ReadFrame returns the next 20ms Opus frame, io.EOF once the stream ends.
// A trailing partial frame is dropped. When ffmpeg or the source failed, the
// end of the stream is reported with their error output instead of io.EOF.
func (s *Stream) ReadFrame() ([]byte, error) {
	if err := binary.Read(s.pcm, binary.LittleEndian, s.buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if exitErr := s.exitError(); exitErr != nil {
				return nil, exitErr
			}
			return nil, io.EOF
		}
		return nil, fmt.Errorf("error when reading pcm: %w", err)
	}

	frame := make(OpusFrame, maxOpusFrame)
	n, err := s.encoder.Encode(s.buf, frame)
	if err != nil {
		return nil, fmt.Errorf("error when encoding opus frame: %w", err)
	}
	return frame[:n], nil
}

// Close stops ffmpeg and releases the source. Safe to call from another
// goroutine while ReadFrame is blocked.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.src.Close()
		if s.ffmpeg.Process != nil {
			s.ffmpeg.Process.Kill()
		}
		s.wait()
	})
	return s.closeErr
}

func (s *Stream) wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.ffmpeg.Wait()
	})
	return s.waitErr
}

// exitError releases the source and waits for ffmpeg once its output ended.
// It returns nil when both finished cleanly.
func (s *Stream) exitError() error {
	// closing the source first unblocks the stdin copy Wait depends on
	srcErr := s.src.Close()
	return ffmpegError(s.wait(), s.stderr.String(), srcErr)
}

func ffmpegError(waitErr error, stderr string, srcErr error) error {
	if waitErr == nil {
		return srcErr
	}
	err := fmt.Errorf("ffmpeg: %w", waitErr)
	if stderr != "" {
		err = fmt.Errorf("ffmpeg: %w: %s", waitErr, stderr)
	}
	return errors.Join(err, srcErr)
}
