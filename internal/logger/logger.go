package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

const componentKey = "component"

var (
	debugColor = color.New(color.FgHiBlack)
	infoColor  = color.New(color.FgWhite)
	warnColor  = color.New(color.FgHiYellow)
	errorColor = color.New(color.FgHiRed)

	componentColors = map[string]*color.Color{
		"BOT":    color.New(color.FgHiCyan),
		"PLAYER": color.New(color.FgHiMagenta),
		"DEPLOY": color.New(color.FgHiGreen),
		"CACHE":  color.New(color.FgHiBlue),
	}
)

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installs a colored handler writing to stdout as the slog default and
// returns the logger.
func Init(level string) *slog.Logger {
	l := New(os.Stdout, ParseLevel(level))
	slog.SetDefault(l)
	return l
}

func New(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(NewHandler(w, level))
}

// Component returns l tagged with the given component name.
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With(slog.String(componentKey, name))
}

// Handler writes one line per record:
//
//	15:04:05 [LEVEL] [COMPONENT] message key=value ...
type Handler struct {
	w     io.Writer
	level slog.Leveler
	mu    *sync.Mutex
	attrs []slog.Attr
	group string
}

func NewHandler(w io.Writer, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{w: w, level: level, mu: &sync.Mutex{}}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	levelStr, levelColor := levelTag(r.Level)

	component := ""
	fields := make([]string, 0, len(h.attrs)+r.NumAttrs())
	collect := func(a slog.Attr) {
		if a.Key == componentKey {
			component = strings.ToUpper(a.Value.String())
			return
		}
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		fields = append(fields, fmt.Sprintf("%s=%v", key, a.Value.Any()))
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})

	var b strings.Builder
	b.WriteString(r.Time.Format(time.TimeOnly))
	b.WriteString(" ")
	b.WriteString(levelColor.Sprintf("[%s]", levelStr))
	if component != "" {
		c, ok := componentColors[component]
		if !ok {
			c = color.New(color.FgCyan)
		}
		b.WriteString(" ")
		b.WriteString(c.Sprintf("[%s]", component))
	}
	b.WriteString(" ")
	b.WriteString(r.Message)
	if len(fields) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(fields, " "))
	}
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

func (h *Handler) WithGroup(name string) slog.Handler {
	nh := *h
	if nh.group != "" {
		name = nh.group + "." + name
	}
	nh.group = name
	return &nh
}

func levelTag(level slog.Level) (string, *color.Color) {
	switch {
	case level >= slog.LevelError:
		return "ERROR", errorColor
	case level >= slog.LevelWarn:
		return "WARN", warnColor
	case level >= slog.LevelInfo:
		return "INFO", infoColor
	default:
		return "DEBUG", debugColor
	}
}
