package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ExtractorKkdai = "kkdai"
	ExtractorYtdlp = "ytdlp"
)

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required,notEmpty"`
	ClientID     string `env:"DISCORD_CLIENT_ID,required,notEmpty"`
	GuildID      string `env:"DISCORD_GUILD_ID"`

	// YoutubeCookie is sent as the Cookie header on every extraction request.
	YoutubeCookie string `env:"YOUTUBE_COOKIE"`
	Extractor     string `env:"EXTRACTOR" envDefault:"kkdai"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	TrackCacheTTL time.Duration `env:"TRACK_CACHE_TTL" envDefault:"10m"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the optional dotenv files at paths (".env" when none given) and
// parses the process environment into a Config. Variables already present in
// the environment win over the file.
func Load(paths ...string) (Config, error) {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("error when reading env file: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Extractor {
	case ExtractorKkdai, ExtractorYtdlp:
	default:
		return fmt.Errorf("invalid EXTRACTOR %q: want %q or %q", c.Extractor, ExtractorKkdai, ExtractorYtdlp)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}

	if c.TrackCacheTTL < 0 {
		return errors.New("TRACK_CACHE_TTL must not be negative")
	}

	return nil
}

// RegistersGlobally reports whether slash commands go to every guild the
// application is in rather than a single one.
func (c Config) RegistersGlobally() bool {
	return c.GuildID == ""
}
