package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ARF-DEV/ytqueue_bot/config"
	"github.com/ARF-DEV/ytqueue_bot/internal/audio"
	"github.com/ARF-DEV/ytqueue_bot/internal/bot"
	"github.com/ARF-DEV/ytqueue_bot/internal/cache"
	"github.com/ARF-DEV/ytqueue_bot/internal/cache/rediscache"
	"github.com/ARF-DEV/ytqueue_bot/internal/logger"
	"github.com/ARF-DEV/ytqueue_bot/internal/musicplayer"
	"github.com/ARF-DEV/ytqueue_bot/utils/ytutils"
	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix = "ytqueue:"
	pingTimeout    = 5 * time.Second
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.LogLevel)

	extractor, err := ytutils.NewExtractor(cfg.Extractor, cfg.YoutubeCookie)
	if err != nil {
		log.Error("error when creating extractor", "err", err)
		os.Exit(1)
	}

	trackCache := connectCache(cfg, log)
	if trackCache != nil {
		defer trackCache.Close()
	}

	disBot, err := bot.NewDisBot(cfg, bot.Deps{
		Extractor: extractor,
		NewResource: func(src *ytutils.AudioStream) (musicplayer.Resource, error) {
			s, err := audio.NewStream(src)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		Cache:  trackCache,
		Logger: log,
	})
	if err != nil {
		log.Error("error when creating bot", "err", err)
		os.Exit(1)
	}

	if err := disBot.Open(); err != nil {
		log.Error("error when opening gateway connection", "err", err)
		os.Exit(1)
	}
	log.Info("running", "extractor", cfg.Extractor, "cache", trackCache != nil)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	if err := disBot.Close(); err != nil {
		log.Warn("error when closing bot", "err", err)
	}
	log.Info("bot shut down")
}

// connectCache returns nil when no redis is configured or reachable; the bot
// then resolves every title from YouTube.
func connectCache(cfg config.Config, log *slog.Logger) cache.Cache {
	log = logger.Component(log, "cache")
	if cfg.RedisAddr == "" {
		log.Info("no REDIS_ADDR, metadata cache disabled")
		return nil
	}

	rc := rediscache.CreateCache(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, cacheKeyPrefix)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		log.Warn("redis unreachable, metadata cache disabled", "addr", cfg.RedisAddr, "err", err)
		rc.Close()
		return nil
	}
	log.Info("metadata cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.TrackCacheTTL)
	return rc
}
