package main

import (
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/skyward-cloud/gatehouse/adapters/events"
	"github.com/skyward-cloud/gatehouse/adapters/identity"
	"github.com/skyward-cloud/gatehouse/adapters/store"
	"github.com/skyward-cloud/gatehouse/config"
	"github.com/skyward-cloud/gatehouse/devicetrust"
	"github.com/skyward-cloud/gatehouse/service"
	transport "github.com/skyward-cloud/gatehouse/transport/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.FromEnv()
	if cfg.CookieSecret == "" {
		logger.Error("GATEHOUSE_COOKIE_SECRET is required")
		os.Exit(1)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("failed to parse Redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		logger.Error("failed to create Redis publisher", "error", err)
		os.Exit(1)
	}

	backend := identity.NewClient(cfg.IdentityURL)
	sessions := store.NewRedisSessionStore(redisClient)
	cache := store.NewRedisCredentialCache(redisClient)
	projects := store.NewRedisProjectCache(redisClient)

	codec := devicetrust.NewCookieCodec([]byte(cfg.CookieSecret))
	devices := devicetrust.NewManager(backend, codec)

	binder := service.NewBinder(sessions, cfg.Regions, cfg.SessionTTL)
	tokens := service.NewTokenLifecycle(backend, projects)
	eventPub := events.NewWatermillPublisher(publisher)

	flow := service.NewAuthFlow(backend, cache, devices, binder, tokens, eventPub, service.Config{
		DefaultDomain: cfg.DefaultDomain,
		CredentialTTL: cfg.CredentialTTL,
	})

	redirect := service.RedirectPolicy{
		SafeHosts: cfg.SafeHosts,
		Fallback:  cfg.DefaultRedirect,
	}

	handlers := transport.NewAuthHandlers(flow, cache, redirect, cfg.Regions, cfg.SecureCookies)
	router := transport.SetupRouter(handlers, sessions)

	logger.Info("starting gatehouse", "listen", cfg.ListenAddr)
	if err := router.Run(cfg.ListenAddr); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
