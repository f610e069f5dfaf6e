package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/heartlink/internal/adapters/http"
	wsignal "github.com/dkeye/heartlink/internal/adapters/signal"
	"github.com/dkeye/heartlink/internal/app"
	"github.com/dkeye/heartlink/internal/app/orch"
	"github.com/dkeye/heartlink/internal/config"
	"github.com/dkeye/heartlink/internal/core"
	"github.com/dkeye/heartlink/internal/domain"
	"github.com/dkeye/heartlink/internal/media"
	"github.com/dkeye/heartlink/internal/notify"
	"github.com/dkeye/heartlink/internal/storage"
)

func main() {
	issueFor := flag.String("issue-token", "", "issue an access token for this user id and exit")
	userName := flag.String("name", "", "display name stored with -issue-token")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Console output until the config says otherwise.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	db, err := storage.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()
	if err := storage.RunMigrations(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	users := storage.NewUserRepository(db)
	tokens := storage.NewTokenRepository(db)

	if *issueFor != "" {
		if err := issueToken(ctx, users, tokens, domain.UserID(*issueFor), *userName, cfg.TokenTTL); err != nil {
			log.Fatal().Err(err).Msg("failed to issue token")
		}
		return
	}

	if err := run(ctx, cfg, db, users, tokens); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("Server exited gracefully")
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Mode != "debug" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

func issueToken(ctx context.Context, users *storage.UserRepository, tokens *storage.TokenRepository, uid domain.UserID, name string, ttl time.Duration) error {
	if name != "" {
		u, err := domain.NewUser(uid, name)
		if err != nil {
			return err
		}
		if err := users.Upsert(ctx, *u); err != nil {
			return err
		}
	}
	token, err := tokens.Issue(ctx, uid, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func pushNotifier(cfg *config.Config) (core.PushNotifier, func()) {
	if cfg.RedisAddr == "" {
		log.Warn().Str("module", "notify").Msg("redis_addr not set, push notifications are only logged")
		return notify.LogNotifier{}, func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return notify.NewRedisNotifier(rdb, cfg.PushQueue), func() { _ = rdb.Close() }
}

func run(ctx context.Context, cfg *config.Config, db *storage.DB, users *storage.UserRepository, tokens *storage.TokenRepository) error {
	matches := storage.NewMatchRepository(db)
	messages := storage.NewMessageRepository(db)
	history := storage.NewCallHistoryRepository(db)
	zones := storage.NewZoneRepository(db)

	resolver, err := media.NewBaseURLResolver(cfg.MediaBaseURL)
	if err != nil {
		return err
	}
	push, closePush := pushNotifier(cfg)
	defer closePush()

	calls := app.NewCallHub(history)
	o := &orch.Orchestrator{
		Chat:      app.NewChatHub(matches),
		Calls:     calls,
		Rooms:     app.NewRoomHub(app.WithPrompts(app.Prompts{Truths: cfg.Prompts.Truths, Dares: cfg.Prompts.Dares})),
		Matches:   matches,
		Unmatcher: matches,
		Users:     users,
		Messages:  messages,
		Push:      push,
		Media:     resolver,
		Zones:     zones,
	}

	janitor := app.NewJanitor(calls, cfg.RingTimeout, cfg.CallTombstoneTTL)
	if err := janitor.Every("@every 1h", "purge expired tokens", func() {
		n, err := tokens.PurgeExpired(context.Background())
		if err != nil {
			log.Warn().Err(err).Str("module", "storage").Msg("token purge failed")
			return
		}
		log.Debug().Str("module", "storage").Int64("purged", n).Msg("expired tokens purged")
	}); err != nil {
		return err
	}

	ctrl := wsignal.NewSignalWSController(o, wsignal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
	}, wsignal.NewRoomRateLimiter(cfg.RoomRateLimit, cfg.RoomRateInterval))

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Orch:     o,
		Signal:   ctrl,
		Auth:     tokens,
		Revoker:  tokens,
		Messages: messages,
		Calls:    history,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Heartlink server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := janitor.Start(); err != nil {
			return err
		}
		<-gctx.Done()
		janitor.Stop()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
