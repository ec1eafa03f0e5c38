package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-control-api/internal/config"
	"github.com/iliyamo/finance-control-api/internal/database"
	"github.com/iliyamo/finance-control-api/internal/handler"
	"github.com/iliyamo/finance-control-api/internal/mail"
	"github.com/iliyamo/finance-control-api/internal/middleware"
	"github.com/iliyamo/finance-control-api/internal/queue"
	"github.com/iliyamo/finance-control-api/internal/repository"
	"github.com/iliyamo/finance-control-api/internal/router"
	"github.com/iliyamo/finance-control-api/internal/service"
	"github.com/iliyamo/finance-control-api/internal/utils"
)

const sessionSweepInterval = time.Hour

func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case "dev":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

func main() {
	cfg := config.MustLoad()
	log := setupLogger(cfg.App.Env)
	log.Info("starting finance control api", slog.String("env", cfg.App.Env), slog.String("version", cfg.App.Version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Error("failed to open database", slog.Any("err", err))
		os.Exit(1)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Error("failed to migrate database", slog.Any("err", err))
		os.Exit(1)
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting disabled", slog.String("addr", cfg.Redis.Addr))
	} else {
		defer rdb.Close()
	}

	tokens, err := utils.NewTokenService(cfg.JWT)
	if err != nil {
		log.Error("invalid jwt config", slog.Any("err", err))
		os.Exit(1)
	}

	users := repository.NewUserRepo(db, cfg.App.BcryptCost)
	sessions := repository.NewSessionRepo(db, tokens.RefreshTTL())
	categories := repository.NewCategoryRepo(db)
	entries := repository.NewEntryRepo(db)
	favorites := repository.NewFavoriteRepo(db)

	sender := mail.NewSender(cfg.Mail, cfg.Frontend, log)
	outbox := service.NewDispatcher(cfg.AMQP, sender, log)
	if cfg.AMQP.URL != "" {
		go func() {
			if err := queue.StartMailConsumer(ctx, cfg.AMQP.URL, cfg.AMQP.MailQueue, sender, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("mail consumer stopped", slog.Any("err", err))
			}
		}()
	}
	go sweepSessions(ctx, sessions, log)

	auth := service.NewAuthService(users, sessions, tokens, sender, outbox, log)

	e := echo.New()
	e.HideBanner = true
	router.Use(e, log)
	router.RegisterRoutes(e, cfg.App.Version)
	router.RegisterAuth(e, handler.NewAuthHandler(auth, log), tokens, middleware.RateLimit(cfg.RateLimit, rdb, log))
	router.RegisterUsers(e, handler.NewResourceHandler(categories, entries, favorites, log), tokens)

	go func() {
		addr := ":" + cfg.App.Port
		log.Info("listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", slog.Any("err", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", slog.Any("err", err))
	}
}

// sweepSessions deletes expired session rows until ctx is done.
func sweepSessions(ctx context.Context, sessions *repository.SessionRepo, log *slog.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PurgeExpired(ctx)
			if err != nil {
				log.Warn("session sweep failed", slog.Any("err", err))
				continue
			}
			if n > 0 {
				log.Debug("expired sessions purged", slog.Int64("count", n))
			}
		}
	}
}
