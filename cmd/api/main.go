package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/jackc/pgx/v5/stdlib"

	"wisdom-empire/internal/certificate"
	"wisdom-empire/internal/config"
	"wisdom-empire/internal/content"
	"wisdom-empire/internal/donation"
	"wisdom-empire/internal/handlers"
	"wisdom-empire/internal/ledger"
	"wisdom-empire/internal/logging"
	"wisdom-empire/internal/migrations"
	"wisdom-empire/internal/payments"
	"wisdom-empire/internal/users"
	ws "wisdom-empire/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load Configuration
	cfg, err := config.Load(".")
	if err != nil {
		panic("cannot load config: " + err.Error())
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic("cannot build logger: " + err.Error())
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	logger.Info("starting donation server", zap.String("provider", cfg.CheckoutProvider))

	// Connect to the Database
	db, err := sqlx.Connect("pgx", cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		return err
	}
	logger.Info("database ready")

	provider, err := payments.New(cfg.CheckoutProvider, cfg.ProviderAPIKey)
	if err != nil {
		return err
	}

	donations := ledger.New(db)
	hub := ws.NewHub(logger)
	svc := donation.NewService(cfg, donations, provider, certificate.NewGenerator(), logger)
	svc.Notifier = hub

	if cfg.LogFormat != "console" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(cfg, handlers.Handlers{
		Auth:      handlers.NewAuthHandler(cfg, users.NewStore(db), logger),
		Donation:  handlers.NewDonationHandler(svc, logger),
		Webhook:   handlers.NewWebhookHandler(cfg, svc, logger),
		Admin:     handlers.NewAdminHandler(donations, svc, logger),
		Content:   handlers.NewContentHandler(content.NewStore(db), logger),
		WebSocket: handlers.NewWebSocketHandler(cfg, hub, logger),
	}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	sweeper := &ledger.Sweeper{
		Ledger:   donations,
		MaxAge:   cfg.StalePendingAfter,
		Interval: cfg.SweepInterval,
		Logger:   logger,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error { return sweeper.Run(ctx) })
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
