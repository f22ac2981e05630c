package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"claudygod/internal/cache"
	"claudygod/internal/config"
	"claudygod/internal/handlers"
	"claudygod/internal/logger"
	"claudygod/internal/middleware"
	"claudygod/internal/notify"
	"claudygod/internal/repositories"
	"claudygod/internal/services"
	"claudygod/pkg/rabbitmq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.NewLogger(cfg.App)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	zlog.Info("server gracefully stopped")
}

// app bundles everything run needs to serve and to shut down.
type app struct {
	fiber        *fiber.App
	orderService *services.OrderService
	consume      func(ctx context.Context) error
	closers      []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func run(ctx context.Context, cfg *config.Config, zlog *zap.Logger) error {
	a, err := build(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zlog.Info("starting server", zap.String("port", cfg.HTTP.Port))
		if err := a.fiber.Listen(cfg.HTTP.Port); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zlog.Info("shutting down server")
		return a.fiber.ShutdownWithTimeout(10 * time.Second)
	})

	if a.consume != nil {
		g.Go(func() error { return a.consume(gctx) })
	}

	if cfg.AutoConfirm.After > 0 {
		g.Go(func() error {
			return a.orderService.StartAutoConfirm(gctx, cfg.AutoConfirm.After, cfg.AutoConfirm.Interval)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// build wires the repositories, services, notification delivery and routes.
func build(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.close()
		return nil, err
	}

	// --- Database ---
	db, err := repositories.Open(cfg.Database.Driver, cfg.Database.DSN, zlog)
	if err != nil {
		return fail(err)
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, func() { sqlDB.Close() })
	}
	orderRepo := repositories.NewGORMOrderRepository(db)
	adminRepo := repositories.NewGORMAdminRepository(db)

	// --- Status cache ---
	var statusCache services.StatusCache
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(ctx, cache.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, func() { redisClient.Close() })
		statusCache = cache.NewRedisStatusCache(redisClient, cfg.Redis.TTL)
	} else {
		zlog.Info("REDIS_ADDR not set, order status cache disabled")
	}

	// --- Notifications ---
	var sender notify.Sender
	if cfg.Mail.SMTPHost != "" {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.SMTPUsername,
			Password: cfg.Mail.SMTPPassword,
			From:     cfg.Mail.From,
		})
	} else {
		zlog.Warn("SMTP_HOST not set, emails will only be logged")
		sender = notify.NewLogSender(zlog.Named("mail"))
	}
	mailer, err := notify.NewMailer(sender, cfg.Auth.AdminEmail, cfg.App.SiteURL)
	if err != nil {
		return fail(err)
	}

	// With RabbitMQ the request path publishes jobs and a consumer mails them.
	// Without it a local worker pool mails them.
	var notifier services.Notifier
	if cfg.RabbitMQ.URL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL}, zlog.Named("rabbitmq"))
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, func() {
			if err := mqClient.Close(); err != nil {
				zlog.Warn("failed to close RabbitMQ client", zap.Error(err))
			}
		})
		notifier = notify.NewQueueNotifier(mqClient)
		handler := notify.QueueHandler(mailer, zlog.Named("notify"))
		a.consume = func(ctx context.Context) error { return mqClient.Consume(ctx, handler) }
	} else {
		dispatcher := notify.NewDispatcher(mailer, notify.DispatcherConfig{
			Workers:      cfg.Notify.Workers,
			QueueSize:    cfg.Notify.QueueSize,
			MaxAttempts:  cfg.Notify.MaxAttempts,
			RetryBackoff: cfg.Notify.RetryBackoff,
		}, zlog.Named("notify"))
		a.closers = append(a.closers, dispatcher.Close)
		notifier = dispatcher
	}

	// --- Services ---
	pricing := services.Pricing{
		TaxRate:          cfg.Pricing.TaxRate,
		ShippingFlat:     cfg.Pricing.ShippingFlat,
		FreeShippingOver: cfg.Pricing.FreeShippingOver,
	}
	engine := services.NewTransitionEngine(orderRepo, notifier, statusCache, zlog.Named("transitions"))
	a.orderService = services.NewOrderService(orderRepo, engine, notifier, statusCache, pricing, zlog.Named("orders"))
	authService := services.NewAuthService(adminRepo, cfg.Auth.JWTSecret, zlog.Named("auth"))

	if cfg.Auth.AdminPassword != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return fail(err)
		}
	} else {
		zlog.Warn("ADMIN_PASSWORD not set, no admin account seeded")
	}

	// --- HTTP ---
	a.fiber = newFiberApp(zlog)
	handlers.NewAuthHandler(authService, zlog.Named("http")).RegisterRoutes(a.fiber)
	handlers.NewOrderHandler(a.orderService, zlog.Named("http")).
		RegisterRoutes(a.fiber, middleware.AuthRequired(authService, zlog.Named("http")))

	return a, nil
}

func newFiberApp(zlog *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	zlog.Debug("routes registered")
	return app
}
