package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shopping/internal/config"
	"github.com/Skotchmaster/shopping/internal/db"
	"github.com/Skotchmaster/shopping/internal/events"
	"github.com/Skotchmaster/shopping/internal/httpserver"
	"github.com/Skotchmaster/shopping/internal/logging"
	loggingmw "github.com/Skotchmaster/shopping/internal/middleware/logging"
	"github.com/Skotchmaster/shopping/internal/mykafka"
	"github.com/Skotchmaster/shopping/internal/repo"
	"github.com/Skotchmaster/shopping/internal/service"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel, cfg.ServiceName)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	initCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		cancel()
		logger.Error("db init error", "error", err)
		os.Exit(1)
	}
	if err := repo.Migrate(gdb); err != nil {
		cancel()
		logger.Error("db migrate error", "error", err)
		os.Exit(1)
	}

	carts, ready, closeCarts, err := openCartStore(initCtx, cfg, gdb)
	if err != nil {
		cancel()
		logger.Error("cart store init error", "store", cfg.CartStore, "error", err)
		os.Exit(1)
	}

	broker, closeBroker := openBroker(initCtx, cfg, logger)
	cancel()

	locks := service.NewCustomerLocks()
	publisher := events.NewPublisher(broker, cfg.EventsExchange, events.BreakerSettings{})
	orderSvc := service.NewOrderService(carts, &repo.GormOrderStore{DB: gdb}, publisher, locks, service.OrderOptions{
		RoutingKey:     cfg.NotificationRoutingKey,
		PublishTimeout: cfg.PublishTimeout,
		ClearAttempts:  cfg.CartClearAttempts,
	})

	e := echo.New()
	e.HideBanner = true

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	httpserver.Register(e, &httpserver.Deps{
		CartHandler:  &httpserver.CartHTTP{Svc: service.NewCartService(carts, locks)},
		OrderHandler: &httpserver.OrderHTTP{Svc: orderSvc},
		JWTSecret:    cfg.JWTSecret,
		Ready:        append([]httpserver.ReadyFunc{sqlReady(gdb)}, ready...),
	})

	go func() {
		logger.Info("starting shopping service", "port", cfg.ServerPort, "cart_store", cfg.CartStore)
		if err := e.Start(":" + strconv.Itoa(cfg.ServerPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("echo start", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}
	if err := closeBroker(); err != nil {
		logger.Error("broker close", "error", err)
	}
	if err := closeCarts(shutdownCtx); err != nil {
		logger.Error("cart store close", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db close", "error", err)
	}

	logger.Info("server stopped",
		"notification_failures", orderSvc.NotificationFailures(),
		"cart_clear_failures", orderSvc.CartClearFailures())
}

func openCartStore(ctx context.Context, cfg config.Config, gdb *gorm.DB) (repo.CartStore, []httpserver.ReadyFunc, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.CartStore {
	case config.CartStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, noop, fmt.Errorf("redis ping: %w", err)
		}
		ready := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return repo.NewRedisCartStore(client), []httpserver.ReadyFunc{ready},
			func(context.Context) error { return client.Close() }, nil

	case config.CartStoreMongo:
		mdb, err := repo.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, noop, err
		}
		ready := func(ctx context.Context) error { return mdb.Client().Ping(ctx, nil) }
		return repo.NewMongoCartStore(mdb), []httpserver.ReadyFunc{ready},
			func(ctx context.Context) error { return mdb.Client().Disconnect(ctx) }, nil

	default:
		return &repo.GormCartStore{DB: gdb}, nil, noop, nil
	}
}

// openBroker falls back to logging events when no Kafka brokers are configured.
func openBroker(ctx context.Context, cfg config.Config, logger *slog.Logger) (events.Broker, func() error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set, events are only logged")
		return events.LogBroker{Logger: logger}, func() error { return nil }
	}

	if err := mykafka.EnsureTopics(ctx, cfg.KafkaBrokers[0], cfg.EventsExchange); err != nil {
		logger.Warn("ensure topics failed", "topic", cfg.EventsExchange, "error", err)
	}

	producer, err := mykafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		logger.Error("kafka producer init error", "error", err)
		os.Exit(1)
	}
	return producer, producer.Close
}

func sqlReady(gdb *gorm.DB) httpserver.ReadyFunc {
	return func(ctx context.Context) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
