package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/easyshop/internal/cart/cache"
	"github.com/fjod/easyshop/internal/cart/poller"
	cartrepo "github.com/fjod/easyshop/internal/cart/repository"
	"github.com/fjod/easyshop/internal/cart/service"
	"github.com/fjod/easyshop/internal/catalog"
	"github.com/fjod/easyshop/internal/checkout"
	"github.com/fjod/easyshop/internal/checkout/lock"
	"github.com/fjod/easyshop/internal/config"
	"github.com/fjod/easyshop/internal/database"
	h "github.com/fjod/easyshop/internal/http"
	"github.com/fjod/easyshop/internal/idempotency"
	"github.com/fjod/easyshop/internal/logger"
	"github.com/fjod/easyshop/internal/metrics"
	"github.com/fjod/easyshop/internal/publisher"
	"github.com/fjod/easyshop/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres: catalog, profiles, orders, outbox
	db, err := database.Open(ctx, database.Credentials{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		DBName:   cfg.Postgres.DBName,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.RunMigrations(db); err != nil {
		return err
	}
	log.Info("connected to postgres", zap.String("host", cfg.Postgres.Host))

	// Mongo: carts
	mongoDB, err := cartrepo.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer func() {
		if err := cartrepo.Disconnect(mongoDB); err != nil {
			log.Warn("mongodb disconnect failed", zap.Error(err))
		}
	}()
	carts := cartrepo.NewMongoRepository(mongoDB)
	if err := carts.CreateIndexes(ctx); err != nil {
		return err
	}
	log.Info("connected to mongodb", zap.String("database", cfg.MongoDatabase))

	// Redis: cart cache, user locks, idempotency keys
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	products := repository.NewProductRepository(db)
	profiles := repository.NewProfileRepository(db)
	orders := repository.NewOrderRepository(db)

	prices := catalog.NewBreakerLookup(products, catalog.BreakerSettings{
		MaxFailures: cfg.BreakerMaxFailures,
		Timeout:     cfg.BreakerTimeout,
	}, log)
	locker, err := lock.New(cfg.LockBackend, redisClient, cfg.LockTTL, cfg.LockWait, log)
	if err != nil {
		return err
	}
	log.Info("user lock backend", zap.String("backend", cfg.LockBackend))
	cartService := service.NewCartService(carts, cache.NewRedisCache(redisClient, cfg.CartCacheTTL), prices, locker, log)

	orchestrator := checkout.NewOrchestrator(cartService, profiles, repository.NewTransactor(db), locker,
		checkout.WithLogger(log),
		checkout.WithMetrics(m),
	)

	router := h.NewRouter(h.RouterConfig{
		Cart:     h.NewCartHandler(cartService, cfg.RequestTimeout, log),
		Orders:   h.NewOrdersHandler(orchestrator, orders, idempotency.NewStore(redisClient, cfg.IdempotencyTTL), cfg.RequestTimeout, log),
		Products: h.NewProductHandler(products, cfg.RequestTimeout, log),
		Profiles: h.NewProfileHandler(profiles, cfg.RequestTimeout, log),
		Health: map[string]h.HealthCheck{
			"postgres": db.PingContext,
			"mongodb":  func(ctx context.Context) error { return mongoDB.Client().Ping(ctx, nil) },
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
		Metrics:            m,
		Gatherer:           reg,
		Log:                log,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	outbox := publisher.NewOutboxPoller(
		repository.NewOutboxRepository(db),
		publisher.NewWriter(cfg.OrderEventsTopic, cfg.KafkaBrokers...),
		cfg.OutboxPollInterval, log, m)
	defer outbox.Close()

	cleanup := poller.NewPoller(
		poller.NewReader(cfg.KafkaBrokers, cfg.OrderEventsTopic, cfg.CartConsumerGroup),
		carts, cache.NewRedisCache(redisClient, cfg.CartCacheTTL), log, m)
	defer cleanup.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("storefront starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		outbox.Run(gctx)
		return nil
	})
	g.Go(func() error {
		cleanup.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server exited")
	return nil
}
