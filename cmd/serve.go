package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"storefront/internal/auth"
	"storefront/internal/blob"
	"storefront/internal/cache"
	"storefront/internal/cart"
	"storefront/internal/config"
	"storefront/internal/events"
	httpapi "storefront/internal/http"
	"storefront/internal/orderlog"
	"storefront/internal/orderlog/sqlite"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

// storage набор репозиториев выбранного бэкенда
type storage struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	banners  repository.BannerRepository
	tx       repository.TxManager
	close    func(ctx context.Context) error
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	// каталог статичный, всегда в памяти
	store := repository.NewMemoryStore()
	if err := repository.SeedCatalog(ctx, store); err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	if cfg.Storage != config.StorageMongo {
		return &storage{
			products: store,
			orders:   repository.NewMemoryOrders(store),
			banners:  repository.NewMemoryBanners(store),
			tx:       repository.NewMemoryTx(store),
			close:    func(context.Context) error { return nil },
		}, nil
	}

	client, err := repository.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDatabase)
	orders := repository.NewMongoOrders(db)
	if err := orders.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &storage{
		products: store,
		orders:   orders,
		banners:  repository.NewMongoBanners(db),
		tx:       repository.NewMongoTx(client),
		close:    client.Disconnect,
	}, nil
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, func() error, error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache(cfg.ServiceName), func() error { return nil }, nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewRedisCache(client, cfg.ServiceName), client.Close, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := telemetry.InitLogger(os.Stdout, cfg.LogLevel)

	if cfg.OTelEnabled {
		shutdown, err := telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.OTelEndpoint, cfg.Environment)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("tracer shutdown", "error", err)
			}
		}()
	}

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.close(context.Background()) }()

	kv, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeCache() }()

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() { _ = kp.Close() }()
		publisher = kp
	}

	var history orderlog.Repository
	if cfg.HistoryPath != "" {
		h, err := sqlite.Open(cfg.HistoryPath)
		if err != nil {
			return err
		}
		defer func() { _ = h.Close() }()
		history = h
	}

	authSvc, err := auth.NewService(auth.Config{
		Secret:        []byte(cfg.JWTSecret),
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
	})
	if err != nil {
		return err
	}
	authz, err := auth.NewAuthorizer()
	if err != nil {
		return err
	}
	media, err := blob.NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		return err
	}

	carts := cart.NewStore(kv, cfg.CartTTL)
	srv := httpapi.NewServer(httpapi.Deps{
		Auth:       authSvc,
		Authorizer: authz,
		Products:   service.NewProductService(st.products),
		Orders:     service.NewOrderService(st.orders, st.tx, history, publisher, logger),
		Checkout: service.NewCheckoutService(service.CheckoutConfig{
			Orders:          st.orders,
			Carts:           carts,
			Sessions:        kv,
			Publisher:       publisher,
			VerificationTTL: cfg.VerificationTTL,
			Logger:          logger,
		}),
		Banners:    service.NewBannerService(st.banners, media, logger),
		Carts:      carts,
		MediaDir:   media.Dir(),
		MediaURL:   cfg.MediaBaseURL,
		LoginRPS:   cfg.LoginRPS,
		LoginBurst: cfg.LoginBurst,
		Logger:     logger,
	})

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Engine(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr, "storage", cfg.Storage)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(sctx); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
