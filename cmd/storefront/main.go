package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/events"
	"github.com/fjod/storefront/internal/health"
	apphttp "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/orders"
	"github.com/fjod/storefront/internal/paypal"
	"github.com/fjod/storefront/internal/session"
	"github.com/fjod/storefront/internal/sqlitedb"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	// Catalog
	db, err := sqlitedb.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := sqlitedb.RunMigrations(db, cfg.MigrationsPath, "schema_migrations_products"); err != nil {
		return fmt.Errorf("catalog migrations: %w", err)
	}
	products := catalog.New(catalog.NewRepository(db))
	log.Info("catalog ready", "db_path", cfg.DBPath)

	// Orders
	ledger, err := openLedger(cfg, db)
	if err != nil {
		return err
	}
	defer ledger.Close()

	// Carts
	store, closeStore, err := openCartStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	cartService := cart.NewService(store, products, log)

	// Events
	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers...)
		log.Info("publishing order events", "brokers", cfg.KafkaBrokers, "topic", events.TopicOrdersCaptured)
	}
	defer publisher.Close()

	if cfg.PayPal.ClientID == "" || cfg.PayPal.ClientSecret == "" {
		log.Warn("PayPal credentials not set, checkout will fail")
	}
	gateway := paypal.NewClient(cfg.PayPal)
	checkoutService := checkout.NewService(cartService, gateway, ledger, publisher, cfg.PayPal.Currency, log)

	secret := cfg.SessionSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}
	sessions, err := session.NewManager(secret, cfg.CookieSecure)
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}
	if cfg.AdminToken == "" {
		log.Warn("ADMIN_TOKEN not set, admin login is disabled")
	}

	pages := apphttp.NewPageHandler(apphttp.SiteInfo{
		DiscordInvite:  cfg.DiscordInvite,
		Notice:         cfg.NoticeText,
		PayPalClientID: cfg.PayPal.ClientID,
		Currency:       cfg.PayPal.Currency,
	}, products, cartService, ledger, log)

	router := apphttp.NewRouter(apphttp.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		StaticDir:          cfg.StaticDir,
	}, apphttp.Handlers{
		Cart:     apphttp.NewCartHandler(cartService, log),
		Checkout: apphttp.NewCheckoutHandler(checkoutService, log),
		Pages:    pages,
		Admin: apphttp.NewAdminHandler(cfg.AdminToken, products, ledger,
			apphttp.NewRateLimiter(cfg.AdminLoginRatePerMinute), pages, log),
		Sessions: sessions,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	var healthServer *health.Server
	if cfg.GRPCHealthPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCHealthPort)
		if err != nil {
			return fmt.Errorf("listen grpc health: %w", err)
		}
		healthServer = health.NewServer(readiness(db), 10*time.Second, log)
		go healthServer.Watch(watchCtx)
		go func() {
			log.Info("grpc health listening", "port", cfg.GRPCHealthPort)
			if err := healthServer.Serve(lis); err != nil {
				log.Error("grpc health server failed", "error", err)
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("storefront listening", "port", cfg.HTTPPort, "cart_backend", cfg.CartBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	stopWatch()
	if healthServer != nil {
		healthServer.Shutdown()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info("storefront stopped")
	return nil
}

func openLedger(cfg *config.Config, db *sql.DB) (orders.Ledger, error) {
	if cfg.Orders.Enabled() {
		ledger, err := orders.NewPostgresLedger(&orders.Credentials{
			Host:              cfg.Orders.Host,
			Port:              cfg.Orders.Port,
			User:              cfg.Orders.User,
			Password:          cfg.Orders.Password,
			DBName:            cfg.Orders.DBName,
			MigrationsDirPath: cfg.Orders.MigrationsPath,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres orders ledger: %w", err)
		}
		slog.Info("orders stored in postgres", "host", cfg.Orders.Host, "db", cfg.Orders.DBName)
		return ledger, nil
	}

	ledger, err := orders.NewSQLiteLedger(db, cfg.OrdersMigrationsPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite orders ledger: %w", err)
	}
	return ledger, nil
}

func openCartStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (cart.Store, func(), error) {
	switch cfg.CartBackend {
	case config.CartBackendSession, "":
		return session.NewCartStore(), func() {}, nil

	case config.CartBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("carts stored in redis", "addr", cfg.RedisAddr)
		return cart.NewRedisStore(client), func() { client.Close() }, nil

	case config.CartBackendMongo:
		mongoDB, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, fmt.Errorf("mongo connection failed: %w", err)
		}
		store := cart.NewMongoStore(mongoDB)
		if err := store.CreateIndexes(ctx); err != nil {
			mongoDB.Client().Disconnect(ctx)
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		log.Info("carts stored in mongodb", "db", cfg.MongoDBName)
		return store, func() { mongoDB.Client().Disconnect(context.Background()) }, nil

	default:
		return nil, nil, fmt.Errorf("unknown CART_BACKEND %q", cfg.CartBackend)
	}
}

// readiness is healthy while the catalog database answers.
func readiness(db *sql.DB) health.Checker {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	}
}
