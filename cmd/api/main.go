// cmd/api/main.go
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

	"github.com/redis/go-redis/v9"

	redis_a "github.com/mcerda/storefront-be/internal/adapters/redis_adapter"
	"github.com/mcerda/storefront-be/internal/adapters/remote"
	"github.com/mcerda/storefront-be/internal/core/domain"
	"github.com/mcerda/storefront-be/internal/core/ports"
	"github.com/mcerda/storefront-be/internal/core/services"
	"github.com/mcerda/storefront-be/internal/handlers"
	"github.com/mcerda/storefront-be/internal/handlers/middleware"
	"github.com/mcerda/storefront-be/internal/pkg/config"
	"github.com/mcerda/storefront-be/internal/pkg/logger"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Initialize structured logger
	slogger := logger.SetupLogger("debug", "json")

	slogger.Info("starting storefront cart service",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
	)

	// Load configuration
	cfg, err := config.Load(slogger.Logger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Reconfigure logger with loaded settings
	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	slogger.Info("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("remote_cart_url", cfg.Remote.BaseURL),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize dependencies
	deps, err := initializeDependencies(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.cleanup()

	// Evict idle session carts in the background
	go deps.manager.RunJanitor(ctx, cfg.Cart.JanitorInterval)

	// Setup HTTP server
	server := setupHTTPServer(cfg, deps, slogger)

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("starting HTTP server",
			slog.String("address", cfg.GetServerAddress()),
		)
		serverErrors <- server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server error", slog.String("error", err.Error()))
		}
	case sig := <-shutdown:
		slogger.Info("shutdown signal received",
			slog.String("signal", sig.String()),
		)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer shutdownCancel()

		// Gracefully shutdown HTTP server
		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
			server.Close()
		}

		// Let in-flight cart settlements finish before exit, so no
		// optimistic mutation is silently lost.
		if err := deps.manager.FlushAll(shutdownCtx); err != nil {
			slogger.Error("failed to flush pending cart operations", slog.String("error", err.Error()))
		}

		slogger.Info("server shutdown complete")
	}
}

// dependencies holds all application dependencies
type dependencies struct {
	redisClient     *redis.Client
	remoteClient    *remote.Client
	manager         *services.Manager
	draftStore      ports.DraftRepository
	sessionStore    ports.SessionService
	cartHandler     *handlers.CartHandler
	checkoutHandler *handlers.CheckoutHandler
	healthHandler   *handlers.HealthHandler
}

func (d *dependencies) cleanup() {
	if d.redisClient != nil {
		d.redisClient.Close()
	}
}

func initializeDependencies(ctx context.Context, cfg *config.Config, slogger *logger.Logger) (*dependencies, error) {
	deps := &dependencies{}
	log := slogger.Logger

	// Initialize Redis client
	log.Info("connecting to Redis",
		slog.String("host", cfg.Redis.Host),
		slog.String("port", cfg.Redis.Port),
	)

	redisClient := redis.NewClient(&redis.Options{
		Addr:            cfg.GetRedisAddress(),
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		MaxRetries:      cfg.Redis.MaxRetries,
		MinRetryBackoff: cfg.Redis.MinRetryBackoff,
		MaxRetryBackoff: cfg.Redis.MaxRetryBackoff,
		DialTimeout:     cfg.Redis.DialTimeout,
		ReadTimeout:     cfg.Redis.ReadTimeout,
		WriteTimeout:    cfg.Redis.WriteTimeout,
		PoolSize:        cfg.Redis.PoolSize,
		MinIdleConns:    cfg.Redis.MinIdleConns,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	deps.redisClient = redisClient

	// Initialize remote cart client
	deps.remoteClient = remote.NewClient(remote.Config{
		BaseURL: cfg.Remote.BaseURL,
		Timeout: cfg.Remote.Timeout,
	}, log)

	// Initialize session cart manager. Settlement outcomes are logged;
	// the client observes them through line states on the next snapshot.
	syncCfg := services.SyncerConfig{
		RetryMax:      uint64(cfg.Remote.RetryMax),
		RetryInterval: cfg.Remote.RetryInterval,
	}
	onEvent := func(ev domain.SyncEvent) {
		log.Info("cart mutation settled",
			slog.String("type", string(ev.Type)),
			slog.String("key", ev.Key.String()),
			slog.String("op", ev.Op),
			slog.String("reason", ev.Reason))
	}
	deps.manager = services.NewManager(
		deps.remoteClient.WithSession,
		syncCfg,
		cfg.Cart.SessionIdleTTL,
		onEvent,
		log,
	)

	// Initialize Redis-backed stores
	deps.draftStore = redis_a.NewDraftStore(redisClient, cfg.Cart.DraftTTL, log)
	deps.sessionStore = redis_a.NewSessionStore(redisClient, log)

	// Initialize services
	rules := domain.PricingRules{
		TaxRate:     cfg.Pricing.TaxRate,
		ShippingFee: cfg.Pricing.ShippingFee,
		Precision:   cfg.Pricing.Precision,
	}
	assembler := services.NewCheckoutAssembler(deps.draftStore, rules, log)

	// Initialize handlers
	deps.cartHandler = handlers.NewCartHandler(deps.manager, rules, log)
	deps.checkoutHandler = handlers.NewCheckoutHandler(deps.manager, assembler, deps.draftStore, deps.sessionStore, log)
	deps.healthHandler = handlers.NewHealthHandler(redisClient, deps.remoteClient, deps.manager, cfg, log)

	log.Info("all dependencies initialized successfully")
	return deps, nil
}

func setupHTTPServer(cfg *config.Config, deps *dependencies, slogger *logger.Logger) *http.Server {
	mux := http.NewServeMux()

	// Setup middleware chain, applied in reverse order (innermost first)
	var handler http.Handler = mux
	handler = middleware.ContentTypeJSON(handler)

	if cfg.App.Environment != "test" {
		handler = middleware.RequestID(handler)
		handler = middleware.Logger(slogger)(handler)
		handler = middleware.Recovery(slogger.Logger)(handler)
	}

	if cfg.Security.RateLimitRequests > 0 {
		handler = middleware.RateLimit(cfg.Security.RateLimitRequests, cfg.Security.RateLimitDuration)(handler)
	}

	if len(cfg.Security.AllowedOrigins) > 0 {
		handler = middleware.CORS(cfg.Security.AllowedOrigins)(handler)
	}

	handler = middleware.SecureHeaders(handler)

	registerRoutes(mux, deps, cfg)

	return &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(slogger.Handler(), slog.LevelError),
	}
}

func registerRoutes(mux *http.ServeMux, deps *dependencies, cfg *config.Config) {
	apiV1 := "/api/v1"

	// Health and readiness endpoints
	if cfg.Server.EnableHealthCheck {
		mux.HandleFunc("GET /health", deps.healthHandler.Health)
		mux.HandleFunc("GET /health/live", deps.healthHandler.Liveness)
		mux.HandleFunc("GET /health/ready", deps.healthHandler.Readiness)
	}

	// Cart and checkout routes require a session credential
	session := func(h http.HandlerFunc) http.Handler {
		return middleware.SessionID(h)
	}

	// Cart endpoints
	mux.Handle("GET "+apiV1+"/cart", session(deps.cartHandler.GetCart))
	mux.Handle("POST "+apiV1+"/cart/items", session(deps.cartHandler.AddItem))
	mux.Handle("PUT "+apiV1+"/cart/items/{product}/{variant}", session(deps.cartHandler.UpdateQuantity))
	mux.Handle("PUT "+apiV1+"/cart/items/{product}", session(deps.cartHandler.UpdateQuantity))
	mux.Handle("DELETE "+apiV1+"/cart/items/{product}/{variant}", session(deps.cartHandler.RemoveItem))
	mux.Handle("DELETE "+apiV1+"/cart/items/{product}", session(deps.cartHandler.RemoveItem))
	mux.Handle("POST "+apiV1+"/cart/refresh", session(deps.cartHandler.RefreshCart))

	// Checkout endpoints
	mux.Handle("POST "+apiV1+"/checkout", session(deps.checkoutHandler.Checkout))
	mux.Handle("GET "+apiV1+"/checkout/drafts/{id}", session(deps.checkoutHandler.GetDraft))
}
