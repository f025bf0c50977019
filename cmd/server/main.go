package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/groupcal/internal/auth"
	"github.com/mmynk/groupcal/internal/config"
	"github.com/mmynk/groupcal/internal/invite"
	"github.com/mmynk/groupcal/internal/metrics"
	"github.com/mmynk/groupcal/internal/middleware"
	"github.com/mmynk/groupcal/internal/notify"
	"github.com/mmynk/groupcal/internal/restapi"
	"github.com/mmynk/groupcal/internal/service"
	"github.com/mmynk/groupcal/internal/storage/backend"
	"github.com/mmynk/groupcal/pkg/api"
	"github.com/mmynk/groupcal/pkg/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("GROUPCAL_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger := slog.Default()

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	store, err := backend.Open(openCtx, cfg.Store)
	cancel()
	if err != nil {
		return err
	}
	defer store.Close()

	notifier, closeNotifier := newNotifier(cfg.Notify, logger)
	defer closeNotifier()

	m := metrics.New()

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)

	inviteOpts := []invite.Option{invite.WithMetrics(m), invite.WithLogger(logger)}
	manager := invite.NewManager(store, inviteOpts...)
	joiner := invite.NewJoiner(store, store, notifier, inviteOpts...)

	mux := http.NewServeMux()

	// Auth interceptor runs first so the logging interceptor sees the caller.
	authPath, authHandler := api.NewAuthServiceHandler(
		service.NewAuthService(authenticator, store, jwtManager, logger),
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager), middleware.LoggingInterceptor(m)),
	)
	mux.Handle(authPath, authHandler)

	groupPath, groupHandler := api.NewGroupServiceHandler(
		service.NewGroupService(store, manager, joiner, logger),
		connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor(m)),
	)
	mux.Handle(groupPath, groupHandler)

	mux.Handle("/metrics", m.Handler())

	if cfg.Store.ServeREST {
		mux.Handle("/store/", restapi.NewRouter(store, "/store", cfg.Store.ServeRESTToken))
		slog.Info("Serving REST store API", "path", "/store/")
	}

	// Add logging and CORS middleware
	loggedHandler := loggingMiddleware(corsMiddleware(mux))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h2c.NewHandler(loggedHandler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", cfg.HTTPAddr, "store", cfg.Store.Backend, "notifier", cfg.Notify.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newNotifier(cfg config.NotifyConfig, logger *slog.Logger) (notify.Notifier, func()) {
	if cfg.Backend != config.NotifierRedis {
		return notify.NewLogNotifier(logger), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	slog.Info("Redis notifier enabled", "addr", cfg.RedisAddr, "channel", cfg.RedisChannel)
	return notify.NewRedisNotifier(rdb, cfg.RedisChannel), func() {
		if err := rdb.Close(); err != nil {
			slog.Warn("Failed to close redis client", "error", err)
		}
	}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		slog.Debug("Request received",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		next.ServeHTTP(w, r)

		slog.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
