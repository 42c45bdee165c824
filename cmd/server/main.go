package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/caltrack/internal/auth"
	"github.com/mmynk/caltrack/internal/calendar"
	"github.com/mmynk/caltrack/internal/config"
	"github.com/mmynk/caltrack/internal/metrics"
	"github.com/mmynk/caltrack/internal/middleware"
	"github.com/mmynk/caltrack/internal/rpc"
	"github.com/mmynk/caltrack/internal/service"
	"github.com/mmynk/caltrack/internal/session"
	"github.com/mmynk/caltrack/internal/storage"
	"github.com/mmynk/caltrack/internal/storage/postgres"
	"github.com/mmynk/caltrack/internal/storage/sqlite"
	"github.com/mmynk/caltrack/pkg/logging"
)

// backend is what the server needs from a storage driver.
type backend interface {
	storage.Store
	Ping(ctx context.Context) error
}

func openStore(ctx context.Context, cfg *config.Config) (backend, error) {
	switch cfg.DBDriver {
	case "postgres":
		return postgres.New(ctx, cfg.DBURL)
	default:
		if dir := filepath.Dir(cfg.DBPath); dir != "." && cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		return sqlite.New(cfg.DBPath)
	}
}

func main() {
	logger := logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.InsecureSecret() {
		slog.Warn("JWT_SECRET not set, using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "driver", cfg.DBDriver)

	// Auth
	authenticator := auth.NewPasswordAuthenticator(store)
	var federated *auth.FederatedVerifier
	if cfg.FederatedEnabled() {
		federated = auth.NewFederatedVerifier(cfg.FederatedIssuer, cfg.FederatedSecret, store)
		slog.Info("Federated sign-in enabled", "issuer", cfg.FederatedIssuer)
	}
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	sessions := session.NewRegistry(session.Config{
		Store:        store,
		Clock:        calendar.System(cfg.Location),
		FlushTimeout: cfg.FlushTimeout,
		Logger:       logger,
	}, func() *auth.Identity {
		return auth.NewIdentity(authenticator, federated)
	})

	public := connect.WithInterceptors(
		middleware.MetricsInterceptor(),
		middleware.OptionalAuth(jwtManager, sessions),
		middleware.LoggingInterceptor(logger),
	)
	private := connect.WithInterceptors(
		middleware.MetricsInterceptor(),
		middleware.RequireAuth(jwtManager, sessions),
		middleware.LoggingInterceptor(logger),
	)

	mux := http.NewServeMux()

	// Register Connect services
	authPath, authHandler := rpc.NewAuthServiceHandler(service.NewAuthService(sessions, jwtManager, logger), public)
	mux.Handle(authPath, authHandler)

	profilePath, profileHandler := rpc.NewProfileServiceHandler(service.NewProfileService(logger), private)
	mux.Handle(profilePath, profileHandler)

	diaryPath, diaryHandler := rpc.NewDiaryServiceHandler(service.NewDiaryService(logger), private)
	mux.Handle(diaryPath, diaryHandler)

	weightPath, weightHandler := rpc.NewWeightServiceHandler(service.NewWeightService(logger), private)
	mux.Handle(weightPath, weightHandler)

	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	if cfg.StaticPath != "" {
		staticDir, err := filepath.Abs(cfg.StaticPath)
		if err != nil {
			slog.Error("Failed to resolve static path", "error", err)
			os.Exit(1)
		}
		slog.Info("Serving static files", "path", staticDir)
		mux.HandleFunc("/", staticHandler(staticDir))
	}

	// Add logging and CORS middleware
	loggedHandler := loggingMiddleware(corsMiddleware(mux))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	h2cHandler := h2c.NewHandler(loggedHandler, &http2.Server{})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           h2cHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	// Pending diary writes go out before the store closes.
	if err := sessions.Shutdown(shutdownCtx); err != nil {
		slog.Error("Session flush failed", "error", err)
	}
}

// staticHandler serves the web client, falling back to index.html.
func staticHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Check if this is an API request (Connect RPC)
		if rpc.IsProcedure(r.URL.Path) {
			http.NotFound(w, r)
			return
		}

		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}

		filePath := filepath.Join(staticDir, filepath.Clean(urlPath))
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}

		http.ServeFile(w, r, filePath)
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

		slog.Debug("Request completed",
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
