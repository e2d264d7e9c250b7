package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cardlinkhq/cardlink/libs/config"
	"github.com/cardlinkhq/cardlink/libs/db"
	"github.com/cardlinkhq/cardlink/libs/httpx"
	"github.com/cardlinkhq/cardlink/libs/kafkax"
	otelx "github.com/cardlinkhq/cardlink/libs/otel"
	"github.com/cardlinkhq/cardlink/libs/runtime"
	"github.com/cardlinkhq/cardlink/services/card-service/internal/handlers"
	"github.com/cardlinkhq/cardlink/services/card-service/internal/outbox"
	"github.com/cardlinkhq/cardlink/services/card-service/internal/sessions"
	"github.com/cardlinkhq/cardlink/services/card-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "card-service")
	port, err := config.Port("PORT", "8081")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	signer, err := buildSigner()
	if err != nil {
		logger.Error("token signer init failed", "err", err)
		panic(err)
	}

	users := storage.NewUserRepository(pool)
	refreshRepo := sessions.NewRefreshRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	refreshTTL := config.Duration("REFRESH_TOKEN_TTL", 30*24*time.Hour)
	authHandler := handlers.NewAuthHandler(signer, pool, users, outboxRepo, refreshRepo, refreshTTL)
	cardHandler := handlers.NewCardHandler(signer, users, logger)
	contactHandler := handlers.NewContactHandler(signer, pool, users, outboxRepo, logger)
	walletHandler := handlers.NewWalletHandler(
		signer,
		users,
		strings.TrimRight(config.String("WALLET_BASE_URL", "https://cards.cardlink.app"), "/"),
		config.Duration("WALLET_PASS_TTL", 24*time.Hour),
		logger,
	)

	if err := startGrpcServer(ctx, logger, users); err != nil {
		logger.Error("grpc server start failed", "err", err)
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)

	publicLimit := publicRateLimiter(logger)
	mux.HandleFunc("/api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("/api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("/api/v1/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("/api/v1/auth/me", authHandler.Me)
	mux.HandleFunc("/.well-known/jwks.json", authHandler.JWKS)
	mux.HandleFunc("/api/v1/card", cardHandler.Handle)
	mux.Handle("/api/v1/public/cards", publicLimit(http.HandlerFunc(cardHandler.PublicBySlug)))
	mux.HandleFunc("/api/v1/contacts", contactHandler.Handle)
	mux.HandleFunc("/api/v1/card/wallet-pass", walletHandler.IssuePass)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithCORS(corsPolicy()),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "card")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// buildSigner prefers RS256 when a PEM key is configured so wallet passes
// and JWKS clients can verify offline; HS256 stays the dev default.
func buildSigner() (handlers.TokenSigner, error) {
	if pemData := config.String("JWT_PRIVATE_KEY_PEM", ""); strings.TrimSpace(pemData) != "" {
		return handlers.NewRS256Signer([]byte(pemData), config.String("JWT_KEY_ID", ""))
	}
	secret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	return handlers.NewHS256Signer(secret), nil
}

func corsPolicy() httpx.CORSPolicy {
	origins := strings.Split(config.String("CORS_ALLOWED_ORIGINS", ""), ",")
	return httpx.CORSPolicy{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}
}

func publicRateLimiter(logger *slog.Logger) httpx.Middleware {
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
	logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	return rl.Middleware()
}
