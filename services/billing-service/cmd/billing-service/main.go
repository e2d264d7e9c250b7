package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cardlinkhq/cardlink/libs/config"
	"github.com/cardlinkhq/cardlink/libs/db"
	"github.com/cardlinkhq/cardlink/libs/httpx"
	"github.com/cardlinkhq/cardlink/libs/kafkax"
	otelx "github.com/cardlinkhq/cardlink/libs/otel"
	"github.com/cardlinkhq/cardlink/libs/runtime"
	"github.com/cardlinkhq/cardlink/services/billing-service/internal/handlers"
	"github.com/cardlinkhq/cardlink/services/billing-service/internal/outbox"
	"github.com/cardlinkhq/cardlink/services/billing-service/internal/reconcile"
	"github.com/cardlinkhq/cardlink/services/billing-service/internal/storage"
	"github.com/cardlinkhq/cardlink/services/billing-service/internal/subscriptions"
)

func main() {
	service := config.String("SERVICE_NAME", "billing-service")
	port, err := config.Port("PORT", "8082")
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

	repo := storage.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	subSvc := subscriptions.New(repo, outboxRepo)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	h := handlers.New(repo, outboxRepo, logger, handlers.Config{
		StripeWebhookSecret:           config.String("STRIPE_WEBHOOK_SECRET", ""),
		StripeWebhookToleranceSeconds: config.Int("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300),
		StripeSecretKey:               config.String("STRIPE_SECRET_KEY", ""),
		StripePriceStarter:            config.String("STRIPE_PRICE_STARTER", ""),
		StripePricePro:                config.String("STRIPE_PRICE_PRO", ""),
		CheckoutSuccessURL:            config.String("CHECKOUT_SUCCESS_URL", ""),
		CheckoutCancelURL:             config.String("CHECKOUT_CANCEL_URL", ""),
	})
	mux.HandleFunc("/api/v1/billing/checkout", h.Checkout)
	mux.HandleFunc("/api/v1/billing/checkout/session", h.CheckoutSessionStatus)
	mux.HandleFunc("/api/v1/billing/checkout/session/ack", h.AckCheckoutReturn)
	mux.HandleFunc("/api/v1/billing/subscription", h.GetSubscription)
	mux.HandleFunc("/api/v1/billing/subscription/cancel", h.CancelSubscription)
	mux.HandleFunc("/api/v1/billing/webhooks/local", h.LocalWebhook)
	mux.HandleFunc("/api/v1/billing/webhooks/stripe", h.StripeWebhook)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "billing")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	// Stripe reconciliation: periodically self-heal subscription state if
	// webhooks are missed.
	if config.Bool("BILLING_STRIPE_RECONCILE_ENABLED", false) {
		interval := config.Duration("BILLING_STRIPE_RECONCILE_INTERVAL", 5*time.Minute)
		rec := reconcile.NewStripeReconciler(pool, repo, subSvc, logger, reconcile.StripeReconcilerConfig{
			StripeSecretKey: config.String("STRIPE_SECRET_KEY", ""),
			Interval:        interval,
			BatchSize:       config.Int("BILLING_STRIPE_RECONCILE_BATCH_SIZE", 50),
			AdvisoryLockKey: int64(config.Int("BILLING_STRIPE_RECONCILE_LOCK_KEY", 7101001)),
		})
		go rec.Run(ctx, interval)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
