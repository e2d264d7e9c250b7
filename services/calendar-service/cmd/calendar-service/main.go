package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cardlinkhq/cardlink/libs/config"
	"github.com/cardlinkhq/cardlink/libs/db"
	"github.com/cardlinkhq/cardlink/libs/httpx"
	"github.com/cardlinkhq/cardlink/libs/kafkax"
	otelx "github.com/cardlinkhq/cardlink/libs/otel"
	"github.com/cardlinkhq/cardlink/libs/runtime"
	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/consumer"
	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/handlers"
	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/inbox"
	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/outbox"
	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/profile"
	"github.com/cardlinkhq/cardlink/services/calendar-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "calendar-service")
	port, err := config.Port("PORT", "8084")
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

	repo := storage.NewCalendarRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	inboxRepo := inbox.NewRepository(pool)
	startConsumer := func(topic string) {
		if strings.TrimSpace(topic) == "" {
			return
		}
		consumerCfg := consumer.Config{
			Brokers: config.String("KAFKA_BROKERS", ""),
			GroupID: config.String("KAFKA_GROUP_ID", "calendar-service"),
			Topic:   topic,
		}
		eventConsumer := consumer.New(logger, inboxRepo, consumerCfg, func(ctx context.Context, msg kafka.Message) error {
			// Activation and cancellation both carry the tier limits; the local
			// cache always reflects the latest subscription state.
			var payload struct {
				UserID             string `json:"user_id"`
				Tier               string `json:"tier"`
				MaxMonthlyMeetings int    `json:"max_monthly_meetings"`
			}
			if err := json.Unmarshal(msg.Value, &payload); err != nil {
				logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
				return nil
			}
			if payload.UserID == "" || payload.Tier == "" || payload.MaxMonthlyMeetings <= 0 {
				logger.Error("missing required event fields", "topic", msg.Topic)
				return nil
			}

			tx, err := pool.Begin(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = tx.Rollback(ctx) }()

			if err := repo.UpsertUserEntitlements(ctx, tx, storage.UserEntitlements{
				UserID:             payload.UserID,
				Tier:               payload.Tier,
				MaxMonthlyMeetings: payload.MaxMonthlyMeetings,
			}); err != nil {
				return err
			}
			return tx.Commit(ctx)
		})
		go eventConsumer.Run(ctx)
	}
	startConsumer(config.String("KAFKA_CONSUME_TOPIC", "billing.subscription.activated.v1"))
	startConsumer(config.String("KAFKA_CONSUME_TOPIC_2", "billing.subscription.canceled.v1"))

	profileProvider, err := profile.NewProvider(config.String("CARD_GRPC_ADDR", ""))
	if err != nil {
		logger.Error("card profile provider init failed; owner info disabled", "err", err)
		profileProvider = nil
	}

	availabilityHandler := handlers.NewAvailabilityHandler(repo, logger, profileProvider)
	preferencesHandler := handlers.NewPreferencesHandler(repo, logger)
	meetingHandler := handlers.NewMeetingHandler(repo, outboxRepo, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)

	// Public endpoints are reachable without auth and take the rate limiter;
	// owner endpoints sit behind the gateway.
	publicLimit := publicRateLimiter(ctx, logger)
	mux.Handle("/api/v1/public/availability", publicLimit(http.HandlerFunc(availabilityHandler.PublicAvailability)))
	mux.Handle("/api/v1/public/meetings", publicLimit(http.HandlerFunc(meetingHandler.Book)))
	mux.HandleFunc("/api/v1/calendar/preferences", preferencesHandler.Handle)
	mux.HandleFunc("/api/v1/meetings", meetingHandler.List)
	mux.HandleFunc("/api/v1/meetings/cancel", meetingHandler.Cancel)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "calendar")
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

func publicRateLimiter(ctx context.Context, logger *slog.Logger) httpx.Middleware {
	limitPerMinute := 60
	if v, err := strconv.Atoi(config.String("RATE_LIMIT_PER_MINUTE", "60")); err == nil && v > 0 {
		limitPerMinute = v
	}

	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		redisDB := 0
		if v, err := strconv.Atoi(config.String("REDIS_DB", "0")); err == nil && v >= 0 {
			redisDB = v
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		go func() {
			<-ctx.Done()
			_ = rdb.Close()
		}()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
		return rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	}

	rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
	logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	return rl.Middleware()
}
