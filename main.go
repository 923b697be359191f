package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/novapay/gateway/config"
	"github.com/novapay/gateway/delivery"
	"github.com/novapay/gateway/intake"
	"github.com/novapay/gateway/logger"
	"github.com/novapay/gateway/metrics"
	"github.com/novapay/gateway/middleware"
	"github.com/novapay/gateway/queue"
	"github.com/novapay/gateway/signer"
	"github.com/novapay/gateway/store"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("gateway: failed to load config: %v", err)
	}

	logger.Initialize(cfg.Environment)
	defer logger.Log.Sync()

	db, err := store.Connect(cfg)
	if err != nil {
		logger.Log.Fatal("connect to postgres failed", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		logger.Log.Fatal("migrate schema failed", zap.Error(err))
	}
	st := store.New(db, cfg.WebhookMaxRetries)

	redisClient, err := queue.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Log.Fatal("connect to redis failed", zap.Error(err))
	}
	q := queue.New(redisClient, logger.Log)

	metricsClient, err := metrics.New(ctx, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	if err != nil {
		logger.Log.Fatal("init cloudwatch metrics failed", zap.Error(err))
	}

	sgn := signer.New()

	processor := delivery.NewPaymentProcessor(st, metricsClient, cfg)
	dispatcher := delivery.NewWebhookDispatcher(st, sgn, metricsClient, cfg)
	poller := delivery.NewPoller(st, cfg)

	go processor.Run(ctx, q, cfg.PaymentWorkers)
	go dispatcher.Run(ctx, q, cfg.WebhookWorkers)
	go poller.Run(ctx, q)
	go runIdempotencyCleanup(ctx, st)

	gin.SetMode(ginMode(cfg.Environment))
	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger(), middleware.SecurityHeaders(), middleware.RateLimit(), middleware.CORS(cfg.AllowedOrigins), middleware.Metrics(metricsClient))

	handlers := intake.New(st, q, cfg)
	intake.RegisterRoutes(r, handlers)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	go func() {
		logger.Log.Info("gateway listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("http server shutdown error", zap.Error(err))
	}
}

func ginMode(env string) string {
	if env == "production" {
		return gin.ReleaseMode
	}
	return gin.DebugMode
}

func runIdempotencyCleanup(ctx context.Context, st *store.Store) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := st.CleanupExpiredIdempotencyKeys(ctx); err != nil {
				logger.Error(ctx, "idempotency cleanup failed", err)
			} else if n > 0 {
				logger.Log.Info("cleaned up expired idempotency keys", zap.Int64("count", n))
			}
		}
	}
}
