package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"orderflow/internal/config"
	mq "orderflow/internal/infrastructure/kafka"
	"orderflow/internal/infrastructure/logger"
	"orderflow/internal/infrastructure/metrics"
	"orderflow/internal/infrastructure/mysql"
	"orderflow/internal/infrastructure/redis"
	"orderflow/internal/order"
	"orderflow/internal/server"
)

const serviceName = "orderflow"

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level, serviceName)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	db, err := mysql.NewConnection(ctx, cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	if err := mysql.Migrate(ctx, db); err != nil {
		zapLogger.Fatal("running migrations", zap.Error(err))
	}

	redisClient, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		zapLogger.Fatal("connecting to redis", zap.Error(err))
	}
	defer redisClient.Close()

	queue := mq.NewQueue(mq.NewWriter(cfg.Kafka.Brokers))
	defer queue.Close()

	reader := mq.NewReader(cfg.Kafka.Brokers, cfg.Kafka.CloseCheckTopic, cfg.Kafka.ConsumerGroup)

	recorder := metrics.New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)

	module := order.NewModule(order.Infrastructure{
		DB:               db,
		Redis:            redisClient,
		Queue:            queue,
		CloseCheckReader: reader,
		Metrics:          recorder,
	}, cfg, zapLogger)

	router := server.NewRouter(module.Controller, recorder.Handler(), zapLogger)
	srv := server.New(cfg.Server, router, zapLogger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)
	g.Go(func() error { return module.Consumer.Run(gctx) })
	g.Go(func() error { return module.Relay.Run(gctx) })
	module.Scheduler.Start(gctx)

	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		module.Scheduler.Stop()
		if err := module.Consumer.Stop(); err != nil {
			zapLogger.Warn("closing close-check reader", zap.Error(err))
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Fatal("service stopped with error", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}
