package order

import (
	"database/sql"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"orderflow/internal/config"
	"orderflow/internal/infrastructure/httpclient"
	"orderflow/internal/infrastructure/id"
	"orderflow/internal/infrastructure/inventory"
	mq "orderflow/internal/infrastructure/kafka"
	"orderflow/internal/infrastructure/payment"
	"orderflow/internal/infrastructure/redis"
	"orderflow/internal/order/controller"
	"orderflow/internal/order/interfaces"
	"orderflow/internal/order/relay"
	"orderflow/internal/order/repository"
	"orderflow/internal/order/scheduler"
	"orderflow/internal/order/service"
	"orderflow/internal/order/usecase"
)

const sideEffectBackoff = 100 * time.Millisecond

// Infrastructure holds the shared clients the order module runs on.
type Infrastructure struct {
	DB               *sql.DB
	Redis            goredis.Cmdable
	Queue            *mq.Queue
	CloseCheckReader interfaces.MessageReader
	Metrics          service.Recorder
}

type Module struct {
	Controller *controller.OrderController
	Service    *service.LifecycleService
	Consumer   *interfaces.TimeoutConsumer
	Relay      *relay.TaskRelay
	Scheduler  *scheduler.AutoConfirmScheduler
}

func NewModule(infra Infrastructure, cfg *config.Config, logger *zap.Logger) *Module {
	store := repository.NewStore(infra.DB, logger, cfg.Order.TxTimeout, cfg.Order.MaxRetryAttempts)

	lifecycleSvc := service.NewLifecycleService(service.Dependencies{
		Store:     store,
		Carts:     redis.NewCartStore(infra.Redis),
		Inventory: inventory.NewClient(httpclient.New(cfg.Inventory.Timeout), cfg.Inventory.BaseURL),
		Payments:  payment.NewClient(httpclient.New(cfg.Payment.Timeout), cfg.Payment.BaseURL),
		Queue:     infra.Queue,
		Locker:    redis.NewOrderLocker(infra.Redis, cfg.Redis.LockTTL, logger),
		IDs:       id.NewGenerator(),
		Metrics:   infra.Metrics,
	}, logger, service.Options{
		CloseCheckTopic:  cfg.Kafka.CloseCheckTopic,
		CloseDelay:       cfg.Order.CloseDelay,
		PublishAttempts:  cfg.Order.PublishAttempts,
		RestoreAttempts:  cfg.Order.RestoreAttempts,
		RetryBackoff:     sideEffectBackoff,
		PointsExchange:   cfg.Order.PointsExchange,
		PointsRoutingKey: cfg.Order.PointsRoutingKey,
	})

	closeCheckUC := usecase.NewCloseCheckUseCase(lifecycleSvc, logger, cfg.CloseCheck.MaxAttempts, cfg.CloseCheck.RetryDelay)

	return &Module{
		Controller: controller.NewOrderController(lifecycleSvc, logger),
		Service:    lifecycleSvc,
		Consumer:   interfaces.NewTimeoutConsumer(infra.CloseCheckReader, closeCheckUC, logger.Named("close-check")),
		Relay:      relay.NewTaskRelay(store, infra.Queue, logger.Named("relay"), cfg.Relay.Interval, cfg.Relay.BatchSize),
		Scheduler:  scheduler.NewAutoConfirmScheduler(lifecycleSvc, logger.Named("auto-confirm"), cfg.AutoConfirm.Interval),
	}
}
