package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Log         LogConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Order       OrderConfig
	CloseCheck  CloseCheckConfig
	Relay       RelayConfig
	AutoConfirm AutoConfirmConfig
	Inventory   ClientConfig
	Payment     ClientConfig
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	LockTTL  time.Duration
}

type KafkaConfig struct {
	Brokers         []string
	CloseCheckTopic string
	ConsumerGroup   string
}

type OrderConfig struct {
	TxTimeout        time.Duration
	MaxRetryAttempts int
	CloseDelay       time.Duration
	PublishAttempts  int
	RestoreAttempts  int
	PointsExchange   string
	PointsRoutingKey string
}

type CloseCheckConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

type RelayConfig struct {
	Interval  time.Duration
	BatchSize int
}

type AutoConfirmConfig struct {
	Interval time.Duration
}

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Load reads defaults, then the optional YAML file at path, then
// environment variables (database.host -> DATABASE_HOST).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetInt("server.port"),
			ReadTimeout:     v.GetDuration("server.readTimeout"),
			WriteTimeout:    v.GetDuration("server.writeTimeout"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			MaxOpenConns:    v.GetInt("database.maxOpenConns"),
			MaxIdleConns:    v.GetInt("database.maxIdleConns"),
			ConnMaxLifetime: v.GetDuration("database.connMaxLifetime"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			PoolSize: v.GetInt("redis.poolSize"),
			LockTTL:  v.GetDuration("redis.lockTTL"),
		},
		Kafka: KafkaConfig{
			Brokers:         splitList(v.GetStringSlice("kafka.brokers")),
			CloseCheckTopic: v.GetString("kafka.closeCheckTopic"),
			ConsumerGroup:   v.GetString("kafka.consumerGroup"),
		},
		Order: OrderConfig{
			TxTimeout:        v.GetDuration("order.txTimeout"),
			MaxRetryAttempts: v.GetInt("order.maxRetryAttempts"),
			CloseDelay:       v.GetDuration("order.closeDelay"),
			PublishAttempts:  v.GetInt("order.publishAttempts"),
			RestoreAttempts:  v.GetInt("order.restoreAttempts"),
			PointsExchange:   v.GetString("order.pointsExchange"),
			PointsRoutingKey: v.GetString("order.pointsRoutingKey"),
		},
		CloseCheck: CloseCheckConfig{
			MaxAttempts: v.GetInt("closeCheck.maxAttempts"),
			RetryDelay:  v.GetDuration("closeCheck.retryDelay"),
		},
		Relay: RelayConfig{
			Interval:  v.GetDuration("relay.interval"),
			BatchSize: v.GetInt("relay.batchSize"),
		},
		AutoConfirm: AutoConfirmConfig{
			Interval: v.GetDuration("autoConfirm.interval"),
		},
		Inventory: ClientConfig{
			BaseURL: v.GetString("inventory.baseURL"),
			Timeout: v.GetDuration("inventory.timeout"),
		},
		Payment: ClientConfig{
			BaseURL: v.GetString("payment.baseURL"),
			Timeout: v.GetDuration("payment.timeout"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "10s")
	v.SetDefault("server.shutdownTimeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "orderflow")
	v.SetDefault("database.password", "secret")
	v.SetDefault("database.name", "orderflow")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", "5m")

	v.SetDefault("log.level", "info")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 20)
	v.SetDefault("redis.lockTTL", "30s")

	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.closeCheckTopic", "order-close-check")
	v.SetDefault("kafka.consumerGroup", "orderflow")

	v.SetDefault("order.txTimeout", "5s")
	v.SetDefault("order.maxRetryAttempts", 3)
	v.SetDefault("order.closeDelay", "30m")
	v.SetDefault("order.publishAttempts", 3)
	v.SetDefault("order.restoreAttempts", 3)
	v.SetDefault("order.pointsExchange", "exchange.addpoint")
	v.SetDefault("order.pointsRoutingKey", "addpoint")

	v.SetDefault("closeCheck.maxAttempts", 5)
	v.SetDefault("closeCheck.retryDelay", "1m")

	v.SetDefault("relay.interval", "5s")
	v.SetDefault("relay.batchSize", 100)

	v.SetDefault("autoConfirm.interval", "1h")

	v.SetDefault("inventory.baseURL", "http://localhost:9001")
	v.SetDefault("inventory.timeout", "3s")
	v.SetDefault("payment.baseURL", "http://localhost:9002")
	v.SetDefault("payment.timeout", "3s")
}

func (c *Config) validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must not be empty")
	}
	if c.Order.MaxRetryAttempts < 1 {
		return fmt.Errorf("order.maxRetryAttempts must be at least 1")
	}
	if c.Order.CloseDelay <= 0 {
		return fmt.Errorf("order.closeDelay must be positive")
	}
	if c.CloseCheck.MaxAttempts < 1 {
		return fmt.Errorf("closeCheck.maxAttempts must be at least 1")
	}
	if c.Relay.Interval <= 0 {
		return fmt.Errorf("relay.interval must be positive")
	}
	if c.Relay.BatchSize < 1 {
		return fmt.Errorf("relay.batchSize must be at least 1")
	}
	if c.AutoConfirm.Interval <= 0 {
		return fmt.Errorf("autoConfirm.interval must be positive")
	}
	return nil
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
