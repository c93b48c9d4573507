// Package config читает настройки процесса из окружения и описание
// каталога и автоматов из YAML.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"goods_market/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type Config struct {
	App      App
	Postgres Postgres
	Redis    Redis
	HTTP     HTTP
	Probe    Probe
	Metrics  Metrics
	Queue    Queue
	Economy  Economy
	Shop     Shop
}

type App struct {
	Name      string `env:"APP_NAME"    envDefault:"goods-market"`
	Version   string `env:"APP_VERSION" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL"   envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT"  envDefault:"text"`
}

type Postgres struct {
	DSN             string        `env:"PG_DSN,notEmpty"      json:"-"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS"    envDefault:"5"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS"    envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// Redis общий для кошелька монет, рассылки и очереди asynq.
type Redis struct {
	Address            string `env:"REDIS_ADDRESS"              envDefault:"localhost:6379"`
	Username           string `env:"REDIS_USERNAME"`
	Password           string `env:"REDIS_PASSWORD"             json:"-"`
	DatabaseNumber     int    `env:"REDIS_DB"                   envDefault:"0"`
	PoolSize           int    `env:"REDIS_POOL_SIZE"            envDefault:"10"`
	MinIdleConnections int    `env:"REDIS_MIN_IDLE_CONNECTIONS" envDefault:"1"`
	MaxIdleConnections int    `env:"REDIS_MAX_IDLE_CONNECTIONS" envDefault:"5"`
	WorkerConcurrency  int    `env:"REDIS_WORKER_CONCURRENCY"   envDefault:"2"`
}

type HTTP struct {
	ListenAddress   string        `env:"HTTP_LISTEN_ADDRESS"    envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT"  envDefault:"10s"`
	LogFieldMaxLen  int           `env:"HTTP_LOG_FIELD_MAX_LEN" envDefault:"4096"`
	AdminToken      string        `env:"ADMIN_TOKEN"            json:"-"`
}

type Probe struct {
	ListenAddress string `env:"PROBE_LISTEN_ADDRESS" envDefault:":8081"`
}

type Metrics struct {
	ListenAddress string `env:"METRICS_LISTEN_ADDRESS" envDefault:":9090"`
}

// Queue настройки последовательных очередей хранилища, баланса и покупок.
type Queue struct {
	Capacity      int           `env:"QUEUE_CAPACITY"       envDefault:"1024"`
	SubmitTimeout time.Duration `env:"QUEUE_SUBMIT_TIMEOUT" envDefault:"5s"`
	SlowThreshold time.Duration `env:"QUEUE_SLOW_THRESHOLD" envDefault:"1s"`
	ShutdownGrace time.Duration `env:"QUEUE_SHUTDOWN_GRACE" envDefault:"10s"`
}

// Economy монеты хранятся в Redis. Очки берутся из внешнего сервиса, а
// если PointsURL не задан, тоже из Redis под своим префиксом.
type Economy struct {
	CoinsPrefix   string        `env:"ECONOMY_COINS_PREFIX"   envDefault:"coins"`
	PointsPrefix  string        `env:"ECONOMY_POINTS_PREFIX"  envDefault:"points"`
	PointsURL     string        `env:"ECONOMY_POINTS_URL"`
	PointsToken   string        `env:"ECONOMY_POINTS_TOKEN"   json:"-"`
	PointsTimeout time.Duration `env:"ECONOMY_POINTS_TIMEOUT" envDefault:"3s"`
}

type Shop struct {
	CatalogFile      string        `env:"SHOP_CATALOG_FILE"       envDefault:"config/catalog.yaml"`
	AddStockOnSell   bool          `env:"SHOP_ADD_STOCK_ON_SELL"  envDefault:"false"`
	CleanupCron      string        `env:"SHOP_CLEANUP_CRON"       envDefault:"0 4 * * *"`
	CleanupDays      int           `env:"SHOP_CLEANUP_DAYS"       envDefault:"30"`
	StockSyncPeriod  time.Duration `env:"SHOP_STOCK_SYNC_PERIOD"  envDefault:"30s"`
	BroadcastChannel string        `env:"SHOP_BROADCAST_CHANNEL"  envDefault:"goods-market"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var config Config

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	return config, nil
}
