// Package application собирает процесс магазина: хранилище, очереди,
// сервисы и серверы.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"goods_market/internal/config"
	"goods_market/internal/domain/service/gacha"
	"goods_market/internal/domain/service/shop"
	"goods_market/internal/infrastructure/economy"
	"goods_market/internal/infrastructure/notifier"
	"goods_market/internal/infrastructure/persistence"
	"goods_market/internal/server"
	"goods_market/internal/worker"
	"goods_market/pkg/application/connectors"
	"goods_market/pkg/application/modules"
	"goods_market/pkg/contextx"
	"goods_market/pkg/logx"
	"goods_market/pkg/middlewarex"
	"goods_market/pkg/probe"
	"goods_market/pkg/serialq"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

func Run(ctx context.Context, cfg config.Config) error { //nolint:funlen
	pg := &connectors.Postgres{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}
	defer pg.Close(ctx)

	db, err := pg.Connect(ctx)
	if err != nil {
		return fmt.Errorf("pg.Connect: %w", err)
	}

	rd := &connectors.Redis{
		Username:           cfg.Redis.Username,
		Password:           cfg.Redis.Password,
		Address:            cfg.Redis.Address,
		DatabaseNumber:     cfg.Redis.DatabaseNumber,
		PoolSize:           cfg.Redis.PoolSize,
		MinIdleConnections: cfg.Redis.MinIdleConnections,
		MaxIdleConnections: cfg.Redis.MaxIdleConnections,
	}
	defer rd.Close(ctx)

	redisClient, err := rd.Connect(ctx)
	if err != nil {
		return fmt.Errorf("rd.Connect: %w", err)
	}

	definitions, err := config.LoadCatalog(ctx, cfg.Shop.CatalogFile)
	if err != nil {
		return fmt.Errorf("config.LoadCatalog: %w", err)
	}

	storeQueue := newQueue("store", cfg.Queue)
	currencyQueue := newQueue("currency", cfg.Queue)
	purchaseQueue := newQueue("purchase", cfg.Queue)
	queues := []*serialq.Queue{purchaseQueue, storeQueue, currencyQueue}

	for _, q := range queues {
		q.Start(ctx)
	}

	store := persistence.NewStore(db)
	catalogRepo := persistence.NewCatalogRepository(db)
	limitRepo := persistence.NewLimitRepository(db)
	pityRepo := persistence.NewPityRepository(db)
	recordRepo := persistence.NewRecordRepository(db)

	broadcaster := notifier.NewBroadcaster(redisClient, cfg.Shop.BroadcastChannel)

	ledger := shop.NewLedger(catalogRepo, limitRepo, storeQueue, shop.NewCatalog()).
		WithPublisher(broadcaster)

	if err := ledger.Load(ctx, definitions.Entries); err != nil {
		return fmt.Errorf("ledger.Load: %w", err)
	}

	coins := economy.NewAccount(economy.NewRedisWallet(redisClient, cfg.Economy.CoinsPrefix), currencyQueue)
	points := economy.NewAccount(pointsWallet(redisClient, cfg), currencyQueue)

	purchaseService := shop.NewPurchaseService(ledger, store, recordRepo, coins, points, broadcaster, purchaseQueue).
		WithMessages(definitions.Messages).
		WithRestockOnSell(cfg.Shop.AddStockOnSell)
	adminService := shop.NewAdminService(ledger, store, recordRepo)

	machines := gacha.NewMachines(definitions.Machines...)
	gachaService := gacha.NewService(
		machines,
		gacha.NewSelector(gacha.DefaultSource()),
		pityRepo,
		recordRepo,
		coins,
		broadcaster,
		storeQueue,
	).
		WithAnnouncer(broadcaster).
		WithMessages(definitions.Messages)

	logger(ctx).Info("catalog loaded",
		slog.Int("entries", len(definitions.Entries)),
		slog.Int("machines", len(definitions.Machines)),
	)

	stockSync := worker.NewStockSync(ledger).WithInterval(cfg.Shop.StockSyncPeriod)
	if err := stockSync.Start(ctx); err != nil {
		return fmt.Errorf("stockSync.Start: %w", err)
	}
	defer stockSync.Stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := broadcaster.SubscribeStock(ctx, redisClient, ledger); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("broadcaster.SubscribeStock: %w", err)
		}

		return nil
	})

	cleanupTask, err := worker.NewCleanupTask(cfg.Shop.CleanupDays)
	if err != nil {
		return fmt.Errorf("worker.NewCleanupTask: %w", err)
	}

	modules.AsynqServer{
		RedisUsername: cfg.Redis.Username,
		RedisPassword: cfg.Redis.Password,
		RedisAddress:  cfg.Redis.Address,
		RedisDB:       cfg.Redis.DatabaseNumber,
		Concurrency:   cfg.Redis.WorkerConcurrency,
	}.Run(ctx, g, modules.AsynqQueues{"default": 1}, worker.NewCleanupHandler(adminService).AsynqHandler())

	modules.AsynqScheduler{
		RedisUsername: cfg.Redis.Username,
		RedisPassword: cfg.Redis.Password,
		RedisAddress:  cfg.Redis.Address,
		RedisDB:       cfg.Redis.DatabaseNumber,
		Location:      time.Local,
	}.Run(ctx, g, modules.AsynqSchedule{Cronspec: cfg.Shop.CleanupCron, Task: cleanupTask})

	srv := server.NewServer(
		server.NewShopServer(purchaseService, ledger.Catalog()),
		server.NewGachaServer(gachaService, machines),
		server.NewAdminServer(adminService, newCatalogReloader(cfg.Shop.CatalogFile, adminService, machines)),
		cfg.HTTP.AdminToken,
	)

	modules.HTTPServer{
		ListenAddress:   cfg.HTTP.ListenAddress,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}.Run(ctx, g, newRouter(srv, cfg.HTTP.LogFieldMaxLen))

	modules.ProbeServer{
		Name:          cfg.App.Name,
		Version:       cfg.App.Version,
		ListenAddress: cfg.Probe.ListenAddress,
		Checks: map[string]probe.Check{
			"postgres": store.Ping,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err() //nolint:wrapcheck
			},
		},
	}.Run(ctx, g)

	modules.MetricServer{
		ListenAddress: cfg.Metrics.ListenAddress,
	}.Run(ctx, g)

	runErr := g.Wait()

	shutdown(context.WithoutCancel(ctx), cfg.Queue.ShutdownGrace, gachaService, queues)

	if runErr != nil {
		return fmt.Errorf("errgroup.Wait: %w", runErr)
	}

	return nil
}

func newQueue(name string, cfg config.Queue) *serialq.Queue {
	return serialq.New(name,
		serialq.WithCapacity(cfg.Capacity),
		serialq.WithSubmitTimeout(cfg.SubmitTimeout),
		serialq.WithSlowThreshold(cfg.SlowThreshold),
	)
}

func pointsWallet(client *redis.Client, cfg config.Config) economy.Wallet {
	if cfg.Economy.PointsURL == "" {
		return economy.NewRedisWallet(client, cfg.Economy.PointsPrefix)
	}

	return economy.NewHTTPWallet(economy.HTTPWalletConfig{
		BaseURL:        cfg.Economy.PointsURL,
		Token:          cfg.Economy.PointsToken,
		Timeout:        cfg.Economy.PointsTimeout,
		LogFieldMaxLen: cfg.HTTP.LogFieldMaxLen,
	})
}

func newRouter(srv server.Server, logFieldMaxLen int) http.Handler {
	masker := logx.NewSensitiveDataMasker()

	router := chi.NewRouter()
	router.Use(
		middlewarex.TraceID,
		middlewarex.Logger,
		middlewarex.RequestLogging(masker, logFieldMaxLen),
		middlewarex.ResponseLogging(masker, logFieldMaxLen),
		middlewarex.Recovery,
	)

	srv.RegisterRoutes(router)

	return router
}

// shutdown выдаёт незавершённые прокрутки и дожидается очередей в порядке
// зависимостей: покупки пишут в хранилище и баланс.
func shutdown(ctx context.Context, grace time.Duration, gachaService *gacha.Service, queues []*serialq.Queue) {
	ctx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()

	gachaService.Flush(ctx)

	for _, q := range queues {
		if err := q.Shutdown(ctx); err != nil {
			logger(ctx).Error("queue.Shutdown", slog.String(logx.FieldQueue, q.Name()), logx.Error(err))
		}
	}
}
