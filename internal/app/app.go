package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // драйвер pgx для goose миграций
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	platformlogging "github.com/shestoi/paypal-adaptive/platform/logging"
	platformobservability "github.com/shestoi/paypal-adaptive/platform/observability"
	platformshutdown "github.com/shestoi/paypal-adaptive/platform/shutdown"

	httpapi "github.com/shestoi/paypal-adaptive/internal/api/http"
	"github.com/shestoi/paypal-adaptive/internal/client/paypal"
	"github.com/shestoi/paypal-adaptive/internal/config"
	eventkafka "github.com/shestoi/paypal-adaptive/internal/event/kafka"
	"github.com/shestoi/paypal-adaptive/internal/repository/postgres"
	"github.com/shestoi/paypal-adaptive/internal/service"
)

const serviceName = "paypal"

// initObservability подменяется в тестах
var initObservability = platformobservability.Init

// App содержит все зависимости для запуска и корректного shutdown PayPal сервиса
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	shutdownMgr *platformshutdown.Manager
	wg          sync.WaitGroup

	// dispatcher nil, если OUTBOX_ENABLED=false
	dispatcher     *eventkafka.OutboxDispatcher
	dispatcherCtx  context.Context
	dispatcherDone chan struct{}
}

// Build создаёт и настраивает все зависимости PayPal сервиса
func Build(cfg config.Config) (*App, error) {
	const op = "app.Build"

	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: serviceName,
		Env:         string(cfg.AppEnv),
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      os.Getenv("LOG_FORMAT"),
	})
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("op", op))
	logger.Info("Building PayPal service",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.Bool("sandbox", cfg.PayPal.Sandbox),
		zap.Bool("outbox_enabled", cfg.Outbox.Enabled),
	)

	// OpenTelemetry: traces + metrics (noop если OTEL_ENABLED=false)
	otelShutdown, err := initObservability(context.Background(), platformobservability.Config{
		Enabled:               cfg.OTelEnabled,
		OTLPEndpoint:          cfg.OTelEndpoint,
		SamplingRatio:         cfg.OTelSamplingRatio,
		ServiceName:           serviceName,
		DeploymentEnvironment: string(cfg.AppEnv),
	})
	if err != nil {
		return nil, err
	}

	// при ошибке сборки освобождаем то, что уже создано
	cleanup := func(pool *pgxpool.Pool) {
		if pool != nil {
			pool.Close()
		}
		if err := otelShutdown(context.Background()); err != nil {
			logger.Warn("otel shutdown after failed build", zap.Error(err))
		}
	}

	// Подключаемся к PostgreSQL
	logger.Info("Connecting to PostgreSQL")
	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		cleanup(nil)
		return nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		cleanup(pool)
		return nil, err
	}
	logger.Info("PostgreSQL connection established")

	if err := migrate(cfg.PostgresDSN); err != nil {
		cleanup(pool)
		return nil, err
	}
	logger.Info("Migrations applied")

	// readiness снимается первым шагом shutdown
	var ready atomic.Bool
	ready.Store(true)
	readiness := func() bool {
		if !ready.Load() {
			return false
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(ctx) == nil
	}

	repo := postgres.NewRepository(pool, cfg.Kafka.Topic)

	paypalClient, err := paypal.NewClient(cfg.PayPal, nil, logger)
	if err != nil {
		cleanup(pool)
		return nil, err
	}

	paymentService := service.NewPaymentService(logger, service.Config{
		PlatformPayPalEmail: cfg.Checkout.PlatformEmail,
		MaxUSDAmount:        cfg.Checkout.MaxUSDAmount,
		ErrorLanguage:       cfg.Checkout.ErrorLanguage,
	}, paypalClient, repo)

	handler := httpapi.NewHandler(paymentService, logger)
	router := httpapi.NewRouter(handler, readiness, logger)

	// WriteTimeout больше таймаута PayPal, иначе ответ оборвётся раньше записи аудита
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.PayPal.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)

	// Регистрируем shutdown функции в обратном порядке выполнения: otel последним
	shutdownMgr.Add("otel", otelShutdown)
	shutdownMgr.Add("postgres_pool", platformshutdown.ClosePool(pool))

	a := &App{
		logger:      logger,
		httpServer:  httpServer,
		shutdownMgr: shutdownMgr,
	}

	if cfg.Outbox.Enabled {
		logger.Info("Outbox dispatcher enabled",
			zap.Strings("kafka_brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
		a.dispatcher = eventkafka.NewOutboxDispatcher(
			logger,
			repo,
			eventkafka.NewWriter(cfg.Kafka.Brokers),
			cfg.Outbox.BatchSize,
			cfg.Outbox.Interval,
			cfg.Outbox.MaxRetries,
			cfg.Outbox.Backoff,
		)

		ctx, cancel := context.WithCancel(context.Background())
		a.dispatcherCtx = ctx
		a.dispatcherDone = make(chan struct{})

		shutdownMgr.Add("kafka_writer", platformshutdown.Close(a.dispatcher))
		shutdownMgr.Add("outbox_dispatcher", platformshutdown.StopWorker(cancel, a.dispatcherDone))
	}

	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))
	shutdownMgr.Add("health_readiness", platformshutdown.MarkNotReady(&ready))

	return a, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting PayPal service", zap.String("addr", a.httpServer.Addr))
	a.logger.Info("Health check available", zap.String("url", "http://"+a.httpServer.Addr+"/health"))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	if a.dispatcher != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			defer close(a.dispatcherDone)
			if err := a.dispatcher.Start(a.dispatcherCtx); err != nil {
				a.logger.Error("outbox dispatcher error", zap.Error(err))
			}
		}()
	}

	// Ожидаем сигнал и выполняем shutdown
	a.shutdownMgr.Wait()

	a.wg.Wait()
	a.logger.Info("PayPal service stopped")
	return nil
}

// migrate применяет встроенные миграции через отдельное database/sql соединение
func migrate(dsn string) error {
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := postgres.Migrate(ctx, db); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
