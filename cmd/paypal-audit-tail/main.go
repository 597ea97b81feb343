// Package main печатает поток аудит-событий PayPal из Kafka.
//
// Брокеры и топик берутся из KAFKA_BROKERS и KAFKA_PAYPAL_TRANSACTIONS_TOPIC,
// группа consumer-а из KAFKA_AUDIT_TAIL_GROUP_ID (по умолчанию paypal-audit-tail).
// Неуспешные вызовы PayPal пишутся на уровне warn.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	platformkafka "github.com/shestoi/paypal-adaptive/platform/kafka"
	platformlogging "github.com/shestoi/paypal-adaptive/platform/logging"

	eventkafka "github.com/shestoi/paypal-adaptive/internal/event/kafka"
	"github.com/shestoi/paypal-adaptive/internal/repository"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}

	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: "paypal-audit-tail",
		Env:         env,
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      os.Getenv("LOG_FORMAT"),
	})
	if err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer platformlogging.Sync(logger)

	var cfg platformkafka.Config
	if err := platformkafka.LoadEnv(&cfg, env == "docker"); err != nil {
		logger.Error("failed to load kafka config", zap.Error(err))
		os.Exit(1)
	}

	groupID := os.Getenv("KAFKA_AUDIT_TAIL_GROUP_ID")
	if groupID == "" {
		groupID = "paypal-audit-tail"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := eventkafka.NewAuditConsumer(logger, cfg.Brokers, groupID, cfg.Topic,
		func(ctx context.Context, e repository.TransactionRecordedEvent) error {
			fields := []zap.Field{
				zap.String("transaction_id", e.TransactionID),
				zap.String("operation", e.Operation),
				zap.String("ack", e.Ack),
				zap.String("pay_key", e.PayKey),
				zap.Bool("sandbox", e.IsSandbox),
				zap.Time("occurred_at", e.OccurredAt),
			}
			if e.Amount != nil {
				fields = append(fields, zap.String("amount", *e.Amount), zap.String("currency", e.Currency))
			}
			if e.Successful {
				logger.Info("paypal transaction", fields...)
			} else {
				logger.Warn("paypal transaction failed", append(fields, zap.String("error_code", e.ErrorCode))...)
			}
			return nil
		},
	)
	defer func() {
		if err := consumer.Close(); err != nil {
			logger.Error("failed to close kafka reader", zap.Error(err))
		}
	}()

	if err := consumer.Start(ctx); err != nil {
		logger.Error("audit consumer stopped with error", zap.Error(err))
	}
}
