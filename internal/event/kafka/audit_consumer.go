package kafka

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shestoi/paypal-adaptive/internal/repository"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AuditHandler обрабатывает одно событие paypal.transaction.recorded
type AuditHandler func(ctx context.Context, event repository.TransactionRecordedEvent) error

// AuditConsumer читает аудит-события из Kafka (at-least-once: commit после обработки)
type AuditConsumer struct {
	logger  *zap.Logger
	reader  *kafka.Reader
	handler AuditHandler
}

// NewAuditConsumer создаёт consumer группы groupID для topic
func NewAuditConsumer(logger *zap.Logger, brokers []string, groupID, topic string, handler AuditHandler) *AuditConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return &AuditConsumer{
		logger:  logger,
		reader:  reader,
		handler: handler,
	}
}

// Start читает сообщения до отмены ctx
func (c *AuditConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting audit consumer",
		zap.String("topic", c.reader.Config().Topic),
		zap.String("group_id", c.reader.Config().GroupID),
	)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("audit consumer context cancelled, stopping")
				return nil
			}
			c.logger.Error("failed to fetch message from kafka", zap.Error(err))
			continue
		}

		event, err := DecodeAuditEvent(m)
		if err != nil {
			// Битое сообщение не исправится повтором: логируем и коммитим
			c.logger.Error("skipping malformed audit event",
				zap.Error(err),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
		} else if err := c.handler(ctx, event); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("audit handler failed, offset not committed",
				zap.Error(err),
				zap.String("event_id", event.EventID),
			)
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit message offset",
				zap.Error(err),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
		}
	}
}

// Close закрывает Kafka reader
func (c *AuditConsumer) Close() error {
	return c.reader.Close()
}

// DecodeAuditEvent разбирает сообщение и проверяет тип события
func DecodeAuditEvent(m kafka.Message) (repository.TransactionRecordedEvent, error) {
	var event repository.TransactionRecordedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return repository.TransactionRecordedEvent{}, fmt.Errorf("unmarshal audit event: %w", err)
	}
	if event.EventType != repository.EventTypeTransactionRecorded {
		return repository.TransactionRecordedEvent{}, fmt.Errorf("unexpected event type %q", event.EventType)
	}
	if event.TransactionID == "" {
		return repository.TransactionRecordedEvent{}, fmt.Errorf("audit event %s has no transaction_id", event.EventID)
	}
	return event, nil
}
