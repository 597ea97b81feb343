package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shestoi/paypal-adaptive/internal/repository"
)

// MessageWriter: часть kafka.Writer, нужная dispatcher-у
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter создаёт kafka.Writer для публикации событий аудита
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// OutboxDispatcher публикует события из outbox таблицы в Kafka.
// Повторы здесь касаются только публикации событий, не вызовов PayPal.
type OutboxDispatcher struct {
	logger     *zap.Logger
	repo       repository.OutboxRepository
	writer     MessageWriter
	batchSize  int
	interval   time.Duration
	maxRetries int
	backoff    time.Duration
}

// NewOutboxDispatcher создаёт новый outbox dispatcher
func NewOutboxDispatcher(
	logger *zap.Logger,
	repo repository.OutboxRepository,
	writer MessageWriter,
	batchSize int, // количество событий за один проход
	interval time.Duration, // интервал между проходами
	maxRetries int, // попыток публикации одного события за проход
	backoff time.Duration, // базовая пауза между попытками
) *OutboxDispatcher {
	return &OutboxDispatcher{
		logger:     logger,
		repo:       repo,
		writer:     writer,
		batchSize:  batchSize,
		interval:   interval,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// Start запускает цикл публикации и блокируется до отмены ctx
func (d *OutboxDispatcher) Start(ctx context.Context) error {
	d.logger.Info("starting outbox dispatcher",
		zap.Int("batch_size", d.batchSize),
		zap.Duration("interval", d.interval),
		zap.Int("max_retries", d.maxRetries),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	// Обрабатываем сразу при старте
	if err := d.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
		d.logger.Error("failed to process initial batch", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher context cancelled, stopping")
			return nil
		case <-ticker.C:
			if err := d.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
				d.logger.Error("failed to process batch", zap.Error(err))
			}
		}
	}
}

// ProcessBatch публикует одну пачку pending событий.
// Ошибка одного события не останавливает обработку остальных.
func (d *OutboxDispatcher) ProcessBatch(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	events, err := d.repo.GetPendingOutboxEvents(ctx, d.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to get pending events: %w", err)
	}

	if len(events) == 0 {
		return nil
	}

	d.logger.Debug("processing outbox batch", zap.Int("count", len(events)))

	for _, event := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := d.processEvent(ctx, event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Error("failed to process event",
				zap.Error(err),
				zap.String("event_id", event.EventID),
				zap.String("topic", event.Topic),
			)
		}
	}

	return nil
}

// processEvent публикует одно событие с retry
func (d *OutboxDispatcher) processEvent(ctx context.Context, event repository.OutboxEvent) error {
	msg := kafka.Message{
		Topic: event.Topic,
		Key:   []byte(event.AggregateID), // transaction id как key
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID)},
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		err := d.writer.WriteMessages(ctx, msg)
		if err == nil {
			if markErr := d.repo.MarkOutboxEventSent(ctx, event.EventID); markErr != nil {
				return fmt.Errorf("failed to mark event as sent: %w", markErr)
			}
			d.logger.Info("outbox event published",
				zap.String("event_id", event.EventID),
				zap.String("topic", event.Topic),
				zap.String("transaction_id", event.AggregateID),
				zap.Int("attempt", attempt),
			)
			return nil
		}

		lastErr = err
		d.logger.Warn("failed to publish outbox event",
			zap.Error(err),
			zap.String("event_id", event.EventID),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", d.maxRetries),
		)

		if attempt < d.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.backoff * time.Duration(attempt)):
			}
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	errMsg := fmt.Sprintf("failed after %d attempts: %v", d.maxRetries, lastErr)
	if markErr := d.repo.MarkOutboxEventFailed(ctx, event.EventID, errMsg); markErr != nil {
		return fmt.Errorf("failed to mark event as failed: %w", markErr)
	}

	// Возвращаем в pending: следующий проход попробует снова
	if resetErr := d.repo.ResetOutboxEventPending(ctx, event.EventID); resetErr != nil {
		d.logger.Error("failed to reset event to pending",
			zap.Error(resetErr),
			zap.String("event_id", event.EventID),
		)
	}

	return fmt.Errorf("failed to publish event after %d attempts: %w", d.maxRetries, lastErr)
}

// Close закрывает Kafka writer
func (d *OutboxDispatcher) Close() error {
	d.logger.Info("closing outbox dispatcher")
	return d.writer.Close()
}
