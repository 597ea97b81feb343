package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/shestoi/paypal-adaptive/internal/repository"
	"github.com/shestoi/paypal-adaptive/migrations"
)

// Repository реализует TransactionRepository и OutboxRepository используя PostgreSQL
type Repository struct {
	pool  *pgxpool.Pool
	topic string
}

// NewRepository создаёт новый PostgreSQL репозиторий.
// topic: Kafka топик, в который попадут outbox события.
func NewRepository(pool *pgxpool.Pool, topic string) *Repository {
	return &Repository{
		pool:  pool,
		topic: topic,
	}
}

// Migrate применяет встроенные goose миграции
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

const selectColumns = `id::text, operation, is_sandbox, ack, raw_request, raw_response, response_time_ms,
	COALESCE(correlation_id, ''), COALESCE(pay_key, ''), amount::text, COALESCE(currency, ''),
	COALESCE(error_code, ''), COALESCE(error_message, ''), created_at`

// Save сохраняет запись и outbox событие в одной транзакции
func (r *Repository) Save(ctx context.Context, t repository.Transaction) error {
	event, err := repository.NewTransactionRecordedEvent(t, r.topic)
	if err != nil {
		return err
	}

	// Начинаем транзакцию
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	// Гарантируем откат транзакции в случае ошибки
	defer tx.Rollback(ctx)

	var amount *string
	if t.Amount.Valid {
		s := t.Amount.Decimal.StringFixed(2)
		amount = &s
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO paypal_transactions (id, operation, is_sandbox, ack, raw_request, raw_response, response_time_ms,
		   correlation_id, pay_key, amount, currency, error_code, error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11, $12, $13, $14)`,
		t.ID, t.Operation, t.IsSandbox, t.Ack, t.RawRequest, t.RawResponse, t.ResponseTimeMs(),
		nullString(t.CorrelationID), nullString(t.PayKey), amount, nullString(t.Currency),
		nullString(t.ErrorCode), nullString(t.ErrorMessage), t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("insert paypal transaction: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO paypal_outbox_events (event_id, event_type, aggregate_id, topic, payload, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.EventID, event.EventType, event.AggregateID, event.Topic, event.Payload, event.Status, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	// Коммитим транзакцию
	return tx.Commit(ctx)
}

// GetByID получает запись по ID
func (r *Repository) GetByID(ctx context.Context, id string) (repository.Transaction, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM paypal_transactions WHERE id = $1::uuid`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Transaction{}, repository.ErrNotFound
		}
		// невалидный uuid: такой записи быть не может
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
			return repository.Transaction{}, repository.ErrNotFound
		}
		return repository.Transaction{}, err
	}
	return t, nil
}

// ListByPayKey возвращает записи по pay key в порядке создания
func (r *Repository) ListByPayKey(ctx context.Context, payKey string) ([]repository.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM paypal_transactions WHERE pay_key = $1 ORDER BY created_at, id`, payKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]repository.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPendingOutboxEvents возвращает до limit pending событий, старые первыми
func (r *Repository) GetPendingOutboxEvents(ctx context.Context, limit int) ([]repository.OutboxEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT event_id::text, event_type, aggregate_id::text, topic, payload, status, attempts, COALESCE(last_error, ''), created_at
		 FROM paypal_outbox_events
		 WHERE status = $1
		 ORDER BY created_at
		 LIMIT $2`,
		repository.OutboxStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]repository.OutboxEvent, 0)
	for rows.Next() {
		var e repository.OutboxEvent
		if err := rows.Scan(&e.EventID, &e.EventType, &e.AggregateID, &e.Topic, &e.Payload,
			&e.Status, &e.Attempts, &e.LastError, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// MarkOutboxEventSent переводит событие в статус sent
func (r *Repository) MarkOutboxEventSent(ctx context.Context, eventID string) error {
	return r.execOutbox(ctx,
		`UPDATE paypal_outbox_events SET status = $2, attempts = attempts + 1, sent_at = now() WHERE event_id = $1`,
		eventID, repository.OutboxStatusSent)
}

// MarkOutboxEventFailed переводит событие в статус failed и сохраняет last_error
func (r *Repository) MarkOutboxEventFailed(ctx context.Context, eventID string, errMsg string) error {
	return r.execOutbox(ctx,
		`UPDATE paypal_outbox_events SET status = $2, attempts = attempts + 1, last_error = $3 WHERE event_id = $1`,
		eventID, repository.OutboxStatusFailed, errMsg)
}

// ResetOutboxEventPending возвращает событие в pending для следующего цикла
func (r *Repository) ResetOutboxEventPending(ctx context.Context, eventID string) error {
	return r.execOutbox(ctx,
		`UPDATE paypal_outbox_events SET status = $2 WHERE event_id = $1`,
		eventID, repository.OutboxStatusPending)
}

func (r *Repository) execOutbox(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanTransaction(row pgx.Row) (repository.Transaction, error) {
	var (
		t          repository.Transaction
		responseMs float64
		amount     *string
	)
	err := row.Scan(&t.ID, &t.Operation, &t.IsSandbox, &t.Ack, &t.RawRequest, &t.RawResponse, &responseMs,
		&t.CorrelationID, &t.PayKey, &amount, &t.Currency, &t.ErrorCode, &t.ErrorMessage, &t.CreatedAt)
	if err != nil {
		return repository.Transaction{}, err
	}

	t.ResponseTime = time.Duration(responseMs * float64(time.Millisecond))
	if amount != nil {
		d, err := decimal.NewFromString(*amount)
		if err != nil {
			return repository.Transaction{}, fmt.Errorf("scan amount: %w", err)
		}
		t.Amount = decimal.NewNullDecimal(d)
	}
	return t, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
