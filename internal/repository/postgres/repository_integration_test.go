//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	_ "github.com/jackc/pgx/v5/stdlib" //для goose миграций

	"github.com/shestoi/paypal-adaptive/internal/repository"
)

func TestRepository_Integration(t *testing.T) {
	ctx := context.Background()

	// Поднимаем PostgreSQL контейнер через testcontainers
	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("paypal"),
		postgres.WithUsername("paypal_user"),
		postgres.WithPassword("paypal_password"),
	)
	require.NoError(t, err)
	defer func() {
		err := postgresContainer.Terminate(ctx)
		require.NoError(t, err)
	}()

	dsn, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Открываем *sql.DB через pgx stdlib для goose миграций
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer db.Close()

	// Ждём готовности БД через ping с retry
	var pingErr error
	for i := 0; i < 10; i++ {
		pingErr = db.PingContext(ctx)
		if pingErr == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, pingErr, "Failed to ping database after retries")

	require.NoError(t, Migrate(ctx, db), "Failed to run migrations")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewRepository(pool, "paypal.transaction.recorded")

	created := time.Now().UTC().Truncate(time.Microsecond)
	success := repository.Transaction{
		ID:            uuid.NewString(),
		Operation:     "create",
		IsSandbox:     true,
		Ack:           "Success",
		RawRequest:    "actionType=PAY&currencyCode=GBP",
		RawResponse:   "responseEnvelope.ack=Success&payKey=AP-123&responseEnvelope.correlationId=abc",
		ResponseTime:  250 * time.Millisecond,
		CorrelationID: "abc",
		PayKey:        "AP-123",
		Amount:        decimal.NewNullDecimal(decimal.RequireFromString("110.00")),
		Currency:      "GBP",
		CreatedAt:     created,
	}
	failure := repository.Transaction{
		ID:           uuid.NewString(),
		Operation:    "get-details",
		IsSandbox:    true,
		Ack:          "Failure",
		RawRequest:   "payKey=AP-123",
		RawResponse:  "responseEnvelope.ack=Failure&error(0).errorId=520009&error(0).message=Bad",
		ResponseTime: 80 * time.Millisecond,
		ErrorCode:    "520009",
		ErrorMessage: "Bad",
		CreatedAt:    created.Add(time.Second),
	}

	t.Run("Save and GetByID", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, success))

		got, err := repo.GetByID(ctx, success.ID)
		require.NoError(t, err)

		require.Equal(t, success.ID, got.ID)
		require.Equal(t, success.Operation, got.Operation)
		require.Equal(t, success.PayKey, got.PayKey)
		require.Equal(t, success.CorrelationID, got.CorrelationID)
		require.True(t, got.Amount.Valid)
		require.True(t, success.Amount.Decimal.Equal(got.Amount.Decimal))
		require.Equal(t, success.ResponseTime, got.ResponseTime)
		require.True(t, success.CreatedAt.Equal(got.CreatedAt))
		require.True(t, got.IsSuccessful())
	})

	t.Run("Save failed record without amount", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, failure))

		got, err := repo.GetByID(ctx, failure.ID)
		require.NoError(t, err)
		require.False(t, got.Amount.Valid)
		require.Equal(t, "520009", got.ErrorCode)
		require.False(t, got.IsSuccessful())
	})

	t.Run("Save twice returns ErrAlreadyExists", func(t *testing.T) {
		err := repo.Save(ctx, success)
		require.ErrorIs(t, err, repository.ErrAlreadyExists)
	})

	t.Run("records cannot be updated", func(t *testing.T) {
		_, err := pool.Exec(ctx, `UPDATE paypal_transactions SET ack = 'Success' WHERE id = $1`, failure.ID)
		require.Error(t, err)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.NewString())
		require.True(t, errors.Is(err, repository.ErrNotFound), "Expected ErrNotFound, got: %v", err)

		_, err = repo.GetByID(ctx, "not-a-uuid")
		require.True(t, errors.Is(err, repository.ErrNotFound), "Expected ErrNotFound, got: %v", err)
	})

	t.Run("ListByPayKey", func(t *testing.T) {
		list, err := repo.ListByPayKey(ctx, "AP-123")
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, success.ID, list[0].ID)
	})

	t.Run("outbox lifecycle", func(t *testing.T) {
		events, err := repo.GetPendingOutboxEvents(ctx, 10)
		require.NoError(t, err)
		require.Len(t, events, 2)
		require.Equal(t, success.ID, events[0].AggregateID)
		require.Equal(t, "paypal.transaction.recorded", events[0].Topic)

		require.NoError(t, repo.MarkOutboxEventSent(ctx, events[0].EventID))
		require.NoError(t, repo.MarkOutboxEventFailed(ctx, events[1].EventID, "broker down"))

		events, err = repo.GetPendingOutboxEvents(ctx, 10)
		require.NoError(t, err)
		require.Empty(t, events)

		require.ErrorIs(t, repo.MarkOutboxEventSent(ctx, uuid.NewString()), repository.ErrNotFound)
	})
}
