package memory

import (
	"context"
	"sync"

	"github.com/shestoi/paypal-adaptive/internal/repository"
)

// MemoryRepository реализует TransactionRepository и OutboxRepository в памяти.
// Используется для локальной разработки и тестов.
type MemoryRepository struct {
	mu           sync.RWMutex
	topic        string
	transactions map[string]repository.Transaction // ключ = transaction ID
	order        []string                          // ID в порядке сохранения
	outbox       []repository.OutboxEvent
}

// NewMemoryRepository создаёт новый in-memory репозиторий.
// topic: Kafka топик для outbox событий.
func NewMemoryRepository(topic string) *MemoryRepository {
	return &MemoryRepository{
		topic:        topic,
		transactions: make(map[string]repository.Transaction),
	}
}

// Save сохраняет запись и outbox событие о ней
func (r *MemoryRepository) Save(ctx context.Context, tx repository.Transaction) error {
	event, err := repository.NewTransactionRecordedEvent(tx, r.topic)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.transactions[tx.ID]; exists {
		return repository.ErrAlreadyExists
	}
	r.transactions[tx.ID] = tx
	r.order = append(r.order, tx.ID)
	r.outbox = append(r.outbox, event)
	return nil
}

// GetByID получает запись по ID
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (repository.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, exists := r.transactions[id]
	if !exists {
		return repository.Transaction{}, repository.ErrNotFound
	}
	return tx, nil
}

// ListByPayKey возвращает записи по pay key в порядке сохранения
func (r *MemoryRepository) ListByPayKey(ctx context.Context, payKey string) ([]repository.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]repository.Transaction, 0)
	for _, id := range r.order {
		if tx := r.transactions[id]; tx.PayKey == payKey {
			out = append(out, tx)
		}
	}
	return out, nil
}

// GetPendingOutboxEvents возвращает до limit событий в статусе pending
func (r *MemoryRepository) GetPendingOutboxEvents(ctx context.Context, limit int) ([]repository.OutboxEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]repository.OutboxEvent, 0, limit)
	for _, e := range r.outbox {
		if len(out) >= limit {
			break
		}
		if e.Status == repository.OutboxStatusPending {
			out = append(out, e)
		}
	}
	return out, nil
}

// MarkOutboxEventSent переводит событие в статус sent
func (r *MemoryRepository) MarkOutboxEventSent(ctx context.Context, eventID string) error {
	return r.updateEvent(eventID, func(e *repository.OutboxEvent) {
		e.Status = repository.OutboxStatusSent
		e.Attempts++
	})
}

// MarkOutboxEventFailed переводит событие в статус failed и сохраняет ошибку
func (r *MemoryRepository) MarkOutboxEventFailed(ctx context.Context, eventID string, errMsg string) error {
	return r.updateEvent(eventID, func(e *repository.OutboxEvent) {
		e.Status = repository.OutboxStatusFailed
		e.Attempts++
		e.LastError = errMsg
	})
}

// ResetOutboxEventPending возвращает событие в pending для следующего цикла
func (r *MemoryRepository) ResetOutboxEventPending(ctx context.Context, eventID string) error {
	return r.updateEvent(eventID, func(e *repository.OutboxEvent) {
		e.Status = repository.OutboxStatusPending
	})
}

// OutboxEvents возвращает копию всех outbox событий
func (r *MemoryRepository) OutboxEvents() []repository.OutboxEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]repository.OutboxEvent, len(r.outbox))
	copy(out, r.outbox)
	return out
}

func (r *MemoryRepository) updateEvent(eventID string, fn func(e *repository.OutboxEvent)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.outbox {
		if r.outbox[i].EventID == eventID {
			fn(&r.outbox[i])
			return nil
		}
	}
	return repository.ErrNotFound
}
