package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Manager управляет graceful shutdown сервиса.
// Ждёт SIGINT/SIGTERM (или отмены контекста) и выполняет зарегистрированные функции
// в обратном порядке регистрации.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger
	funcs   []shutdownFunc
	mu      sync.Mutex
}

type shutdownFunc struct {
	name string
	fn   func(context.Context) error
}

// New создаёт Manager; timeout ограничивает каждую функцию отдельно
func New(timeout time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		timeout: timeout,
		logger:  logger,
		funcs:   make([]shutdownFunc, 0),
	}
}

// Add регистрирует shutdown функцию.
// Зарегистрированная последней выполняется первой.
func (m *Manager) Add(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, shutdownFunc{name: name, fn: fn})
}

// Wait блокируется до SIGINT или SIGTERM, затем выполняет shutdown
func (m *Manager) Wait() {
	m.WaitContext(context.Background())
}

// WaitContext блокируется до сигнала или отмены ctx, затем выполняет shutdown
func (m *Manager) WaitContext(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		m.logger.Info("Received shutdown signal, starting graceful shutdown", zap.String("signal", sig.String()))
	case <-ctx.Done():
		m.logger.Info("Context cancelled, starting graceful shutdown")
	}

	m.Shutdown()
}

// Shutdown выполняет зарегистрированные функции.
// Ошибка одной функции не прерывает остальные.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	funcs := make([]shutdownFunc, len(m.funcs))
	copy(funcs, m.funcs)
	m.mu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		fn := funcs[i]
		m.logger.Info("Executing shutdown function", zap.String("name", fn.name))

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		start := time.Now()
		err := fn.fn(ctx)
		cancel()

		duration := time.Since(start)
		if err != nil {
			m.logger.Error("Shutdown function failed",
				zap.String("name", fn.name),
				zap.Error(err),
				zap.Duration("duration", duration))
		} else {
			m.logger.Info("Shutdown function completed",
				zap.String("name", fn.name),
				zap.Duration("duration", duration))
		}
	}

	m.logger.Info("Graceful shutdown completed")
}

// ShutdownHTTPServer возвращает shutdown функцию для http.Server
func ShutdownHTTPServer(srv interface {
	Shutdown(context.Context) error
}) func(context.Context) error {
	return func(ctx context.Context) error {
		return srv.Shutdown(ctx)
	}
}

// StopWorker останавливает фоновую горутину: вызывает cancel и ждёт закрытия done.
// Если горутина не завершилась за таймаут, возвращает ошибку.
func StopWorker(cancel context.CancelFunc, done <-chan struct{}) func(context.Context) error {
	return func(ctx context.Context) error {
		cancel()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("worker did not stop before timeout")
		}
	}
}

// Close возвращает shutdown функцию для ресурса с Close() error (kafka.Writer и т.п.)
func Close(c interface {
	Close() error
}) func(context.Context) error {
	return func(ctx context.Context) error {
		return c.Close()
	}
}

// ClosePool возвращает shutdown функцию для закрытия connection pool
func ClosePool(pool interface {
	Close()
}) func(context.Context) error {
	return func(ctx context.Context) error {
		pool.Close()
		return nil
	}
}

// MarkNotReady снимает флаг готовности, чтобы /health начал отвечать 503
// до остановки HTTP сервера
func MarkNotReady(ready *atomic.Bool) func(context.Context) error {
	return func(ctx context.Context) error {
		ready.Store(false)
		return nil
	}
}
