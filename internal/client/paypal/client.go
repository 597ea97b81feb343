package paypal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	platformobservability "github.com/shestoi/paypal-adaptive/platform/observability"
)

const instrumentationName = "github.com/shestoi/paypal-adaptive/internal/client/paypal"

// Client выполняет вызовы PayPal Adaptive Payments и classic NVP API.
// Каждый вызов делает ровно один синхронный POST без повторов.
type Client struct {
	cfg        Config
	logger     *zap.Logger
	httpClient *http.Client
	tracer     trace.Tracer
	duration   metric.Float64Histogram
}

// NewClient создаёт клиента PayPal.
// httpClient может быть nil, тогда создаётся клиент с таймаутом из конфигурации.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	duration, err := otel.Meter(instrumentationName).Float64Histogram(
		"paypal.request.duration",
		metric.WithDescription("Latency of PayPal API calls"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("paypal request duration histogram: %w", err)
	}

	return &Client{
		cfg:        cfg,
		logger:     logger,
		httpClient: httpClient,
		tracer:     otel.Tracer(instrumentationName),
		duration:   duration,
	}, nil
}

// IsSandbox сообщает, работает ли клиент с sandbox окружением
func (c *Client) IsSandbox() bool {
	return c.cfg.Sandbox
}

// Do выполняет операцию op с полями fields и возвращает разобранный ответ.
// Любой не-2xx статус, сетевая ошибка или таймаут возвращаются как *CommunicationError.
func (c *Client) Do(ctx context.Context, op Operation, fields Fields) (*Response, error) {
	endpoint, err := c.cfg.Endpoint(op)
	if err != nil {
		return nil, err
	}

	// classic NVP API принимает credentials и метод в теле запроса
	body := fields
	if method, ok := nvpMethods[op]; ok {
		body = make(Fields, 0, len(fields)+5)
		body.Add("METHOD", method)
		body.Add("VERSION", c.cfg.APIVersion)
		body.Add("USER", c.cfg.Username)
		body.Add("PWD", c.cfg.Password)
		body.Add("SIGNATURE", c.cfg.Signature)
		body = append(body, fields...)
	}
	payload := body.Encode()

	ctx, span := c.tracer.Start(ctx, "paypal."+string(op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("paypal.operation", string(op)),
			attribute.Bool("paypal.sandbox", c.cfg.Sandbox),
		),
	)
	defer span.End()

	logger := platformobservability.L(ctx, c.logger)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.fail(ctx, span, op, start, err)
		logger.Error("paypal request failed", zap.String("operation", string(op)), zap.Error(err))
		return nil, &CommunicationError{Operation: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		c.fail(ctx, span, op, start, err)
		logger.Error("failed to read paypal response", zap.String("operation", string(op)), zap.Error(err))
		return nil, &CommunicationError{Operation: op, StatusCode: resp.StatusCode, Err: err}
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := fmt.Errorf("paypal API status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		c.fail(ctx, span, op, start, statusErr)
		logger.Error("paypal returned non-2xx status",
			zap.String("operation", string(op)),
			zap.Int("status_code", resp.StatusCode),
		)
		return nil, &CommunicationError{Operation: op, StatusCode: resp.StatusCode, Err: statusErr}
	}

	c.duration.Record(ctx, float64(elapsed.Microseconds())/1000.0,
		metric.WithAttributes(attribute.String("operation", string(op)), attribute.Bool("ok", true)))

	logger.Debug("paypal request completed",
		zap.String("operation", string(op)),
		zap.Duration("elapsed", elapsed),
	)

	return NewResponse(op, body.masked().Encode(), string(raw), elapsed), nil
}

// setHeaders проставляет заголовки аутентификации и формата данных
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-type", "application/x-www-form-urlencoded")
	req.Header.Set("Accepts", "text/plain")
	req.Header.Set("X-PAYPAL-SECURITY-USERID", c.cfg.Username)
	req.Header.Set("X-PAYPAL-SECURITY-PASSWORD", c.cfg.Password)
	req.Header.Set("X-PAYPAL-SECURITY-SIGNATURE", c.cfg.Signature)
	req.Header.Set("X-PAYPAL-APPLICATION-ID", c.cfg.ApplicationID)
	req.Header.Set("X-PAYPAL-REQUEST-DATA-FORMAT", "NV")
	req.Header.Set("X-PAYPAL-RESPONSE-DATA-FORMAT", "NV")
}

func (c *Client) fail(ctx context.Context, span trace.Span, op Operation, start time.Time, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000.0,
		metric.WithAttributes(attribute.String("operation", string(op)), attribute.Bool("ok", false)))
}
