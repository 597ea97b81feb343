package observability

import "time"

// Config параметры OpenTelemetry (traces, metrics, propagator)
type Config struct {
	// Enabled включает экспорт в OTLP collector; иначе ставятся noop providers
	Enabled bool
	// OTLPEndpoint адрес OTLP gRPC, например "127.0.0.1:4317"
	OTLPEndpoint string
	// SamplingRatio доля семплируемых трасс (0..1)
	SamplingRatio float64
	ServiceName   string
	// DeploymentEnvironment local или docker
	DeploymentEnvironment string
	ServiceVersion        string
	// MetricInterval период выгрузки метрик, по умолчанию 10s
	MetricInterval time.Duration
}
