package kafka

import (
	"strings"

	"github.com/caarlos0/env/v10"
)

// LoadEnv читает конфигурацию из переменных окружения (caarlos0/env).
// Пробелы вокруг брокеров отбрасываются, пустые элементы пропускаются.
func LoadEnv(cfg *Config, docker bool) error {
	if err := env.Parse(cfg); err != nil {
		return err
	}

	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		brokers = DefaultBrokers(docker)
	}
	cfg.Brokers = brokers
	return nil
}
