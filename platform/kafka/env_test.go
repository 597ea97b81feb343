package kafka

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	t.Run("defaults depend on environment", func(t *testing.T) {
		var local, docker Config
		require.NoError(t, LoadEnv(&local, false))
		require.NoError(t, LoadEnv(&docker, true))

		require.Equal(t, []string{"localhost:19092"}, local.Brokers)
		require.Equal(t, []string{"kafka:9092"}, docker.Brokers)
		require.Equal(t, "paypal.transactions", local.Topic)
	})

	t.Run("brokers list is trimmed", func(t *testing.T) {
		t.Setenv("KAFKA_BROKERS", " b1:9092, ,b2:9092 ")
		t.Setenv("KAFKA_PAYPAL_TRANSACTIONS_TOPIC", "audit")

		var cfg Config
		require.NoError(t, LoadEnv(&cfg, false))

		require.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Brokers)
		require.Equal(t, "audit", cfg.Topic)
	})
}
